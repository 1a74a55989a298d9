package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"report-generator/internal/form"
	"report-generator/internal/models"
)

var (
	nameStyle = lipgloss.NewStyle().Bold(true)
	descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// CategoriesCmd lists or searches the categories of one domain
type CategoriesCmd struct {
	Domain string `arg:"" enum:"ux,academy" help:"Category domain (ux or academy)."`
	Search string `arg:"" optional:"" help:"Only show categories whose name or description contains this text."`
	JSON   bool   `help:"Print JSON instead of a list."`
}

func (cmd *CategoriesCmd) Run(ctx *Context) error {
	gw, err := ctx.Gateway()
	if err != nil {
		return err
	}

	domain := models.CategoryDomain(cmd.Domain)
	table := ctx.Config.Airtable.Tables.UXCategories
	if domain == models.CategoryDomainAcademy {
		table = ctx.Config.Airtable.Tables.AcademyCategories
	}

	options, err := gw.ListCategories(context.Background(), table, ctx.Config.Form.CategoryLimit, ctx.Config.Airtable.CategoryFields)
	if err != nil {
		return fmt.Errorf("failed to load %s categories: %w", cmd.Domain, err)
	}

	catalog := form.NewCatalog(domain)
	if err := catalog.Load(options); err != nil {
		return err
	}
	catalog.Filter(cmd.Search)

	return printCatalog(ctx, catalog.View(), cmd.JSON)
}

func printCatalog(ctx *Context, view form.CatalogView, asJSON bool) error {
	var visible []form.CategoryItem
	for _, item := range view.Items {
		if item.Visible {
			visible = append(visible, item)
		}
	}

	if asJSON {
		out := make([]models.CategoryOption, 0, len(visible))
		for _, item := range visible {
			out = append(out, models.CategoryOption{ID: item.ID, Name: item.Name, Description: item.Description})
		}
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(visible) == 0 {
		fmt.Fprintln(ctx.Out, "No categories found.")
		return nil
	}
	for _, item := range visible {
		fmt.Fprintf(ctx.Out, "%s %s\n", nameStyle.Render(item.Name), idStyle.Render("("+item.ID+")"))
		if item.Description != "" {
			fmt.Fprintf(ctx.Out, "  %s\n", descStyle.Render(item.Description))
		}
	}
	fmt.Fprintf(ctx.Out, "\n%d of %d categories\n", len(visible), len(view.Items))
	return nil
}
