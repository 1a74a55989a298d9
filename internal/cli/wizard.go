package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"

	"report-generator/internal/automation"
	"report-generator/internal/form"
	"report-generator/internal/logger"
	"report-generator/internal/models"
	"report-generator/internal/utils"
	"report-generator/internal/validation"
)

const (
	actionNext   = "next"
	actionBack   = "back"
	actionSubmit = "submit"
	actionQuit   = "quit"
)

// WizardCmd runs the interactive report form
type WizardCmd struct{}

func (cmd *WizardCmd) Run(ctx *Context) error {
	gw, err := ctx.Gateway()
	if err != nil {
		return err
	}

	view := NewTerminalView(ctx.Out)
	ctrl := form.NewController(ctx.Config, gw, automation.New(ctx.Config.Automation), view)

	bg := context.Background()
	var initErr error
	if err := spinner.New().
		Title("Loading categories...").
		Action(func() { initErr = ctrl.Init(bg) }).
		Run(); err != nil {
		return err
	}
	if initErr != nil {
		logger.Debug("Category load finished with errors", "error", initErr)
	}

	for {
		fmt.Fprintln(ctx.Out, StepHeader(view.State()))

		var action string
		switch ctrl.Step() {
		case models.StepBasicInfo:
			action, err = runBasicInfo(ctrl)
		case models.StepSourceCategories:
			action, err = runSourceCategories(ctrl)
		case models.StepTemplateOutput:
			action, err = runTemplateOutput(ctrl)
		case models.StepSubmitted:
			again, err := askAnother()
			if err != nil || !again {
				return err
			}
			if err := ctrl.Reset(); err != nil {
				return err
			}
			continue
		}
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch action {
		case actionQuit:
			return nil
		case actionBack:
			if err := ctrl.Previous(); err != nil {
				return err
			}
		case actionNext:
			if err := ctrl.Next(); err != nil {
				printFieldErrors(ctx, err)
			}
		case actionSubmit:
			var (
				result models.SubmissionResult
				subErr error
			)
			if err := spinner.New().
				Title("Creating report...").
				Action(func() { result, subErr = ctrl.Submit(bg) }).
				Run(); err != nil {
				return err
			}
			if subErr != nil {
				printFieldErrors(ctx, subErr)
				continue
			}
			fmt.Fprintf(ctx.Out, "  Record ID: %s\n", result.RecordID)
		}
	}
}

func printFieldErrors(ctx *Context, err error) {
	var verr *validation.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for _, f := range verr.Fields {
		fmt.Fprintln(ctx.Out, errorStyle.Render("  • "+f.Message))
	}
}

func navOptions(step models.Step) []huh.Option[string] {
	var opts []huh.Option[string]
	if step == models.LastInputStep {
		opts = append(opts, huh.NewOption("Submit report", actionSubmit))
	} else {
		opts = append(opts, huh.NewOption("Next", actionNext))
	}
	if step > models.StepBasicInfo {
		opts = append(opts, huh.NewOption("Back", actionBack))
	}
	return append(opts, huh.NewOption("Quit", actionQuit))
}

func dateInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		Placeholder(utils.DateLayout).
		Value(value).
		Validate(func(s string) error {
			_, err := utils.ParseDate(s)
			return err
		})
}

func runBasicInfo(ctrl *form.Controller) (string, error) {
	d := ctrl.Draft()
	title := d.Title
	start := utils.FormatDate(d.DateStart)
	end := utils.FormatDate(d.DateEnd)
	action := actionNext

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Report Title").
				CharLimit(100).
				Value(&title),
			dateInput("Start Date", &start),
			dateInput("End Date", &end),
			huh.NewSelect[string]().
				Options(navOptions(models.StepBasicInfo)...).
				Value(&action),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return "", err
	}

	if err := applyBasicInfo(ctrl, title, start, end); err != nil {
		return "", err
	}
	return action, nil
}

// applyBasicInfo pushes the step one answers into the controller
func applyBasicInfo(ctrl *form.Controller, title, start, end string) error {
	startDate, err := utils.ParseDate(start)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	endDate, err := utils.ParseDate(end)
	if err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	return errors.Join(
		ctrl.SetTitle(title),
		ctrl.SetDateStart(startDate),
		ctrl.SetDateEnd(endDate),
	)
}

func runSourceCategories(ctrl *form.Controller) (string, error) {
	d := ctrl.Draft()
	multi := d.MultiSource
	source := d.DataSource

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use all data sources?").
				Value(&multi),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Data Source").
				Options(huh.NewOptions(ctrl.Options(validation.FieldDataSource)...)...).
				Value(&source),
		).WithHideFunc(func() bool { return multi }),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return "", err
	}
	if err := ctrl.SetMultiSource(multi); err != nil {
		return "", err
	}
	if !multi {
		if err := ctrl.SetDataSource(source); err != nil {
			return "", err
		}
	}

	vis := ctrl.State().Visibility
	if vis.UXCategories {
		if err := pickCategories(ctrl, models.CategoryDomainUX, "UX Categories"); err != nil {
			return "", err
		}
	}
	if vis.AcademyCategories {
		if err := pickCategories(ctrl, models.CategoryDomainAcademy, "Academy Categories"); err != nil {
			return "", err
		}
	}

	action := actionNext
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Options(navOptions(models.StepSourceCategories)...).
				Value(&action),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	return action, err
}

func pickCategories(ctrl *form.Controller, domain models.CategoryDomain, title string) error {
	view := ctrl.Categories(domain)
	if !view.Loaded || len(view.Items) == 0 {
		return nil
	}

	term := view.Term
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title + ": search").
				Description("Leave empty to show all").
				Value(&term),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return err
	}
	if err := ctrl.FilterCategories(domain, term); err != nil {
		return err
	}

	view = ctrl.Categories(domain)
	var options []huh.Option[string]
	var chosen []string
	for _, item := range view.Items {
		if !item.Visible {
			continue
		}
		label := item.Name
		if item.Description != "" {
			label += " - " + item.Description
		}
		options = append(options, huh.NewOption(label, item.ID).Selected(item.Selected))
		if item.Selected {
			chosen = append(chosen, item.ID)
		}
	}
	if len(options) == 0 {
		return nil
	}

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(fmt.Sprintf("%s %s", title, view.CountLabel)).
				Options(options...).
				Value(&chosen),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return err
	}
	return applySelection(ctrl, domain, chosen)
}

// applySelection toggles the visible categories whose state differs from
// chosen. Hidden selections are kept.
func applySelection(ctrl *form.Controller, domain models.CategoryDomain, chosen []string) error {
	want := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		want[id] = true
	}
	for _, item := range ctrl.Categories(domain).Items {
		if item.Visible && item.Selected != want[item.ID] {
			if err := ctrl.ToggleCategory(domain, item.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func runTemplateOutput(ctrl *form.Controller) (string, error) {
	d := ctrl.Draft()
	template := d.Template
	formats := d.OutputFormats
	filters := d.AdvancedFilters
	preset := ""
	recipients := d.Recipients
	priority := d.Priority
	automate := d.AutomationEnabled
	action := actionSubmit

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Report Template").
				Options(huh.NewOptions(ctrl.Options(validation.FieldTemplate)...)...).
				Value(&template),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Filter Preset").
				Options(presetOptions(ctrl)...).
				Value(&preset),
			huh.NewText().
				Title("Advanced Filters").
				Description("Replaced by the preset when one is chosen").
				Value(&filters),
		).WithHideFunc(func() bool { return template != models.TemplateCustom }),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Output Format").
				Options(huh.NewOptions(ctrl.Options(validation.FieldOutputFormat)...)...).
				Value(&formats),
			huh.NewSelect[string]().
				Title("Priority").
				Options(huh.NewOptions(ctrl.Priorities()...)...).
				Value(&priority),
			huh.NewInput().
				Title("Recipients").
				Description("Optional, comma separated").
				Value(&recipients),
			huh.NewConfirm().
				Title("Enable automation?").
				Value(&automate),
			huh.NewSelect[string]().
				Options(navOptions(models.StepTemplateOutput)...).
				Value(&action),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return "", err
	}

	steps := []error{
		ctrl.SetTemplate(template),
		ctrl.SetAdvancedFilters(filters),
		ctrl.SetOutputFormats(formats),
		ctrl.SetPriority(priority),
		ctrl.SetRecipients(strings.TrimSpace(recipients)),
		ctrl.SetAutomationEnabled(automate),
	}
	if err := errors.Join(steps...); err != nil {
		return "", err
	}
	if preset != "" {
		if err := ctrl.ApplyFilterPreset(preset); err != nil {
			return "", err
		}
	}
	return action, nil
}

// presetOptions lists the configured filter presets after a "none" entry
func presetOptions(ctrl *form.Controller) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("None", "")}
	for _, p := range ctrl.FilterPresets() {
		options = append(options, huh.NewOption(p.Name, p.Name))
	}
	return options
}

func askAnother() (bool, error) {
	again := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Create another report?").
				Value(&again),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return again, err
}
