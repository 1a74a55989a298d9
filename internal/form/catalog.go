package form

import (
	"errors"
	"fmt"
	"strings"

	"report-generator/internal/models"
)

// ErrCatalogLoaded is returned when a catalog is loaded a second time
var ErrCatalogLoaded = errors.New("category catalog already loaded")

// Catalog is the session cache of one category domain: the fetched options,
// the live search term and the current selection. Options are written once.
type Catalog struct {
	domain   models.CategoryDomain
	options  []models.CategoryOption
	loaded   bool
	term     string
	selected map[string]bool
}

// NewCatalog creates an empty catalog for domain
func NewCatalog(domain models.CategoryDomain) *Catalog {
	return &Catalog{
		domain:   domain,
		selected: make(map[string]bool),
	}
}

// Load stores the fetched options. A catalog is loaded at most once.
func (c *Catalog) Load(options []models.CategoryOption) error {
	if c.loaded {
		return ErrCatalogLoaded
	}
	c.options = append([]models.CategoryOption(nil), options...)
	c.loaded = true
	return nil
}

// Loaded reports whether the options were fetched
func (c *Catalog) Loaded() bool { return c.loaded }

// All returns every fetched option regardless of the filter
func (c *Catalog) All() []models.CategoryOption {
	return append([]models.CategoryOption(nil), c.options...)
}

// Filter sets the live search term. An empty term shows everything.
func (c *Catalog) Filter(term string) {
	c.term = term
}

// Term returns the current search term
func (c *Catalog) Term() string { return c.term }

func (c *Catalog) matches(opt models.CategoryOption) bool {
	if c.term == "" {
		return true
	}
	text := strings.ToLower(opt.Name + " " + opt.Description)
	return strings.Contains(text, strings.ToLower(c.term))
}

// Visible returns the options matching the search term, in fetched order
func (c *Catalog) Visible() []models.CategoryOption {
	out := make([]models.CategoryOption, 0, len(c.options))
	for _, opt := range c.options {
		if c.matches(opt) {
			out = append(out, opt)
		}
	}
	return out
}

func (c *Catalog) has(id string) bool {
	for _, opt := range c.options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Toggle flips the selection of id and returns the new state
func (c *Catalog) Toggle(id string) (bool, error) {
	if !c.has(id) {
		return false, fmt.Errorf("unknown %s category %q", c.domain, id)
	}
	c.selected[id] = !c.selected[id]
	if !c.selected[id] {
		delete(c.selected, id)
	}
	return c.selected[id], nil
}

// SelectAllVisible selects every option the current filter shows
func (c *Catalog) SelectAllVisible() {
	for _, opt := range c.Visible() {
		c.selected[opt.ID] = true
	}
}

// SelectNone clears the selection, hidden options included
func (c *Catalog) SelectNone() {
	c.selected = make(map[string]bool)
}

// Reset clears the selection and the search term but keeps the options
func (c *Catalog) Reset() {
	c.SelectNone()
	c.term = ""
}

// Selected returns the selected IDs in fetched order
func (c *Catalog) Selected() []string {
	out := make([]string, 0, len(c.selected))
	for _, opt := range c.options {
		if c.selected[opt.ID] {
			out = append(out, opt.ID)
		}
	}
	return out
}

// Count returns the number of selected options
func (c *Catalog) Count() int { return len(c.selected) }

// CategoryItem is one option as a renderer should display it
type CategoryItem struct {
	ID          string
	Name        string
	Description string
	Visible     bool
	Selected    bool
}

// CatalogView is the render-ready state of a catalog
type CatalogView struct {
	Domain     models.CategoryDomain
	Loaded     bool
	Term       string
	Items      []CategoryItem
	Count      int
	CountLabel string
}

// View builds the render-ready state with sanitized display text
func (c *Catalog) View() CatalogView {
	items := make([]CategoryItem, 0, len(c.options))
	for _, opt := range c.options {
		items = append(items, CategoryItem{
			ID:          opt.ID,
			Name:        sanitizeText(opt.Name),
			Description: sanitizeText(opt.Description),
			Visible:     c.matches(opt),
			Selected:    c.selected[opt.ID],
		})
	}
	return CatalogView{
		Domain:     c.domain,
		Loaded:     c.loaded,
		Term:       c.term,
		Items:      items,
		Count:      c.Count(),
		CountLabel: fmt.Sprintf("(%d selected)", c.Count()),
	}
}

// VisibleCount returns how many items the view shows
func (v CatalogView) VisibleCount() int {
	n := 0
	for _, item := range v.Items {
		if item.Visible {
			n++
		}
	}
	return n
}
