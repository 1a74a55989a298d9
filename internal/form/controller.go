package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"report-generator/internal/automation"
	"report-generator/internal/config"
	"report-generator/internal/gateway"
	"report-generator/internal/logger"
	"report-generator/internal/models"
	"report-generator/internal/utils"
	"report-generator/internal/validation"
)

// User-visible message texts
const (
	MsgDateOrder       = "End date must be after start date"
	MsgInvalidSubmit   = "Please fill in all required fields correctly"
	MsgSubmitSuccess   = "Report created successfully! Your report is being processed."
	MsgSubmitFailedFmt = "Error creating report: %s"
	MsgCategoriesFmt   = "Error loading %s categories. Some features may not work properly."
)

var (
	// ErrSubmitInFlight is returned when Submit or Reset is called while a
	// create call is still pending
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrNotOnFinalStep is returned when Submit is called before the last step
	ErrNotOnFinalStep = errors.New("submit is only available on the last step")
	// ErrAlreadySubmitted is returned for any edit after a successful submit
	ErrAlreadySubmitted = errors.New("report already submitted; reset the form to start over")

	ErrNoNextStep     = errors.New("no next step")
	ErrNoPreviousStep = errors.New("no previous step")
	// ErrUnknownPreset is returned by ApplyFilterPreset for a name that is
	// not configured
	ErrUnknownPreset = errors.New("unknown filter preset")
)

// Gateway is the part of the API client the controller needs
type Gateway interface {
	ListCategories(ctx context.Context, tableID string, limit int, fields config.CategoryFieldsConfig) ([]models.CategoryOption, error)
	Create(ctx context.Context, tableID string, fields map[string]interface{}, opts ...gateway.CreateOption) (string, error)
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces the wall clock used for default dates and the
// generated date
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithKeyGenerator replaces the idempotency key source
func WithKeyGenerator(gen func() string) Option {
	return func(c *Controller) { c.newKey = gen }
}

// Controller owns the wizard state. All methods are safe for concurrent use;
// they are serialized by one mutex.
type Controller struct {
	cfg      config.Config
	rules    validation.RuleSet
	gateway  Gateway
	notifier automation.Notifier
	view     View
	now      func() time.Time
	newKey   func() string

	mu         sync.Mutex
	step       models.Step
	draft      models.ReportDraft
	catalogs   map[models.CategoryDomain]*Catalog
	submitting bool
	key        string
	result     *models.SubmissionResult
}

// NewController builds a controller in Step1 with default values
func NewController(cfg config.Config, gw Gateway, notifier automation.Notifier, view View, opts ...Option) *Controller {
	if notifier == nil {
		notifier = automation.Disabled{}
	}
	if view == nil {
		view = NopView{}
	}
	c := &Controller{
		cfg:      cfg,
		rules:    validation.NewRuleSet(cfg.Form),
		gateway:  gw,
		notifier: notifier,
		view:     view,
		now:      time.Now,
		newKey:   uuid.NewString,
		catalogs: make(map[models.CategoryDomain]*Catalog, len(models.CategoryDomains)),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, domain := range models.CategoryDomains {
		c.catalogs[domain] = NewCatalog(domain)
	}
	c.resetLocked()
	return c
}

func (c *Controller) defaultDraft() models.ReportDraft {
	start, end := utils.DefaultDateRange(c.now(), c.cfg.Form.DefaultRangeDays)
	return models.ReportDraft{
		DateStart: start,
		DateEnd:   end,
		Priority:  c.cfg.Form.DefaultPriority,
	}
}

func (c *Controller) resetLocked() {
	c.step = models.StepBasicInfo
	c.draft = c.defaultDraft()
	for _, cat := range c.catalogs {
		cat.Reset()
	}
	c.key = c.newKey()
	c.result = nil
}

// Init loads both category lists concurrently and renders Step1. A failed
// load only produces a warning; the returned error joins all load failures.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	c.renderLocked()
	c.mu.Unlock()

	tables := map[models.CategoryDomain]string{
		models.CategoryDomainUX:      c.cfg.Airtable.Tables.UXCategories,
		models.CategoryDomainAcademy: c.cfg.Airtable.Tables.AcademyCategories,
	}

	// errs is guarded by c.mu
	var (
		wg   sync.WaitGroup
		errs []error
	)
	for _, domain := range models.CategoryDomains {
		wg.Add(1)
		go func(domain models.CategoryDomain) {
			defer wg.Done()
			options, err := c.gateway.ListCategories(ctx, tables[domain], c.cfg.Form.CategoryLimit, c.cfg.Airtable.CategoryFields)

			c.mu.Lock()
			defer c.mu.Unlock()
			if err != nil {
				logger.Warn("Error loading categories", "domain", domain, "error", err)
				c.messageLocked(LevelWarning, fmt.Sprintf(MsgCategoriesFmt, domainLabel(domain)))
				errs = append(errs, fmt.Errorf("load %s categories: %w", domain, err))
				return
			}
			if err := c.catalogs[domain].Load(options); err != nil {
				logger.Debug("Ignoring category reload", "domain", domain)
				return
			}
			logger.Debug("Loaded categories", "domain", domain, "count", len(options))
			c.renderLocked()
		}(domain)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func domainLabel(domain models.CategoryDomain) string {
	if domain == models.CategoryDomainAcademy {
		return "Academy"
	}
	return "UX"
}

// Step returns the current step
func (c *Controller) Step() models.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Draft returns a copy of the current input, category selections included
func (c *Controller) Draft() models.ReportDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IdempotencyKey returns the key the next Submit will send
func (c *Controller) IdempotencyKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// LastResult returns the outcome of the most recent Submit, if any
func (c *Controller) LastResult() (models.SubmissionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return models.SubmissionResult{}, false
	}
	return *c.result, true
}

// State returns what the view was last told
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Options returns the legal values of an enumerated field
func (c *Controller) Options(field string) []string {
	return c.rules.Options(field)
}

// Priorities returns the configured priority values
func (c *Controller) Priorities() []string {
	return slices.Clone(c.cfg.Form.Priorities)
}

func (c *Controller) snapshotLocked() models.ReportDraft {
	d := c.draft.Clone()
	d.UXCategories = c.catalogs[models.CategoryDomainUX].Selected()
	d.AcademyCategories = c.catalogs[models.CategoryDomainAcademy].Selected()
	return d
}

func (c *Controller) validLocked() bool {
	if c.step == models.StepSubmitted {
		return false
	}
	return c.rules.StepValid(c.step, c.snapshotLocked())
}

func (c *Controller) stateLocked() State {
	d := c.snapshotLocked()
	valid := c.validLocked()
	catalogs := make(map[models.CategoryDomain]CatalogView, len(c.catalogs))
	for domain, cat := range c.catalogs {
		catalogs[domain] = cat.View()
	}
	return State{
		Step:   c.step,
		Draft:  d,
		Valid:  valid,
		Errors: c.rules.ValidateStep(c.step, d),
		Navigation: Navigation{
			PreviousVisible: c.step > models.StepBasicInfo && c.step <= models.LastInputStep,
			NextVisible:     c.step < models.LastInputStep,
			NextEnabled:     c.step < models.LastInputStep && valid,
			SubmitVisible:   c.step == models.LastInputStep,
			SubmitEnabled:   c.step == models.LastInputStep && valid && !c.submitting,
		},
		Visibility: Visibility{
			SingleSource:         !d.MultiSource,
			SingleSourceRequired: !d.MultiSource,
			UXCategories:         d.MultiSource || d.DataSource == models.DataSourceUXIssues,
			AcademyCategories:    d.MultiSource || d.DataSource == models.DataSourceBeamKnowledge,
			AdvancedFilters:      d.Template == models.TemplateCustom,
			Schedule:             d.AutomationEnabled,
		},
		Catalogs:   catalogs,
		Submitting: c.submitting,
	}
}

func (c *Controller) renderLocked() {
	c.view.Render(c.stateLocked())
}

func (c *Controller) messageLocked(level MessageLevel, text string) {
	c.view.ShowMessage(Message{Level: level, Text: text, TTL: c.cfg.Form.MessageTTL})
}

// edit applies fn to the draft and re-renders. Edits are refused once the
// report was submitted or while a submission is pending.
func (c *Controller) edit(fn func(d *models.ReportDraft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == models.StepSubmitted {
		return ErrAlreadySubmitted
	}
	if c.submitting {
		return ErrSubmitInFlight
	}
	if err := fn(&c.draft); err != nil {
		return err
	}
	c.renderLocked()
	return nil
}

func (c *Controller) checkOption(field, value string) error {
	if value == "" || slices.Contains(c.rules.Options(field), value) {
		return nil
	}
	return &validation.ValidationError{
		Step:   c.step,
		Fields: []validation.FieldError{{Field: field, Message: fmt.Sprintf("unknown value %q", value)}},
	}
}

// SetTitle sets the report title, cut to the maximum length
func (c *Controller) SetTitle(title string) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.Title = c.rules.ClampTitle(title)
		return nil
	})
}

// SetDateStart sets the first day of the report range
func (c *Controller) SetDateStart(day time.Time) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.DateStart = utils.TruncateToDate(day)
		c.checkDateOrderLocked(*d)
		return nil
	})
}

// SetDateEnd sets the last day of the report range
func (c *Controller) SetDateEnd(day time.Time) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.DateEnd = utils.TruncateToDate(day)
		c.checkDateOrderLocked(*d)
		return nil
	})
}

func (c *Controller) checkDateOrderLocked(d models.ReportDraft) {
	if d.DateStart.IsZero() || d.DateEnd.IsZero() {
		return
	}
	if !d.DateStart.Before(d.DateEnd) {
		c.messageLocked(LevelError, MsgDateOrder)
	}
}

// SetMultiSource switches between one data source and all of them
func (c *Controller) SetMultiSource(on bool) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.MultiSource = on
		return nil
	})
}

// SetDataSource selects the single data source; "" clears it
func (c *Controller) SetDataSource(source string) error {
	return c.edit(func(d *models.ReportDraft) error {
		if err := c.checkOption(validation.FieldDataSource, source); err != nil {
			return err
		}
		d.DataSource = source
		return nil
	})
}

// SetTemplate selects the report template. Leaving Custom hides the advanced
// filters but keeps their text.
func (c *Controller) SetTemplate(template string) error {
	return c.edit(func(d *models.ReportDraft) error {
		if err := c.checkOption(validation.FieldTemplate, template); err != nil {
			return err
		}
		d.Template = template
		return nil
	})
}

// ToggleOutputFormat checks or unchecks one output format
func (c *Controller) ToggleOutputFormat(format string) error {
	return c.edit(func(d *models.ReportDraft) error {
		if format == "" {
			return fmt.Errorf("empty output format")
		}
		if err := c.checkOption(validation.FieldOutputFormat, format); err != nil {
			return err
		}
		if i := slices.Index(d.OutputFormats, format); i >= 0 {
			d.OutputFormats = slices.Delete(d.OutputFormats, i, i+1)
			return nil
		}
		d.OutputFormats = c.orderFormats(append(d.OutputFormats, format))
		return nil
	})
}

// SetOutputFormats replaces the checked output formats
func (c *Controller) SetOutputFormats(formats []string) error {
	return c.edit(func(d *models.ReportDraft) error {
		seen := make(map[string]bool, len(formats))
		out := make([]string, 0, len(formats))
		for _, f := range formats {
			if f == "" {
				continue
			}
			if err := c.checkOption(validation.FieldOutputFormat, f); err != nil {
				return err
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
		d.OutputFormats = c.orderFormats(out)
		return nil
	})
}

// orderFormats keeps checked formats in configured order
func (c *Controller) orderFormats(formats []string) []string {
	order := c.rules.Options(validation.FieldOutputFormat)
	slices.SortStableFunc(formats, func(a, b string) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
	return formats
}

// SetAdvancedFilters stores the free-text filter shown for the Custom template
func (c *Controller) SetAdvancedFilters(text string) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.AdvancedFilters = text
		return nil
	})
}

// SetRecipients stores the optional recipient list
func (c *Controller) SetRecipients(text string) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.Recipients = text
		return nil
	})
}

// FilterPresets returns the configured advanced-filter presets
func (c *Controller) FilterPresets() []config.FilterPreset {
	return slices.Clone(c.cfg.Form.FilterPresets)
}

// ApplyFilterPreset replaces the advanced filters with the named preset,
// pretty-printed with two-space indentation
func (c *Controller) ApplyFilterPreset(name string) error {
	idx := slices.IndexFunc(c.cfg.Form.FilterPresets, func(p config.FilterPreset) bool { return p.Name == name })
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(c.cfg.Form.FilterPresets[idx].Filter), &doc); err != nil {
		return fmt.Errorf("filter preset %q: %w", name, err)
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filter preset %q: %w", name, err)
	}
	return c.SetAdvancedFilters(string(pretty))
}

// SetPriority sets the report priority; "" restores the default
func (c *Controller) SetPriority(priority string) error {
	return c.edit(func(d *models.ReportDraft) error {
		if priority == "" {
			d.Priority = c.cfg.Form.DefaultPriority
			return nil
		}
		if !slices.Contains(c.cfg.Form.Priorities, priority) {
			return fmt.Errorf("unknown priority %q", priority)
		}
		d.Priority = priority
		return nil
	})
}

// SetAutomationEnabled shows or hides the schedule options
func (c *Controller) SetAutomationEnabled(on bool) error {
	return c.edit(func(d *models.ReportDraft) error {
		d.AutomationEnabled = on
		return nil
	})
}

// ToggleCategory flips one category in the selection of its domain
func (c *Controller) ToggleCategory(domain models.CategoryDomain, id string) error {
	return c.edit(func(*models.ReportDraft) error {
		cat, err := c.catalogLocked(domain)
		if err != nil {
			return err
		}
		_, err = cat.Toggle(id)
		return err
	})
}

// FilterCategories sets the live search term of a domain
func (c *Controller) FilterCategories(domain models.CategoryDomain, term string) error {
	return c.edit(func(*models.ReportDraft) error {
		cat, err := c.catalogLocked(domain)
		if err != nil {
			return err
		}
		cat.Filter(term)
		return nil
	})
}

// SelectAllCategories selects every category the current filter shows
func (c *Controller) SelectAllCategories(domain models.CategoryDomain) error {
	return c.edit(func(*models.ReportDraft) error {
		cat, err := c.catalogLocked(domain)
		if err != nil {
			return err
		}
		cat.SelectAllVisible()
		return nil
	})
}

// SelectNoCategories clears the selection of a domain
func (c *Controller) SelectNoCategories(domain models.CategoryDomain) error {
	return c.edit(func(*models.ReportDraft) error {
		cat, err := c.catalogLocked(domain)
		if err != nil {
			return err
		}
		cat.SelectNone()
		return nil
	})
}

// CategoryCount returns the number of selected categories of a domain
func (c *Controller) CategoryCount(domain models.CategoryDomain) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cat, ok := c.catalogs[domain]; ok {
		return cat.Count()
	}
	return 0
}

// Categories returns the render-ready catalog of a domain
func (c *Controller) Categories(domain models.CategoryDomain) CatalogView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cat, ok := c.catalogs[domain]; ok {
		return cat.View()
	}
	return CatalogView{Domain: domain}
}

func (c *Controller) catalogLocked(domain models.CategoryDomain) (*Catalog, error) {
	cat, ok := c.catalogs[domain]
	if !ok {
		return nil, fmt.Errorf("unknown category domain %q", domain)
	}
	return cat, nil
}

// Valid reports whether the current step passes validation
func (c *Controller) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked()
}

// StepErrors returns the field errors of the current step
func (c *Controller) StepErrors() []validation.FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rules.ValidateStep(c.step, c.snapshotLocked())
}

// Next advances one step if the current step is valid
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step >= models.LastInputStep {
		return ErrNoNextStep
	}
	if errs := c.rules.ValidateStep(c.step, c.snapshotLocked()); len(errs) > 0 {
		return &validation.ValidationError{Step: c.step, Fields: errs}
	}
	c.step++
	logger.Debug("Advanced step", "step", c.step)
	c.renderLocked()
	return nil
}

// Previous goes back one step. Input is kept.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step <= models.StepBasicInfo || c.step > models.LastInputStep {
		return ErrNoPreviousStep
	}
	if c.submitting {
		return ErrSubmitInFlight
	}
	c.step--
	c.renderLocked()
	return nil
}

// Submit maps the draft and creates one record. A second call while the
// first is pending returns ErrSubmitInFlight. There is no retry; a failed
// submit leaves the form on the last step with the same idempotency key.
func (c *Controller) Submit(ctx context.Context) (models.SubmissionResult, error) {
	c.mu.Lock()
	switch {
	case c.submitting:
		c.mu.Unlock()
		return models.SubmissionResult{}, ErrSubmitInFlight
	case c.step == models.StepSubmitted:
		c.mu.Unlock()
		return models.SubmissionResult{}, ErrAlreadySubmitted
	case c.step != models.LastInputStep:
		c.mu.Unlock()
		return models.SubmissionResult{}, ErrNotOnFinalStep
	}

	draft := c.snapshotLocked()
	if errs := c.rules.ValidateStep(c.step, draft); len(errs) > 0 {
		c.messageLocked(LevelError, MsgInvalidSubmit)
		c.mu.Unlock()
		return models.SubmissionResult{}, &validation.ValidationError{Step: c.step, Fields: errs}
	}

	today := utils.TruncateToDate(c.now())
	fields := MapDraft(draft, c.cfg.Airtable.ReportFields, c.cfg.Automation.Enabled, today)
	key := c.key
	table := c.cfg.Airtable.Tables.Reports
	c.submitting = true
	c.renderLocked()
	c.mu.Unlock()

	c.view.SetLoading(true)
	recordID, err := c.gateway.Create(ctx, table, fields, gateway.WithIdempotencyKey(key))
	c.view.SetLoading(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	result := models.SubmissionResult{RecordID: recordID, Err: err}
	c.result = &result
	if err != nil {
		logger.Error("Error creating report", "error", err)
		c.messageLocked(LevelError, fmt.Sprintf(MsgSubmitFailedFmt, err.Error()))
		c.renderLocked()
		return result, err
	}

	logger.Info("Report created", "record", recordID)
	c.step = models.StepSubmitted
	c.messageLocked(LevelSuccess, MsgSubmitSuccess)
	c.renderLocked()

	if c.cfg.Automation.Enabled {
		automation.NotifyBestEffort(c.notifier, models.AutomationPayload{
			RecordID: recordID,
			Action:   models.AutomationAction,
			BaseID:   c.cfg.Airtable.BaseID,
			TableID:  table,
			FormData: Snapshot(draft),
		}, c.cfg.Automation.Timeout)
	}
	return result, nil
}

// Reset starts a new report: Step1, default values, no selections and a
// fresh idempotency key. Fetched categories are kept.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitInFlight
	}
	c.resetLocked()
	c.renderLocked()
	return nil
}
