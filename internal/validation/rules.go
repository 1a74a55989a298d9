package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"report-generator/internal/config"
	"report-generator/internal/models"
)

// Field names used in rules and field errors
const (
	FieldTitle        = "reportTitle"
	FieldDateStart    = "dateStart"
	FieldDateEnd      = "dateEnd"
	FieldDataSource   = "dataSource"
	FieldTemplate     = "reportTemplate"
	FieldOutputFormat = "outputFormat"
)

// Rule describes the constraints on one form field
type Rule struct {
	Required    bool
	MinLength   int
	MaxLength   int
	Type        string
	AfterField  string
	Options     []string
	MinSelected int
}

// RuleSet is the static table of form rules. Build it once with NewRuleSet;
// it is never mutated afterwards.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet builds the rule table from form configuration
func NewRuleSet(cfg config.FormConfig) RuleSet {
	return RuleSet{rules: map[string]Rule{
		FieldTitle: {
			Required:  true,
			MinLength: cfg.TitleMinLength,
			MaxLength: cfg.TitleMaxLength,
		},
		FieldDateStart: {Required: true, Type: "date"},
		FieldDateEnd:   {Required: true, Type: "date", AfterField: FieldDateStart},
		FieldDataSource: {
			Required: true,
			Options:  slices.Clone(cfg.DataSources),
		},
		FieldTemplate: {
			Required: true,
			Options:  slices.Clone(cfg.Templates),
		},
		FieldOutputFormat: {
			Required:    true,
			MinSelected: 1,
			Options:     slices.Clone(cfg.OutputFormats),
		},
	}}
}

// Rule returns a copy of the rule for field
func (rs RuleSet) Rule(field string) Rule {
	r := rs.rules[field]
	r.Options = slices.Clone(r.Options)
	return r
}

// Options returns the legal values of an enumerated field
func (rs RuleSet) Options(field string) []string {
	return slices.Clone(rs.rules[field].Options)
}

// ClampTitle cuts a title to the configured maximum length
func (rs RuleSet) ClampTitle(title string) string {
	max := rs.rules[FieldTitle].MaxLength
	if max <= 0 || utf8.RuneCountInString(title) <= max {
		return title
	}
	return string([]rune(title)[:max])
}

// ValidateStep returns the field errors of one wizard step. An empty result
// means the step is valid.
func (rs RuleSet) ValidateStep(step models.Step, d models.ReportDraft) []FieldError {
	switch step {
	case models.StepBasicInfo:
		return rs.validateBasicInfo(d)
	case models.StepSourceCategories:
		return rs.validateSource(d)
	case models.StepTemplateOutput:
		return rs.validateTemplateOutput(d)
	default:
		return nil
	}
}

// StepValid reports whether ValidateStep finds no errors
func (rs RuleSet) StepValid(step models.Step, d models.ReportDraft) bool {
	return len(rs.ValidateStep(step, d)) == 0
}

func (rs RuleSet) validateBasicInfo(d models.ReportDraft) []FieldError {
	var errs []FieldError

	title := rs.rules[FieldTitle]
	if n := utf8.RuneCountInString(strings.TrimSpace(d.Title)); n < title.MinLength {
		errs = append(errs, FieldError{
			Field:   FieldTitle,
			Message: fmt.Sprintf("title must be at least %d characters", title.MinLength),
		})
	}

	if d.DateStart.IsZero() {
		errs = append(errs, FieldError{Field: FieldDateStart, Message: "start date is required"})
	}
	if d.DateEnd.IsZero() {
		errs = append(errs, FieldError{Field: FieldDateEnd, Message: "end date is required"})
	}
	if !d.DateStart.IsZero() && !d.DateEnd.IsZero() && !d.DateStart.Before(d.DateEnd) {
		errs = append(errs, FieldError{Field: FieldDateEnd, Message: ErrDateOrder.Error()})
	}
	return errs
}

func (rs RuleSet) validateSource(d models.ReportDraft) []FieldError {
	if d.MultiSource {
		return nil
	}
	if d.DataSource == "" {
		return []FieldError{{Field: FieldDataSource, Message: "select a data source or enable multi-source"}}
	}
	if !slices.Contains(rs.rules[FieldDataSource].Options, d.DataSource) {
		return []FieldError{{Field: FieldDataSource, Message: fmt.Sprintf("unknown data source %q", d.DataSource)}}
	}
	return nil
}

func (rs RuleSet) validateTemplateOutput(d models.ReportDraft) []FieldError {
	var errs []FieldError

	template := rs.rules[FieldTemplate]
	switch {
	case d.Template == "":
		errs = append(errs, FieldError{Field: FieldTemplate, Message: "choose a report template"})
	case !slices.Contains(template.Options, d.Template):
		errs = append(errs, FieldError{Field: FieldTemplate, Message: fmt.Sprintf("unknown template %q", d.Template)})
	}

	output := rs.rules[FieldOutputFormat]
	if len(d.OutputFormats) < output.MinSelected {
		errs = append(errs, FieldError{
			Field:   FieldOutputFormat,
			Message: fmt.Sprintf("select at least %d output format", output.MinSelected),
		})
	}
	for _, f := range d.OutputFormats {
		if !slices.Contains(output.Options, f) {
			errs = append(errs, FieldError{Field: FieldOutputFormat, Message: fmt.Sprintf("unknown output format %q", f)})
		}
	}
	return errs
}
