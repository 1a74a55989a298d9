package form

import (
	"time"

	"report-generator/internal/config"
	"report-generator/internal/models"
	"report-generator/internal/utils"
)

// MapDraft converts a draft to the Reports table's field map. It is pure and
// never fails; fields with an empty configured ID are left out.
func MapDraft(d models.ReportDraft, f config.FieldMap, automationEnabled bool, today time.Time) map[string]interface{} {
	fields := make(map[string]interface{})
	put := func(id string, value interface{}) {
		if id != "" {
			fields[id] = value
		}
	}

	put(f.ReportTitle, d.Title)
	put(f.DateRangeStart, utils.FormatDate(d.DateStart))
	put(f.DateRangeEnd, utils.FormatDate(d.DateEnd))
	put(f.ReportTemplate, d.Template)
	put(f.ReportPriority, d.Priority)
	put(f.OutputFormat, append([]string{}, d.OutputFormats...))
	put(f.ReportStatus, models.InitialReportStatus)
	put(f.GeneratedDate, utils.FormatDate(today))
	put(f.ConfigValidation, models.InitialConfigValidation)
	put(f.AutomationEnabled, automationEnabled)

	if d.MultiSource {
		put(f.MultiSourceEnabled, true)
		if len(d.UXCategories) > 0 {
			put(f.CategoryFilter, append([]string{}, d.UXCategories...))
		}
		if len(d.AcademyCategories) > 0 {
			put(f.AcademyCategoryFilter, append([]string{}, d.AcademyCategories...))
		}
	} else {
		put(f.DataSource, d.DataSource)
		put(f.MultiSourceEnabled, false)

		switch {
		case d.DataSource == models.DataSourceUXIssues && len(d.UXCategories) > 0:
			put(f.CategoryFilter, append([]string{}, d.UXCategories...))
		case d.DataSource == models.DataSourceBeamKnowledge && len(d.AcademyCategories) > 0:
			put(f.AcademyCategoryFilter, append([]string{}, d.AcademyCategories...))
		}
	}

	if !isBlank(d.AdvancedFilters) {
		put(f.AdvancedFilters, d.AdvancedFilters)
	}
	if !isBlank(d.Recipients) {
		put(f.ReportRecipients, d.Recipients)
	}
	return fields
}

// Snapshot returns the collected form data sent along with automation calls
func Snapshot(d models.ReportDraft) models.FormSnapshot {
	return models.FormSnapshot{
		ReportTitle:       d.Title,
		DateStart:         utils.FormatDate(d.DateStart),
		DateEnd:           utils.FormatDate(d.DateEnd),
		ReportPriority:    d.Priority,
		ReportTemplate:    d.Template,
		AdvancedFilters:   d.AdvancedFilters,
		ReportRecipients:  d.Recipients,
		MultiSource:       d.MultiSource,
		DataSource:        d.EffectiveDataSource(),
		UXCategories:      append([]string{}, d.UXCategories...),
		AcademyCategories: append([]string{}, d.AcademyCategories...),
		OutputFormats:     append([]string{}, d.OutputFormats...),
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
