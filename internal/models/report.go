package models

import "time"

// MultiSourceLabel is the data source literal recorded for multi-source drafts
const MultiSourceLabel = "Multi-Source"

// Data source literals that select a category domain
const (
	DataSourceBeamKnowledge = "Beam Knowledge"
	DataSourceUXIssues      = "UX issues"
)

// TemplateCustom reveals the advanced filter input
const TemplateCustom = "Custom"

// Initial values written with every new report record
const (
	InitialReportStatus     = "Draft"
	InitialConfigValidation = "Pending"
)

// CategoryDomain identifies one of the two remote category lists
type CategoryDomain string

const (
	CategoryDomainUX      CategoryDomain = "ux"
	CategoryDomainAcademy CategoryDomain = "academy"
)

// CategoryDomains lists the domains in display order
var CategoryDomains = []CategoryDomain{CategoryDomainUX, CategoryDomainAcademy}

// ReportDraft is the user's in-progress input before submission.
// Dates are calendar dates; the zero time means "not set".
type ReportDraft struct {
	Title             string    `json:"reportTitle"`
	DateStart         time.Time `json:"-"`
	DateEnd           time.Time `json:"-"`
	DataSource        string    `json:"dataSource"`
	MultiSource       bool      `json:"multiSource"`
	UXCategories      []string  `json:"uxCategories"`
	AcademyCategories []string  `json:"academyCategories"`
	Template          string    `json:"reportTemplate"`
	OutputFormats     []string  `json:"outputFormats"`
	AdvancedFilters   string    `json:"advancedFilters,omitempty"`
	Recipients        string    `json:"reportRecipients,omitempty"`
	Priority          string    `json:"reportPriority"`
	AutomationEnabled bool      `json:"automationEnabled"`
}

// Clone returns a deep copy safe to hand to another goroutine
func (d ReportDraft) Clone() ReportDraft {
	out := d
	out.UXCategories = append([]string(nil), d.UXCategories...)
	out.AcademyCategories = append([]string(nil), d.AcademyCategories...)
	out.OutputFormats = append([]string(nil), d.OutputFormats...)
	return out
}

// EffectiveDataSource returns the source literal recorded for the draft
func (d ReportDraft) EffectiveDataSource() string {
	if d.MultiSource {
		return MultiSourceLabel
	}
	return d.DataSource
}

// CategoriesFor returns the selected IDs of a domain
func (d ReportDraft) CategoriesFor(domain CategoryDomain) []string {
	if domain == CategoryDomainAcademy {
		return d.AcademyCategories
	}
	return d.UXCategories
}

// CategoryOption is a remote-defined tag that can be attached to a report
type CategoryOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SubmissionResult is the outcome of one create call
type SubmissionResult struct {
	RecordID string `json:"recordId,omitempty"`
	Err      error  `json:"-"`
}

// OK reports whether the submission created a record
func (r SubmissionResult) OK() bool {
	return r.Err == nil && r.RecordID != ""
}
