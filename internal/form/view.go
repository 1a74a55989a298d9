package form

import (
	"time"

	"report-generator/internal/models"
	"report-generator/internal/validation"
)

// MessageLevel is the severity of a user-facing message
type MessageLevel string

const (
	LevelSuccess MessageLevel = "success"
	LevelError   MessageLevel = "error"
	LevelWarning MessageLevel = "warning"
	LevelInfo    MessageLevel = "info"
)

// Message is a transient notice. The renderer removes it after TTL.
type Message struct {
	Level MessageLevel
	Text  string
	TTL   time.Duration
}

// Navigation is which wizard controls are shown and enabled
type Navigation struct {
	PreviousVisible bool
	NextVisible     bool
	NextEnabled     bool
	SubmitVisible   bool
	SubmitEnabled   bool
}

// Visibility is which optional input groups are shown
type Visibility struct {
	SingleSource         bool
	SingleSourceRequired bool
	UXCategories         bool
	AcademyCategories    bool
	AdvancedFilters      bool
	Schedule             bool
}

// State is everything a renderer needs after a change
type State struct {
	Step       models.Step
	Draft      models.ReportDraft
	Valid      bool
	Errors     []validation.FieldError
	Navigation Navigation
	Visibility Visibility
	Catalogs   map[models.CategoryDomain]CatalogView
	Submitting bool
}

// View is the only rendering dependency of the controller. Render and
// ShowMessage run with the controller lock held and must not call back into it.
type View interface {
	Render(State)
	ShowMessage(Message)
	SetLoading(bool)
}

// NopView discards everything; used by headless callers
type NopView struct{}

func (NopView) Render(State)        {}
func (NopView) ShowMessage(Message) {}
func (NopView) SetLoading(bool)     {}
