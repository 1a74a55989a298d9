package validation

import (
	"errors"
	"fmt"
	"strings"

	"report-generator/internal/models"
)

// ErrDateOrder is reported when the end date is not after the start date
var ErrDateOrder = errors.New("end date must be after start date")

// FieldError is a validation failure of one form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError blocks a step transition. It is local and never sent to
// the remote API.
type ValidationError struct {
	Step   models.Step
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("step %d (%s) invalid: %s", int(e.Step), e.Step, strings.Join(msgs, "; "))
}

// Has reports whether field has at least one error
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
