package submission

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDefinition is returned when a request carries no form definition.
	ErrNoDefinition = errors.New("submission: form definition required")
	// ErrFarmerRequired is returned when a request names no farmer.
	ErrFarmerRequired = errors.New("submission: farmer id required")
	// ErrNotPublished is returned for definitions that are not published.
	ErrNotPublished = errors.New("submission: form version not published")
	// ErrNotFound is returned by stores for unknown submission ids.
	ErrNotFound = errors.New("submission: not found")
)

// FieldError is one rejected answer.
type FieldError struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ValidationError lists every rejected answer of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Fields)+1)
	lines = append(lines, "submission: submission contains validation errors:")
	lines = append(lines, e.Lines()...)
	return strings.Join(lines, "\n")
}

// Lines returns one "Field 'Label': message" line per rejected answer.
func (e *ValidationError) Lines() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, fmt.Sprintf("Field '%s': %s", f.Label, f.Message))
	}
	return out
}

// Messages maps field names to messages, the shape form.Session.ApplyServerErrors
// accepts.
func (e *ValidationError) Messages() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}
