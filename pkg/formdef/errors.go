package formdef

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks a definition that cannot be used to render a form. Every
// error returned by Parse and Load matches it through errors.Is.
var ErrMalformed = errors.New("formdef: malformed form definition")

// DefinitionError describes why a definition was rejected.
type DefinitionError struct {
	Source string
	Field  string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("formdef: ")
	if e.Source != "" {
		fmt.Fprintf(&b, "%s: ", e.Source)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both ErrMalformed and the underlying cause.
func (e *DefinitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// ShapeIssue is a single JSON Schema violation found by CheckShape.
type ShapeIssue struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// ShapeError aggregates schema violations.
type ShapeError struct {
	Issues []ShapeIssue
}

func (e *ShapeError) Error() string {
	if len(e.Issues) == 0 {
		return "shape check failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Location, issue.Message))
	}
	return "shape check failed:\n  - " + strings.Join(parts, "\n  - ")
}
