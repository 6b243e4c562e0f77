package formdef

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const shapeSchemaURL = "https://formrules.goliatone.dev/schema/form_definition.schema.json"

//go:embed schema/form_definition.schema.json
var shapeSchemaJSON []byte

var (
	shapeOnce   sync.Once
	shapeSchema *jsonschema.Schema
	shapeErr    error
)

// ShapeSchema returns the embedded JSON Schema document.
func ShapeSchema() []byte {
	return append([]byte(nil), shapeSchemaJSON...)
}

// CheckShape validates a JSON-decoded document against the form definition
// schema. Violations are returned as a *ShapeError.
func CheckShape(doc any) error {
	schema, err := compiledShape()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &ShapeError{Issues: collectIssues(verr)}
		}
		return fmt.Errorf("formdef: shape check: %w", err)
	}
	return nil
}

func compiledShape() (*jsonschema.Schema, error) {
	shapeOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(shapeSchemaURL, bytes.NewReader(shapeSchemaJSON)); err != nil {
			shapeErr = fmt.Errorf("formdef: add shape schema: %w", err)
			return
		}
		shapeSchema, shapeErr = compiler.Compile(shapeSchemaURL)
		if shapeErr != nil {
			shapeErr = fmt.Errorf("formdef: compile shape schema: %w", shapeErr)
		}
	})
	return shapeSchema, shapeErr
}

func collectIssues(root *jsonschema.ValidationError) []ShapeIssue {
	var issues []ShapeIssue
	seen := make(map[ShapeIssue]struct{})

	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 && e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			issue := ShapeIssue{Location: location, Message: e.Message}
			if _, dup := seen[issue]; !dup {
				seen[issue] = struct{}{}
				issues = append(issues, issue)
			}
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(root)

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Location < issues[j].Location
	})
	return issues
}
