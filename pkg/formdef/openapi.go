package formdef

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExtensionKey is the schema extension carrying form-specific attributes
// (label, conditional_logic, validate_when_hidden, widget, sequence, ...).
const ExtensionKey = "x-dfr"

// FromOpenAPI derives a definition from the request body of an OpenAPI
// operation. Property constraints map onto validation rules; the x-dfr
// extension supplies everything JSON Schema cannot express.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string, opts ...ParseOption) (*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx

	api, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, &DefinitionError{Reason: "load OpenAPI document", Err: err}
	}

	op := findOperation(api, operationID)
	if op == nil {
		return nil, &DefinitionError{Reason: fmt.Sprintf("operation %q not found", operationID)}
	}
	body := requestSchema(op)
	if body == nil {
		return nil, &DefinitionError{Reason: fmt.Sprintf("operation %q has no request body schema", operationID)}
	}

	doc := map[string]any{
		"form_name": firstNonEmpty(op.Summary, op.OperationID, operationID),
		"fields":    openapiFields(body),
	}
	if ext, ok := op.Extensions[ExtensionKey].(map[string]any); ok {
		for _, key := range []string{"form_version", "form_version_id", "form_master_id", "status"} {
			if value, exists := ext[key]; exists {
				doc[key] = value
			}
		}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, &DefinitionError{Reason: "encode derived definition", Err: err}
	}
	return Parse(payload, append([]ParseOption{WithSourceName("openapi:" + operationID)}, opts...)...)
}

func findOperation(api *openapi3.T, operationID string) *openapi3.Operation {
	if api == nil || api.Paths == nil {
		return nil
	}
	paths := api.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			if id == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type openapiProperty struct {
	name     string
	sequence int
	schema   *openapi3.Schema
}

func openapiFields(body *openapi3.Schema) []any {
	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	props := make([]openapiProperty, 0, len(body.Properties))
	for name, ref := range body.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		seq := 0
		if ext, ok := ref.Value.Extensions[ExtensionKey].(map[string]any); ok {
			if n, ok := ext["sequence"].(float64); ok {
				seq = int(n)
			}
		}
		props = append(props, openapiProperty{name: name, sequence: seq, schema: ref.Value})
	}
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].sequence != props[j].sequence {
			return props[i].sequence < props[j].sequence
		}
		return props[i].name < props[j].name
	})

	fields := make([]any, 0, len(props))
	for idx, prop := range props {
		fields = append(fields, openapiField(prop, idx+1, required[prop.name]))
	}
	return fields
}

func openapiField(prop openapiProperty, sequence int, required bool) map[string]any {
	src := prop.schema
	field := map[string]any{
		"name":        prop.name,
		"label":       firstNonEmpty(src.Title, prop.name),
		"type":        string(openapiFieldType(src)),
		"sequence":    sequence,
		"is_required": required,
	}
	if src.Description != "" {
		field["help_text"] = src.Description
	}
	if src.Default != nil {
		field["default_value"] = src.Default
	}
	if options := openapiOptions(src); len(options) > 0 {
		field["selection_options"] = options
	}

	rules := map[string]any{}
	if src.Pattern != "" {
		rules["regex"] = src.Pattern
	}
	if src.MinLength > 0 {
		rules["min_length"] = src.MinLength
	}
	if src.MaxLength != nil {
		rules["max_length"] = *src.MaxLength
	}
	if src.Min != nil {
		rules["min_value"] = *src.Min
	}
	if src.Max != nil {
		rules["max_value"] = *src.Max
	}

	if ext, ok := src.Extensions[ExtensionKey].(map[string]any); ok {
		for key, value := range ext {
			switch key {
			case "sequence":
			case "regex_error_message", "error_message":
				rules[key] = value
			default:
				field[key] = value
			}
		}
	}
	if len(rules) > 0 {
		field["validation_rules"] = rules
	}
	return field
}

func openapiFieldType(src *openapi3.Schema) FieldType {
	switch {
	case src.Type == nil:
		return FieldTypeText
	case src.Type.Is("boolean"):
		return FieldTypeBoolean
	case src.Type.Is("number"), src.Type.Is("integer"):
		return FieldTypeNumber
	case src.Type.Is("array"):
		return FieldTypeMultiSelection
	case src.Type.Is("object"):
		if _, ok := src.Properties["latitude"]; ok {
			return FieldTypeGPSPoint
		}
		return FieldTypeText
	}

	if len(src.Enum) > 0 {
		return FieldTypeSelection
	}
	switch strings.ToLower(src.Format) {
	case "date":
		return FieldTypeDate
	case "date-time":
		return FieldTypeDatetime
	case "binary", "byte":
		return FieldTypeImage
	}
	if src.ReadOnly {
		return FieldTypeComputedText
	}
	return FieldTypeText
}

func openapiOptions(src *openapi3.Schema) []any {
	enum := src.Enum
	if len(enum) == 0 && src.Items != nil && src.Items.Value != nil {
		enum = src.Items.Value.Enum
	}
	if len(enum) == 0 {
		return nil
	}
	out := make([]any, 0, len(enum))
	for _, value := range enum {
		str := fmt.Sprint(value)
		out = append(out, []any{str, str})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
