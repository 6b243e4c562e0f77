package formdef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the parsed, read-only schema of one dynamic form render.
// Construct it through Parse, Load or FromOpenAPI; the zero value is empty.
type Definition struct {
	Name      string            `json:"form_name,omitempty"`
	Version   Version           `json:"form_version,omitempty"`
	VersionID int64             `json:"form_version_id,omitempty"`
	MasterID  int64             `json:"form_master_id,omitempty"`
	Status    Status            `json:"status,omitempty"`
	Fields    []FieldDescriptor `json:"fields"`

	index      map[string]int
	dependents map[string][]string
}

// ParseOption customises Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	source   string
	strict   bool
	sanitize bool
}

// WithSourceName labels errors with the document origin.
func WithSourceName(name string) ParseOption {
	return func(cfg *parseConfig) {
		cfg.source = strings.TrimSpace(name)
	}
}

// WithShapeCheck validates the raw document against the embedded JSON Schema
// before decoding.
func WithShapeCheck() ParseOption {
	return func(cfg *parseConfig) {
		cfg.strict = true
	}
}

// WithoutSanitize keeps labels, help text and placeholders verbatim.
func WithoutSanitize() ParseOption {
	return func(cfg *parseConfig) {
		cfg.sanitize = false
	}
}

// Parse decodes a JSON or YAML form definition. A bare array is accepted as
// the field list.
func Parse(raw []byte, opts ...ParseOption) (*Definition, error) {
	cfg := parseConfig{sanitize: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	doc, err := decodeDocument(raw, cfg.source)
	if err != nil {
		return nil, err
	}
	if cfg.strict {
		if err := CheckShape(doc); err != nil {
			return nil, &DefinitionError{Source: cfg.source, Reason: "document does not match form definition schema", Err: err}
		}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, &DefinitionError{Source: cfg.source, Reason: "normalise document", Err: err}
	}

	var def Definition
	if err := json.Unmarshal(normalized, &def); err != nil {
		return nil, &DefinitionError{Source: cfg.source, Reason: "decode document", Err: err}
	}
	if err := def.build(cfg); err != nil {
		return nil, err
	}
	return &def, nil
}

// MustParse is Parse for fixtures and init-time wiring; it panics on error.
func MustParse(raw []byte, opts ...ParseOption) *Definition {
	def, err := Parse(raw, opts...)
	if err != nil {
		panic(err)
	}
	return def
}

// New builds a definition from already decoded fields.
func New(fields []FieldDescriptor) (*Definition, error) {
	def := &Definition{Fields: append([]FieldDescriptor(nil), fields...)}
	if err := def.build(parseConfig{}); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeDocument(raw []byte, source string) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &DefinitionError{Source: source, Reason: "document is empty"}
	}

	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		var yamlDoc any
		if yerr := yaml.Unmarshal(trimmed, &yamlDoc); yerr != nil {
			return nil, &DefinitionError{Source: source, Reason: "invalid JSON or YAML", Err: err}
		}
		// Round-trip through JSON so YAML scalars match JSON decoding.
		converted, cerr := json.Marshal(yamlDoc)
		if cerr != nil {
			return nil, &DefinitionError{Source: source, Reason: "invalid YAML document", Err: cerr}
		}
		doc = nil
		if err := json.Unmarshal(converted, &doc); err != nil {
			return nil, &DefinitionError{Source: source, Reason: "invalid YAML document", Err: err}
		}
	}

	var root map[string]any
	switch typed := doc.(type) {
	case []any:
		root = map[string]any{"fields": typed}
	case map[string]any:
		root = typed
	default:
		return nil, &DefinitionError{Source: source, Reason: fmt.Sprintf("expected an object or array, got %T", doc)}
	}
	dropFalseStrings(root)
	return root, nil
}

var (
	fieldTextKeys = []string{"label", "help_text", "placeholder", "widget"}
	ruleTextKeys  = []string{"regex", "regex_error_message", "error_message"}
)

// dropFalseStrings removes `false` placeholders the backend emits for unset
// text attributes.
func dropFalseStrings(root map[string]any) {
	fields, _ := root["fields"].([]any)
	for _, item := range fields {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		deleteFalse(field, fieldTextKeys)
		if rules, ok := field["validation_rules"].(map[string]any); ok {
			deleteFalse(rules, ruleTextKeys)
		}
	}
}

func deleteFalse(values map[string]any, keys []string) {
	for _, key := range keys {
		if b, ok := values[key].(bool); ok && !b {
			delete(values, key)
		}
	}
}

func (d *Definition) build(cfg parseConfig) error {
	if anySequence(d.Fields) {
		sort.SliceStable(d.Fields, func(i, j int) bool {
			return d.Fields[i].Sequence < d.Fields[j].Sequence
		})
	}

	d.index = make(map[string]int, len(d.Fields))
	d.dependents = make(map[string][]string)

	for idx := range d.Fields {
		field := &d.Fields[idx]
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return &DefinitionError{Source: cfg.source, Reason: fmt.Sprintf("field at index %d has no name", idx)}
		}
		if _, exists := d.index[field.Name]; exists {
			return &DefinitionError{Source: cfg.source, Field: field.Name, Reason: "duplicate field name"}
		}
		if field.Type == "" {
			field.Type = FieldTypeText
		}
		if !field.Type.Valid() {
			return &DefinitionError{Source: cfg.source, Field: field.Name, Reason: fmt.Sprintf("unknown field type %q", field.Type)}
		}
		if cfg.sanitize {
			field.Label = sanitizeText(field.Label)
			field.HelpText = sanitizeText(field.HelpText)
			field.Placeholder = sanitizeText(field.Placeholder)
		}
		if err := normalizeLogic(field); err != nil {
			return &DefinitionError{Source: cfg.source, Field: field.Name, Reason: err.Error()}
		}
		d.index[field.Name] = idx
	}

	for _, field := range d.Fields {
		if !field.HasConditionalLogic() {
			continue
		}
		for _, rule := range field.ConditionalLogic.Rules {
			d.addDependent(rule.SourceField, field.Name)
		}
	}
	return nil
}

func normalizeLogic(field *FieldDescriptor) error {
	logic := field.ConditionalLogic
	if logic == nil {
		return nil
	}
	if len(logic.Rules) == 0 {
		field.ConditionalLogic = nil
		return nil
	}

	switch Action(strings.ToLower(strings.TrimSpace(string(logic.Action)))) {
	case "", ActionShow:
		logic.Action = ActionShow
	case ActionHide:
		logic.Action = ActionHide
	default:
		return fmt.Errorf("unknown conditional action %q", logic.Action)
	}

	// Only an explicit AND requires every rule; anything else is OR.
	if Relation(strings.ToUpper(strings.TrimSpace(string(logic.Relation)))) == RelationAnd {
		logic.Relation = RelationAnd
	} else {
		logic.Relation = RelationOr
	}

	for idx := range logic.Rules {
		logic.Rules[idx].SourceField = strings.TrimSpace(logic.Rules[idx].SourceField)
		logic.Rules[idx].Operator = strings.TrimSpace(logic.Rules[idx].Operator)
	}
	return nil
}

func (d *Definition) addDependent(source, target string) {
	if source == "" {
		return
	}
	for _, existing := range d.dependents[source] {
		if existing == target {
			return
		}
	}
	d.dependents[source] = append(d.dependents[source], target)
}

func anySequence(fields []FieldDescriptor) bool {
	for _, field := range fields {
		if field.Sequence != 0 {
			return true
		}
	}
	return false
}

// Field returns the descriptor with the given name.
func (d *Definition) Field(name string) (FieldDescriptor, bool) {
	if d == nil {
		return FieldDescriptor{}, false
	}
	idx, ok := d.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return d.Fields[idx], true
}

// Has reports whether a field with the given name exists.
func (d *Definition) Has(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[name]
	return ok
}

// Names returns field names in definition order.
func (d *Definition) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		out = append(out, field.Name)
	}
	return out
}

// Dependents returns the fields whose conditional logic references source, in
// definition order.
func (d *Definition) Dependents(source string) []string {
	if d == nil || len(d.dependents[source]) == 0 {
		return nil
	}
	return append([]string(nil), d.dependents[source]...)
}

// MissingSources maps each field to the rule sources it references that are
// not defined in the form.
func (d *Definition) MissingSources() map[string][]string {
	if d == nil {
		return nil
	}
	out := make(map[string][]string)
	for _, field := range d.Fields {
		if !field.HasConditionalLogic() {
			continue
		}
		for _, rule := range field.ConditionalLogic.Rules {
			if !d.Has(rule.SourceField) {
				out[field.Name] = append(out[field.Name], rule.SourceField)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
