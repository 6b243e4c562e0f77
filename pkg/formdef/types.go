package formdef

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldType enumerates the field kinds a dynamic form can declare.
type FieldType string

const (
	FieldTypeText           FieldType = "text"
	FieldTypeNumber         FieldType = "number"
	FieldTypeDate           FieldType = "date"
	FieldTypeDatetime       FieldType = "datetime"
	FieldTypeSelection      FieldType = "selection"
	FieldTypeMultiSelection FieldType = "multi_selection"
	FieldTypeBoolean        FieldType = "boolean"
	FieldTypeGPSPoint       FieldType = "gps_point"
	FieldTypeImage          FieldType = "image"
	FieldTypeComputedText   FieldType = "computed_text"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeDatetime,
		FieldTypeSelection, FieldTypeMultiSelection, FieldTypeBoolean,
		FieldTypeGPSPoint, FieldTypeImage, FieldTypeComputedText:
		return true
	default:
		return false
	}
}

// Action selects what happens to a field when its conditional logic matches.
type Action string

const (
	ActionShow Action = "show"
	ActionHide Action = "hide"
)

// Relation combines the rules of a conditional logic block.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// Status is the lifecycle state of a form version.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Rule is a single comparison between another field's value and a literal.
type Rule struct {
	SourceField string `json:"source_field"`
	Operator    string `json:"operator"`
	Value       any    `json:"value"`
}

// ConditionalLogic controls whether a field is shown or hidden based on the
// values of other fields.
type ConditionalLogic struct {
	Action   Action   `json:"action"`
	Relation Relation `json:"relation"`
	Rules    []Rule   `json:"rules"`
}

// legacyCondition is the list form stored by the form engine backend:
// every condition is ANDed and describes when the field is shown.
type legacyCondition struct {
	FieldName string `json:"field_name"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

var legacyOperators = map[string]string{
	"=":  "is",
	"==": "is",
	"!=": "is_not",
	">":  "greater_than",
	"<":  "less_than",
	">=": "greater_or_equal",
	"<=": "less_or_equal",
}

// UnmarshalJSON accepts both the object form used by the portal renderer and
// the backend's condition list.
func (c *ConditionalLogic) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var conditions []legacyCondition
		if err := json.Unmarshal(data, &conditions); err != nil {
			return err
		}
		out := ConditionalLogic{Action: ActionShow, Relation: RelationAnd}
		for _, cond := range conditions {
			op := strings.TrimSpace(cond.Operator)
			if mapped, ok := legacyOperators[op]; ok {
				op = mapped
			}
			out.Rules = append(out.Rules, Rule{
				SourceField: strings.TrimSpace(cond.FieldName),
				Operator:    op,
				Value:       cond.Value,
			})
		}
		*c = out
		return nil
	}

	type plain ConditionalLogic
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = ConditionalLogic(decoded)
	return nil
}

// ValidationRules holds the optional per-field validation constraints.
// Zero lengths mean "no constraint"; value bounds are pointers so an explicit
// zero is honoured.
type ValidationRules struct {
	Regex             string   `json:"regex,omitempty"`
	RegexErrorMessage string   `json:"regex_error_message,omitempty"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	MinLength         int      `json:"min_length,omitempty"`
	MaxLength         int      `json:"max_length,omitempty"`
	MinValue          *float64 `json:"min_value,omitempty"`
	MaxValue          *float64 `json:"max_value,omitempty"`
}

// Empty reports whether no constraint is configured.
func (r ValidationRules) Empty() bool {
	return r.Regex == "" && r.MinLength == 0 && r.MaxLength == 0 &&
		r.MinValue == nil && r.MaxValue == nil
}

// FieldDescriptor describes one field of a dynamic form.
type FieldDescriptor struct {
	Name               string            `json:"name"`
	Label              string            `json:"label"`
	Type               FieldType         `json:"type"`
	Sequence           int               `json:"sequence,omitempty"`
	IsRequired         bool              `json:"is_required"`
	HelpText           string            `json:"help_text,omitempty"`
	Placeholder        string            `json:"placeholder,omitempty"`
	Widget             string            `json:"widget,omitempty"`
	DefaultValue       any               `json:"default_value,omitempty"`
	SelectionOptions   Options           `json:"selection_options,omitempty"`
	ValidationRules    *ValidationRules  `json:"validation_rules,omitempty"`
	ConditionalLogic   *ConditionalLogic `json:"conditional_logic,omitempty"`
	ValidateWhenHidden bool              `json:"validate_when_hidden"`
}

// UnmarshalJSON also understands the backend attribute names (`field_type`,
// `is_required_form_level`, `validation_rules.required`).
func (f *FieldDescriptor) UnmarshalJSON(data []byte) error {
	type plain FieldDescriptor
	var base plain
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var aux struct {
		FieldType     FieldType `json:"field_type"`
		RequiredLevel bool      `json:"is_required_form_level"`
		Rules         *struct {
			Required bool `json:"required"`
		} `json:"validation_rules"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	out := FieldDescriptor(base)
	if out.Type == "" {
		out.Type = aux.FieldType
	}
	if aux.RequiredLevel || (aux.Rules != nil && aux.Rules.Required) {
		out.IsRequired = true
	}
	*f = out
	return nil
}

// HasConditionalLogic reports whether the field carries at least one rule.
func (f FieldDescriptor) HasConditionalLogic() bool {
	return f.ConditionalLogic != nil && len(f.ConditionalLogic.Rules) > 0
}

// DisplayLabel returns the label, falling back to the field name.
func (f FieldDescriptor) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// Version is a form version number that may be encoded as a JSON string or
// number.
type Version string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Version) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		s, err := strconv.Unquote(trimmed)
		if err != nil {
			return fmt.Errorf("formdef: invalid version %s: %w", trimmed, err)
		}
		*v = Version(s)
		return nil
	}
	*v = Version(trimmed)
	return nil
}
