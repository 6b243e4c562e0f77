package formdef

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option is one selectable value of a selection or multi-selection field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options is the ordered option list of a selection field.
type Options []Option

// Values returns the option values in order.
func (o Options) Values() []string {
	if len(o) == 0 {
		return nil
	}
	out := make([]string, 0, len(o))
	for _, opt := range o {
		out = append(out, opt.Value)
	}
	return out
}

// Labels returns the option labels in order.
func (o Options) Labels() []string {
	if len(o) == 0 {
		return nil
	}
	out := make([]string, 0, len(o))
	for _, opt := range o {
		out = append(out, opt.Label)
	}
	return out
}

// Contains reports whether value is one of the option values.
func (o Options) Contains(value string) bool {
	for _, opt := range o {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// LabelFor returns the label of value, or value itself when unknown.
func (o Options) LabelFor(value string) string {
	for _, opt := range o {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// UnmarshalJSON accepts `[["v","Label"]]`, `[{"value":"v","label":"Label"}]`
// and the newline separated `v:Label` text form.
func (o *Options) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null" || trimmed == "":
		*o = nil
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*o = ParseOptionLines(text)
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("formdef: selection options: %w", err)
	}
	out := make(Options, 0, len(items))
	for idx, item := range items {
		opt, err := decodeOption(item)
		if err != nil {
			return fmt.Errorf("formdef: selection option %d: %w", idx, err)
		}
		if strings.TrimSpace(opt.Value) == "" {
			continue
		}
		out = append(out, opt)
	}
	if len(out) == 0 {
		out = nil
	}
	*o = out
	return nil
}

func decodeOption(raw json.RawMessage) (Option, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var pair []any
		if err := json.Unmarshal(raw, &pair); err != nil {
			return Option{}, err
		}
		if len(pair) == 0 {
			return Option{}, nil
		}
		value := strings.TrimSpace(fmt.Sprint(pair[0]))
		label := value
		if len(pair) > 1 {
			label = strings.TrimSpace(fmt.Sprint(pair[1]))
		}
		return Option{Value: value, Label: label}, nil
	case strings.HasPrefix(trimmed, "{"):
		var opt Option
		if err := json.Unmarshal(raw, &opt); err != nil {
			return Option{}, err
		}
		opt.Value = strings.TrimSpace(opt.Value)
		opt.Label = strings.TrimSpace(opt.Label)
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		return opt, nil
	default:
		var scalar any
		if err := json.Unmarshal(raw, &scalar); err != nil {
			return Option{}, err
		}
		value := strings.TrimSpace(fmt.Sprint(scalar))
		return Option{Value: value, Label: value}, nil
	}
}

// ParseOptionLines parses one option per line in `value:Label` form. Lines
// without a colon use the whole line as value and label.
func ParseOptionLines(text string) Options {
	var out Options
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, label, found := strings.Cut(line, ":")
		if !found {
			out = append(out, Option{Value: line, Label: line})
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, Option{Value: value, Label: strings.TrimSpace(label)})
	}
	return out
}
