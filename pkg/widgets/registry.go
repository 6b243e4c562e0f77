package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetToggle         = "toggle"
	WidgetSelect         = "select"
	WidgetRadio          = "radio"
	WidgetChips          = "chips"
	WidgetDatePicker     = "date-picker"
	WidgetDateTimePicker = "datetime-picker"
	WidgetNumber         = "number"
	WidgetMapPicker      = "map-picker"
	WidgetImageCapture   = "image-capture"
	WidgetReadonly       = "readonly"
	WidgetTextarea       = "textarea"
	WidgetText           = "text"
)

// radioOptionLimit is the largest option count rendered as radio buttons.
const radioOptionLimit = 4

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field formdef.FieldDescriptor) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on the explicit `widget`
// attribute or registered matchers. Higher priority wins; ties fall back to
// registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. The
// latest registration wins between equal names and priorities.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field. An explicit widget attribute
// is honoured before matcher evaluation.
func (r *Registry) Resolve(field formdef.FieldDescriptor) (string, bool) {
	if explicit := strings.TrimSpace(field.Widget); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order > rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Assign resolves a widget for every field of def.
func (r *Registry) Assign(def *formdef.Definition) map[string]string {
	if def == nil {
		return nil
	}
	out := make(map[string]string, len(def.Fields))
	for _, field := range def.Fields {
		if widget, ok := r.Resolve(field); ok {
			out[field.Name] = widget
		}
	}
	return out
}

func ofType(types ...formdef.FieldType) Matcher {
	return func(field formdef.FieldDescriptor) bool {
		for _, t := range types {
			if field.Type == t {
				return true
			}
		}
		return false
	}
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetReadonly, 100, ofType(formdef.FieldTypeComputedText))
	r.Register(WidgetToggle, 90, ofType(formdef.FieldTypeBoolean))
	r.Register(WidgetChips, 80, ofType(formdef.FieldTypeMultiSelection))

	r.Register(WidgetSelect, 70, func(field formdef.FieldDescriptor) bool {
		return field.Type == formdef.FieldTypeSelection
	})
	r.Register(WidgetRadio, 75, func(field formdef.FieldDescriptor) bool {
		n := len(field.SelectionOptions)
		return field.Type == formdef.FieldTypeSelection && n > 0 && n <= radioOptionLimit
	})

	r.Register(WidgetMapPicker, 60, ofType(formdef.FieldTypeGPSPoint))
	r.Register(WidgetImageCapture, 60, ofType(formdef.FieldTypeImage))
	r.Register(WidgetDatePicker, 50, ofType(formdef.FieldTypeDate))
	r.Register(WidgetDateTimePicker, 50, ofType(formdef.FieldTypeDatetime))
	r.Register(WidgetNumber, 40, ofType(formdef.FieldTypeNumber))

	r.Register(WidgetTextarea, 20, func(field formdef.FieldDescriptor) bool {
		if field.Type != formdef.FieldTypeText || field.ValidationRules == nil {
			return false
		}
		return field.ValidationRules.MaxLength > 255
	})
	r.Register(WidgetText, 0, func(formdef.FieldDescriptor) bool { return true })
}
