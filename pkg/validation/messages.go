package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Message keys passed to the Translator. Each has an English default
// template; templates use pongo2 syntax with the variables listed below.
const (
	KeyRequired  = "validation.required"   // label
	KeyRegex     = "validation.regex"      // label, regex
	KeyMinLength = "validation.min_length" // label, min_length
	KeyMaxLength = "validation.max_length" // label, max_length
	KeyMinValue  = "validation.min_value"  // label, min_value
	KeyMaxValue  = "validation.max_value"  // label, max_value
	KeyOption    = "validation.option"     // label, value
	KeyConfig    = "validation.config"     // label
)

var defaultTemplates = map[string]string{
	KeyRequired:  "{{ label }} is required.",
	KeyRegex:     "Invalid format for {{ label }}.",
	KeyMinLength: "{{ label }} must be at least {{ min_length }} characters.",
	KeyMaxLength: "{{ label }} must be at most {{ max_length }} characters.",
	KeyMinValue:  "{{ label }} must be at least {{ min_value }}.",
	KeyMaxValue:  "{{ label }} must be at most {{ max_value }}.",
	KeyOption:    "{{ label }} has an invalid selection.",
	KeyConfig:    "{{ label }} has an invalid validation rule. Please contact support.",
}

// ErrMissingTranslator is reported to the MissingTranslationHandler when
// no Translator is configured.
var ErrMissingTranslator = errors.New("validation: translator not configured")

// Translator resolves a message key for a locale. The returned string is
// treated as a template and may reference the same variables as the default.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler picks the template to use when a translation is
// unavailable. The default returns fallback.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

// Messages renders validation messages.
type Messages struct {
	translator Translator
	onMissing  MissingTranslationHandler
	locale     string
	overrides  map[string]string

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// MessageOption configures Messages.
type MessageOption func(*Messages)

// WithTranslator routes message lookups through t.
func WithTranslator(t Translator) MessageOption {
	return func(m *Messages) {
		m.translator = t
	}
}

// WithLocale sets the locale passed to the translator.
func WithLocale(locale string) MessageOption {
	return func(m *Messages) {
		m.locale = strings.TrimSpace(locale)
	}
}

// WithMissingTranslationHandler customises fallback behaviour.
func WithMissingTranslationHandler(fn MissingTranslationHandler) MessageOption {
	return func(m *Messages) {
		m.onMissing = fn
	}
}

// WithTemplate overrides the default template for key.
func WithTemplate(key, template string) MessageOption {
	return func(m *Messages) {
		if m.overrides == nil {
			m.overrides = make(map[string]string)
		}
		m.overrides[key] = template
	}
}

// NewMessages constructs a message renderer.
func NewMessages(opts ...MessageOption) *Messages {
	m := &Messages{cache: make(map[string]*pongo2.Template)}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Locale returns the configured locale.
func (m *Messages) Locale() string { return m.locale }

// Render produces the message for key. Template failures fall back to the
// raw default text so a user always sees something.
func (m *Messages) Render(key string, data map[string]any) string {
	source := m.template(key, data)
	tpl, err := m.compile(source)
	if err != nil {
		return source
	}
	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return source
	}
	return strings.TrimSpace(out)
}

func (m *Messages) template(key string, data map[string]any) string {
	fallback, ok := m.overrides[key]
	if !ok {
		fallback = defaultTemplates[key]
	}

	if m.translator == nil {
		if m.onMissing != nil {
			return m.onMissing(m.locale, key, fallback, ErrMissingTranslator)
		}
		return fallback
	}

	translated, err := m.translator.Translate(m.locale, key, data)
	if err == nil && strings.TrimSpace(translated) != "" {
		return translated
	}
	if m.onMissing != nil {
		return m.onMissing(m.locale, key, fallback, err)
	}
	return fallback
}

func (m *Messages) compile(source string) (*pongo2.Template, error) {
	m.mu.RLock()
	tpl, ok := m.cache[source]
	m.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	// Messages are plain text; labels must not be HTML escaped.
	tpl, err := pongo2.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("validation: parse message template: %w", err)
	}

	m.mu.Lock()
	m.cache[source] = tpl
	m.mu.Unlock()
	return tpl, nil
}
