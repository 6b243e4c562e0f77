// Package validation checks one field value against its descriptor and
// produces a single user-facing error message.
package validation

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Rule names reported in Result.Rule.
const (
	RuleRequired  = "required"
	RuleRegex     = "regex"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMinValue  = "min_value"
	RuleMaxValue  = "max_value"
	RuleOption    = "selection_options"
	RuleConfig    = "config"
)

// Result is the outcome of validating one field. Message is empty when Valid.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

func ok() Result { return Result{Valid: true} }

// Observer is notified of every failed check.
type Observer interface {
	ValidationFailed(field, rule string)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger routes configuration errors to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMessages replaces the message renderer.
func WithMessages(m *Messages) Option {
	return func(v *Validator) {
		if m != nil {
			v.messages = m
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(v *Validator) {
		v.observer = obs
	}
}

// Validator applies required, pattern, length, bound and option checks.
// Compiled patterns are cached; a Validator is safe for concurrent use.
type Validator struct {
	logger   *zap.Logger
	messages *Messages
	observer Observer

	mu       sync.RWMutex
	patterns map[string]patternEntry
}

type patternEntry struct {
	re  *regexp.Regexp
	err error
}

// New constructs a Validator with English messages.
func New(opts ...Option) *Validator {
	v := &Validator{
		logger:   zap.NewNop(),
		patterns: make(map[string]patternEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.messages == nil {
		v.messages = NewMessages()
	}
	return v
}

var defaultValidator = New()

// Validate checks value with the default validator.
func Validate(field formdef.FieldDescriptor, value any, visible bool) Result {
	return defaultValidator.Validate(field, value, visible)
}

// Validate checks value against field. Hidden fields pass unless they set
// validate_when_hidden; the first failing rule determines the message.
func (v *Validator) Validate(field formdef.FieldDescriptor, value any, visible bool) Result {
	if !visible && !field.ValidateWhenHidden {
		return ok()
	}

	if formdef.IsEmpty(value) {
		if field.IsRequired {
			return v.fail(field, RuleRequired, KeyRequired, "", nil)
		}
		return ok()
	}

	rules := field.ValidationRules
	if rules != nil && !rules.Empty() {
		if res, failed := v.applyRules(field, *rules, value); failed {
			return res
		}
	}
	if res, failed := v.checkOptions(field, value); failed {
		return res
	}
	return ok()
}

func (v *Validator) applyRules(field formdef.FieldDescriptor, rules formdef.ValidationRules, value any) (Result, bool) {
	_, isList := value.([]any)
	if _, strList := value.([]string); strList {
		isList = true
	}
	text := strings.TrimSpace(formdef.Stringify(value))

	if rules.Regex != "" && !isList {
		re, err := v.pattern(rules.Regex)
		if err != nil {
			v.logger.Error("invalid validation pattern",
				zap.String("field", field.Name),
				zap.String("regex", rules.Regex),
				zap.Error(err),
			)
			return v.fail(field, RuleConfig, KeyConfig, "", nil), true
		}
		if !re.MatchString(text) {
			custom := firstNonBlank(rules.RegexErrorMessage, rules.ErrorMessage)
			return v.fail(field, RuleRegex, KeyRegex, custom, map[string]any{"regex": rules.Regex}), true
		}
	}

	if !isList {
		length := utf8.RuneCountInString(text)
		if rules.MinLength > 0 && length < rules.MinLength {
			return v.fail(field, RuleMinLength, KeyMinLength, rules.ErrorMessage, map[string]any{"min_length": rules.MinLength}), true
		}
		if rules.MaxLength > 0 && length > rules.MaxLength {
			return v.fail(field, RuleMaxLength, KeyMaxLength, rules.ErrorMessage, map[string]any{"max_length": rules.MaxLength}), true
		}
	}

	if field.Type != formdef.FieldTypeNumber {
		return Result{}, false
	}
	number, parsed := formdef.Number(value)
	if !parsed {
		return Result{}, false
	}
	if rules.MinValue != nil && number < *rules.MinValue {
		bound := formdef.Stringify(*rules.MinValue)
		return v.fail(field, RuleMinValue, KeyMinValue, rules.ErrorMessage, map[string]any{"min_value": bound}), true
	}
	if rules.MaxValue != nil && number > *rules.MaxValue {
		bound := formdef.Stringify(*rules.MaxValue)
		return v.fail(field, RuleMaxValue, KeyMaxValue, rules.ErrorMessage, map[string]any{"max_value": bound}), true
	}
	return Result{}, false
}

func (v *Validator) checkOptions(field formdef.FieldDescriptor, value any) (Result, bool) {
	if len(field.SelectionOptions) == 0 {
		return Result{}, false
	}
	var custom string
	if field.ValidationRules != nil {
		custom = field.ValidationRules.ErrorMessage
	}

	switch field.Type {
	case formdef.FieldTypeSelection:
		selected := formdef.Stringify(value)
		if !field.SelectionOptions.Contains(selected) {
			return v.fail(field, RuleOption, KeyOption, custom, map[string]any{"value": selected}), true
		}
	case formdef.FieldTypeMultiSelection:
		for _, selected := range formdef.StringList(value) {
			if !field.SelectionOptions.Contains(selected) {
				return v.fail(field, RuleOption, KeyOption, custom, map[string]any{"value": selected}), true
			}
		}
	}
	return Result{}, false
}

func (v *Validator) fail(field formdef.FieldDescriptor, rule, key, custom string, data map[string]any) Result {
	if v.observer != nil {
		v.observer.ValidationFailed(field.Name, rule)
	}
	message := strings.TrimSpace(custom)
	if message == "" {
		if data == nil {
			data = make(map[string]any, 1)
		}
		data["label"] = field.DisplayLabel()
		message = v.messages.Render(key, data)
	}
	return Result{Valid: false, Message: message, Rule: rule}
}

func (v *Validator) pattern(expr string) (*regexp.Regexp, error) {
	v.mu.RLock()
	entry, found := v.patterns[expr]
	v.mu.RUnlock()
	if found {
		return entry.re, entry.err
	}

	re, err := regexp.Compile(expr)

	v.mu.Lock()
	v.patterns[expr] = patternEntry{re: re, err: err}
	v.mu.Unlock()
	return re, err
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
