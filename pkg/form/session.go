package form

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/validation"
	"github.com/goliatone/go-formrules/pkg/visibility"
)

// Event identifies what triggered a value change.
type Event string

const (
	EventInput    Event = "input"
	EventChange   Event = "change"
	EventFocusOut Event = "focusout"
	EventSubmit   Event = "submit"
)

// forcesDisplay reports whether errors are shown even for empty values.
func (e Event) forcesDisplay() bool {
	return e == EventChange || e == EventFocusOut || e == EventSubmit
}

// Announcer receives status messages for assistive technology.
type Announcer interface {
	Announce(message string)
}

// AnnouncerFunc adapts a function into an Announcer.
type AnnouncerFunc func(message string)

// Announce delegates to the underlying function.
func (fn AnnouncerFunc) Announce(message string) { fn(message) }

// ErrSubmissionDisabled is returned when the definition failed to load.
var ErrSubmissionDisabled = errors.New("form: submission disabled")

// FieldState is the runtime state of one field.
type FieldState struct {
	Name      string `json:"name"`
	Value     any    `json:"value,omitempty"`
	Visible   bool   `json:"visible"`
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Rule      string `json:"rule,omitempty"`
	ShowError bool   `json:"show_error"`
	Server    bool   `json:"server,omitempty"`
}

// Changes lists what a value update affected.
type Changes struct {
	Shown   []string
	Hidden  []string
	Cleared []string
}

// Empty reports whether nothing changed visibility.
func (c Changes) Empty() bool {
	return len(c.Shown) == 0 && len(c.Hidden) == 0 && len(c.Cleared) == 0
}

// Outcome is the result of a submit attempt.
type Outcome struct {
	Allowed bool
	Status  string
	Focus   string
	Values  map[string]any
	Report  Report
}

// Session tracks field state for one rendered form. Methods are safe for
// concurrent use; the announcer is called without the session lock held.
type Session struct {
	mu sync.Mutex

	def    *formdef.Definition
	cfg    options
	gate   *Gate
	states map[string]*FieldState

	configErr  error
	submitting bool
	focus      string
	status     string
	formErrors []string
}

// NewSession starts a session over def. Defaults from the definition fill
// fields missing from values.
func NewSession(def *formdef.Definition, values map[string]any, opts ...Option) *Session {
	cfg := buildOptions(opts)
	s := &Session{
		def:    def,
		cfg:    cfg,
		gate:   &Gate{evaluator: cfg.evaluator, validator: cfg.validator},
		states: make(map[string]*FieldState),
	}
	if def == nil {
		s.configErr = ErrSubmissionDisabled
		s.status = StatusConfigError
		return s
	}

	for _, field := range def.Fields {
		value, ok := values[field.Name]
		if !ok {
			value = field.DefaultValue
		}
		s.states[field.Name] = &FieldState{Name: field.Name, Value: value}
	}
	current := s.valuesLocked()
	for _, field := range def.Fields {
		state := s.states[field.Name]
		state.Visible = cfg.evaluator.EvaluateField(field, current, def)
		s.validateLocked(field, state, false)
		state.ShowError = false
	}
	return s
}

// NewSessionFromJSON parses raw and starts a session. A malformed definition
// yields a disabled session carrying the configuration error; no rules run.
func NewSessionFromJSON(raw []byte, values map[string]any, opts ...Option) *Session {
	def, err := formdef.Parse(raw)
	if err != nil {
		cfg := buildOptions(opts)
		cfg.logger.Error("form definition rejected", zap.Error(err))
		return &Session{
			cfg:       cfg,
			states:    map[string]*FieldState{},
			configErr: err,
			status:    StatusConfigError,
		}
	}
	return NewSession(def, values, opts...)
}

// Definition returns the underlying definition. Nil for disabled sessions.
func (s *Session) Definition() *formdef.Definition { return s.def }

// Disabled reports whether submission is permanently disabled.
func (s *Session) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configErr != nil
}

// ConfigError returns the load error of a disabled session.
func (s *Session) ConfigError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configErr
}

// Status returns the last announced status message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Focus returns the field that should receive focus, if any.
func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Submitting reports whether a submission is in flight.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// FormErrors returns form-level messages from the last server response.
func (s *Session) FormErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.formErrors...)
}

// State returns a copy of one field's state.
func (s *Session) State(name string) (FieldState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[name]
	if !ok {
		return FieldState{}, false
	}
	return *state, true
}

// States returns every field state in definition order.
func (s *Session) States() []FieldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def == nil {
		return nil
	}
	out := make([]FieldState, 0, len(s.def.Fields))
	for _, field := range s.def.Fields {
		out = append(out, *s.states[field.Name])
	}
	return out
}

// Values returns a copy of the current values.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valuesLocked()
}

// SetValue records a new value for name and recomputes the fields whose
// conditional logic references it. With WithClearHidden, values of fields
// that become hidden are cleared and their dependents recomputed in turn.
func (s *Session) SetValue(name string, value any, event Event) (Changes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configErr != nil {
		return Changes{}, ErrSubmissionDisabled
	}
	field, ok := s.def.Field(name)
	if !ok {
		s.cfg.logger.Warn("value for unknown field ignored", zap.String("field", name))
		return Changes{}, nil
	}

	state := s.states[name]
	state.Value = value
	state.Server = false
	s.validateLocked(field, state, event.forcesDisplay())

	return s.propagateLocked(name), nil
}

func (s *Session) propagateLocked(changed string) Changes {
	var changes Changes
	queue := []string{changed}
	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]

		current := s.valuesLocked()
		for _, name := range s.cfg.evaluator.Affected(s.def, source) {
			field, _ := s.def.Field(name)
			state := s.states[name]
			visible := s.cfg.evaluator.EvaluateField(field, current, s.def)
			if visible == state.Visible {
				continue
			}
			state.Visible = visible
			if visible {
				changes.Shown = append(changes.Shown, name)
			} else {
				changes.Hidden = append(changes.Hidden, name)
				if s.cfg.clearHidden && !formdef.IsEmpty(state.Value) {
					state.Value = nil
					changes.Cleared = append(changes.Cleared, name)
					queue = append(queue, name)
				}
			}
			s.validateLocked(field, state, false)
		}
	}
	return changes
}

// validateLocked refreshes validity. Errors are displayed when forced, when
// the value is non-empty, or for boolean fields.
func (s *Session) validateLocked(field formdef.FieldDescriptor, state *FieldState, force bool) {
	result := s.cfg.validator.Validate(field, state.Value, state.Visible)
	state.Valid = result.Valid
	state.Message = result.Message
	state.Rule = result.Rule
	if result.Valid {
		state.ShowError = false
		return
	}
	state.ShowError = force || !formdef.IsEmpty(state.Value) || field.Type == formdef.FieldTypeBoolean
}

// Submit runs the gate. Every checked field has its error displayed; on
// failure focus moves to the first invalid field. On success the session is
// marked submitting until Finish is called.
func (s *Session) Submit() Outcome {
	outcome, announce := s.submit()
	if announce != "" && s.cfg.announcer != nil {
		s.cfg.announcer.Announce(announce)
	}
	return outcome
}

func (s *Session) submit() (Outcome, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configErr != nil {
		s.observe(OutcomeDisabled)
		s.status = StatusConfigError
		return Outcome{Status: StatusConfigError}, StatusConfigError
	}
	if s.submitting {
		s.observe(OutcomeBusy)
		return Outcome{Status: s.status}, ""
	}

	values := s.valuesLocked()
	report := s.gate.Check(s.def, values)
	for _, fr := range report.Fields {
		state := s.states[fr.Name]
		state.Visible = fr.Visible
		state.Valid = fr.Result.Valid
		state.Message = fr.Result.Message
		state.Rule = fr.Result.Rule
		state.Server = false
		state.ShowError = fr.Checked && !fr.Result.Valid
	}

	if !report.Valid {
		s.focus = report.FirstInvalid
		s.status = StatusInvalid
		s.observe(OutcomeBlocked)
		return Outcome{Status: StatusInvalid, Focus: report.FirstInvalid, Report: report}, StatusInvalid
	}

	s.focus = ""
	s.formErrors = nil
	s.submitting = true
	s.status = StatusSubmitting
	s.observe(OutcomeAccepted)
	return Outcome{Allowed: true, Status: StatusSubmitting, Values: values, Report: report}, StatusSubmitting
}

// Finish clears the submitting flag once the external submitter is done.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

func (s *Session) observe(outcome string) {
	if s.cfg.observer != nil {
		s.cfg.observer.SubmitAttempted(outcome)
	}
}

func (s *Session) valuesLocked() map[string]any {
	out := make(map[string]any, len(s.states))
	for name, state := range s.states {
		out[name] = state.Value
	}
	return out
}

// Evaluator exposes the visibility evaluator in use.
func (s *Session) Evaluator() *visibility.Evaluator { return s.cfg.evaluator }

// Validator exposes the field validator in use.
func (s *Session) Validator() *validation.Validator { return s.cfg.validator }
