// Package prompt fills a dynamic form interactively. Only visible fields are
// asked; each answer is dispatched as a change event so dependent fields
// appear or disappear before they are reached.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/widgets"
)

// ErrIncomplete is returned when the form is still invalid after the
// configured number of rounds.
var ErrIncomplete = errors.New("prompt: form still invalid")

const defaultMaxRounds = 3

// Option configures a Filler.
type Option func(*Filler)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithWidgets overrides the widget registry used to pick prompt kinds.
func WithWidgets(reg *widgets.Registry) Option {
	return func(f *Filler) {
		if reg != nil {
			f.widgets = reg
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxRounds bounds how many submit attempts Fill makes.
func WithMaxRounds(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxRounds = n
		}
	}
}

// Filler walks a form session field by field.
type Filler struct {
	driver    Driver
	widgets   *widgets.Registry
	logger    *zap.Logger
	maxRounds int
}

// New constructs a Filler. Without WithDriver it prompts on the terminal.
func New(opts ...Option) *Filler {
	f := &Filler{
		logger:    zap.NewNop(),
		maxRounds: defaultMaxRounds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	if f.widgets == nil {
		f.widgets = widgets.NewRegistry()
	}
	return f
}

// Fill asks every visible field, then submits. When the gate blocks, the
// failing fields are reported and asked again. The returned outcome is the
// last submit attempt; on success the caller owns Session.Finish.
func (f *Filler) Fill(ctx context.Context, s *form.Session) (form.Outcome, error) {
	if s.Disabled() {
		if err := f.driver.Info(ctx, form.StatusConfigError); err != nil {
			return form.Outcome{}, err
		}
		return form.Outcome{Status: form.StatusConfigError}, form.ErrSubmissionDisabled
	}

	dispatcher := form.NewDispatcher()
	var outcome form.Outcome
	s.Bind(dispatcher, func(o form.Outcome) { outcome = o })
	dispatcher.On(form.EventChange, form.AnySelector, func(ev form.EventContext) {
		f.logger.Debug("field answered", zap.String("field", ev.Field))
	})

	asked := make(map[string]bool)
	for round := 1; ; round++ {
		if err := f.askVisible(ctx, s, dispatcher, asked); err != nil {
			return outcome, err
		}
		dispatcher.Dispatch(form.EventSubmit, form.AnySelector, nil)
		if outcome.Allowed {
			return outcome, f.driver.Info(ctx, outcome.Status)
		}
		if err := f.driver.Info(ctx, outcome.Status); err != nil {
			return outcome, err
		}
		for _, report := range outcome.Report.Invalid() {
			if err := f.driver.Info(ctx, fmt.Sprintf("- %s", report.Result.Message)); err != nil {
				return outcome, err
			}
			delete(asked, report.Name)
		}
		if round >= f.maxRounds {
			return outcome, ErrIncomplete
		}
	}
}

// askVisible prompts for unasked visible fields until a full pass finds
// nothing new, so fields revealed by a later answer are still reached.
func (f *Filler) askVisible(ctx context.Context, s *form.Session, d *form.Dispatcher, asked map[string]bool) error {
	def := s.Definition()
	for {
		progressed := false
		for _, field := range def.Fields {
			if asked[field.Name] {
				continue
			}
			state, _ := s.State(field.Name)
			if !state.Visible {
				continue
			}
			asked[field.Name] = true
			progressed = true

			value, answered, err := f.ask(ctx, s, field, state)
			if err != nil {
				return err
			}
			if answered {
				d.Dispatch(form.EventChange, field.Name, value)
			}
		}
		if !progressed {
			return nil
		}
	}
}

func (f *Filler) ask(ctx context.Context, s *form.Session, field formdef.FieldDescriptor, state form.FieldState) (any, bool, error) {
	widget, _ := f.widgets.Resolve(field)
	message := field.DisplayLabel()
	current := formdef.Stringify(state.Value)

	switch widget {
	case widgets.WidgetReadonly:
		return nil, false, f.driver.Info(ctx, fmt.Sprintf("%s: %s", message, current))

	case widgets.WidgetToggle:
		answer, err := f.driver.Confirm(ctx, ConfirmQuestion{
			Label:   message,
			Help:    field.HelpText,
			Default: current == "true",
		})
		return answer, err == nil, err

	case widgets.WidgetSelect, widgets.WidgetRadio, widgets.WidgetChips:
		multiple := widget == widgets.WidgetChips
		values := field.SelectionOptions.Values()
		indices, err := f.driver.Choose(ctx, ChoiceQuestion{
			Label:    message,
			Help:     field.HelpText,
			Options:  field.SelectionOptions.Labels(),
			Selected: positions(values, formdef.StringList(state.Value)),
			Multiple: multiple,
		})
		if err != nil {
			return nil, false, err
		}
		chosen := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(values) {
				chosen = append(chosen, values[idx])
			}
		}
		if multiple {
			return chosen, true, nil
		}
		if len(chosen) == 0 {
			return nil, false, nil
		}
		return chosen[0], true, nil

	case widgets.WidgetNumber:
		text, err := f.driver.Text(ctx, TextQuestion{
			Label:   message,
			Help:    field.HelpText,
			Default: current,
			Check:   f.numberValidator(s, field),
		})
		if err != nil {
			return nil, false, err
		}
		if n, ok := formdef.Number(text); ok {
			return n, true, nil
		}
		return blankToNil(text), true, nil

	case widgets.WidgetMapPicker:
		text, err := f.driver.Text(ctx, TextQuestion{
			Label:   message + " (lat,lng)",
			Help:    field.HelpText,
			Default: current,
			Check: func(text string) error {
				if strings.TrimSpace(text) == "" {
					return nil
				}
				_, err := parsePoint(text)
				return err
			},
		})
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, true, nil
		}
		point, err := parsePoint(text)
		if err != nil {
			return nil, false, err
		}
		return point, true, nil

	default:
		text, err := f.driver.Text(ctx, TextQuestion{
			Label:     message,
			Help:      field.HelpText,
			Default:   current,
			Multiline: widget == widgets.WidgetTextarea,
			Check:     f.fieldValidator(s, field),
		})
		return blankToNil(text), err == nil, err
	}
}

// fieldValidator reuses the session validator so inline feedback matches
// what the gate will report.
func (f *Filler) fieldValidator(s *form.Session, field formdef.FieldDescriptor) func(string) error {
	return func(text string) error {
		result := s.Validator().Validate(field, blankToNil(text), true)
		if !result.Valid {
			return errors.New(result.Message)
		}
		return nil
	}
}

func (f *Filler) numberValidator(s *form.Session, field formdef.FieldDescriptor) func(string) error {
	base := f.fieldValidator(s, field)
	return func(text string) error {
		if strings.TrimSpace(text) != "" {
			if _, ok := formdef.Number(text); !ok {
				return errors.New(field.DisplayLabel() + " must be a number.")
			}
		}
		return base(text)
	}
}

func parsePoint(text string) ([]any, error) {
	latText, lngText, found := strings.Cut(text, ",")
	if !found {
		return nil, errors.New("enter latitude and longitude separated by a comma")
	}
	lat, ok := formdef.Number(latText)
	if !ok || lat < -90 || lat > 90 {
		return nil, errors.New("latitude must be between -90 and 90")
	}
	lng, ok := formdef.Number(lngText)
	if !ok || lng < -180 || lng > 180 {
		return nil, errors.New("longitude must be between -180 and 180")
	}
	return []any{lat, lng}, nil
}

func blankToNil(text string) any {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return text
}
