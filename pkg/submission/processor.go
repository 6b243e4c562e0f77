// Package submission validates and stores farmer answers to a published
// dynamic form.
package submission

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Processing outcomes reported to observers.
const (
	OutcomeStored   = "stored"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
)

// Observer is notified once per processed request.
type Observer interface {
	SubmissionProcessed(outcome string)
}

// Request is one submission attempt.
type Request struct {
	FarmerID    string
	Definition  *formdef.Definition
	Values      map[string]any
	Source      Source
	SubmittedBy string
}

// Option configures a Processor.
type Option func(*Processor)

// WithStore sets where accepted submissions are saved.
func WithStore(store Store) Option {
	return func(p *Processor) {
		if store != nil {
			p.store = store
		}
	}
}

// WithGate replaces the submission gate.
func WithGate(g *form.Gate) Option {
	return func(p *Processor) {
		if g != nil {
			p.gate = g
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(p *Processor) {
		p.observer = obs
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(next func() string) Option {
	return func(p *Processor) {
		if next != nil {
			p.newID = next
		}
	}
}

// WithAllowUnpublished accepts draft and unversioned definitions. Intended
// for local tooling.
func WithAllowUnpublished(allow bool) Option {
	return func(p *Processor) {
		p.allowUnpublished = allow
	}
}

// Processor validates requests with the gate and stores coerced answers.
type Processor struct {
	store            Store
	gate             *form.Gate
	logger           *zap.Logger
	observer         Observer
	now              func() time.Time
	newID            func() string
	allowUnpublished bool
}

// NewProcessor constructs a Processor backed by an in-memory store unless
// WithStore is given.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.gate == nil {
		p.gate = form.NewGate(form.WithLogger(p.logger))
	}
	if p.store == nil {
		p.store = NewMemoryStore()
	}
	return p
}

// Store returns the backing store.
func (p *Processor) Store() Store { return p.store }

// Process validates req and stores it. Invalid answers yield a
// *ValidationError; unknown answer keys are logged and skipped.
func (p *Processor) Process(ctx context.Context, req Request) (Submission, error) {
	if err := p.admit(req); err != nil {
		p.observe(OutcomeRejected)
		return Submission{}, err
	}
	def := req.Definition

	report := p.gate.Check(def, req.Values)
	var failures []FieldError
	for _, fr := range report.Invalid() {
		failures = append(failures, FieldError{Field: fr.Name, Label: fr.Label, Message: fr.Result.Message})
	}
	if len(failures) > 0 {
		p.logger.Warn("submission validation failed",
			zap.String("form", def.Name),
			zap.String("farmer_id", req.FarmerID),
			zap.Int("errors", len(failures)),
		)
		p.observe(OutcomeInvalid)
		return Submission{}, &ValidationError{Fields: failures}
	}

	sub := Submission{
		ID:            p.newID(),
		FarmerID:      strings.TrimSpace(req.FarmerID),
		FormName:      def.Name,
		FormVersion:   def.Version,
		FormVersionID: def.VersionID,
		Source:        req.Source,
		State:         StateSubmitted,
		SubmittedBy:   req.SubmittedBy,
		SubmittedAt:   p.now().UTC(),
	}
	if sub.Source == "" {
		sub.Source = SourceAdmin
	}

	for _, field := range def.Fields {
		value, present := req.Values[field.Name]
		if !present {
			continue
		}
		resp, stored, err := coerce(field, value)
		if err != nil {
			failures = append(failures, FieldError{
				Field:   field.Name,
				Label:   field.DisplayLabel(),
				Message: fmt.Sprintf("%s %s.", field.DisplayLabel(), err),
			})
			continue
		}
		if stored {
			sub.Responses = append(sub.Responses, resp)
		}
	}
	if len(failures) > 0 {
		p.observe(OutcomeInvalid)
		return Submission{}, &ValidationError{Fields: failures}
	}

	for _, name := range unknownKeys(def, req.Values) {
		p.logger.Warn("response for unknown field skipped",
			zap.String("form", def.Name),
			zap.String("field", name),
		)
	}

	if err := p.store.Save(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("submission: save %s: %w", sub.ID, err)
	}
	p.logger.Info("submission stored",
		zap.String("id", sub.ID),
		zap.String("farmer_id", sub.FarmerID),
		zap.Int("responses", len(sub.Responses)),
	)
	p.observe(OutcomeStored)
	return sub, nil
}

func (p *Processor) admit(req Request) error {
	if req.Definition == nil {
		return ErrNoDefinition
	}
	if strings.TrimSpace(req.FarmerID) == "" {
		return ErrFarmerRequired
	}
	status := req.Definition.Status
	if status == formdef.StatusPublished {
		return nil
	}
	if p.allowUnpublished && (status == "" || status == formdef.StatusDraft) {
		return nil
	}
	return fmt.Errorf("%w: %q has status %q", ErrNotPublished, req.Definition.Name, status)
}

func (p *Processor) observe(outcome string) {
	if p.observer != nil {
		p.observer.SubmissionProcessed(outcome)
	}
}

func unknownKeys(def *formdef.Definition, values map[string]any) []string {
	var out []string
	for name := range values {
		if !def.Has(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
