package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/testsupport"
)

type announcements []string

func (a *announcements) Announce(message string) { *a = append(*a, message) }

type outcomeCounter map[string]int

func (o outcomeCounter) SubmitAttempted(outcome string) { o[outcome]++ }

func TestSession_SubmitBlockedThenAccepted(t *testing.T) {
	t.Parallel()

	var said announcements
	counter := outcomeCounter{}
	def := testsupport.LoadDefinition(t, testsupport.HideToggle)
	session := form.NewSession(def, map[string]any{"B": "no"},
		form.WithAnnouncer(&said), form.WithObserver(counter))

	a, _ := session.State("A")
	if !a.Visible || a.Valid || a.ShowError {
		t.Fatalf("initial state should be visible, invalid and quiet: %#v", a)
	}

	outcome := session.Submit()
	if outcome.Allowed {
		t.Fatalf("submit should be blocked")
	}
	if outcome.Focus != "A" || session.Focus() != "A" {
		t.Fatalf("focus should move to A, got %q", outcome.Focus)
	}
	a, _ = session.State("A")
	if !a.ShowError || a.Message != "Field A is required." {
		t.Fatalf("submit should force error display: %#v", a)
	}

	changes, err := session.SetValue("B", "yes", form.EventChange)
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if diff := cmp.Diff(form.Changes{Hidden: []string{"A"}}, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	a, _ = session.State("A")
	if a.Visible || !a.Valid || a.ShowError || a.Message != "" {
		t.Fatalf("hidden field should be exempt and quiet: %#v", a)
	}

	outcome = session.Submit()
	if !outcome.Allowed || outcome.Status != form.StatusSubmitting {
		t.Fatalf("submit should be allowed: %#v", outcome)
	}
	if outcome.Values["B"] != "yes" {
		t.Fatalf("outcome should carry values: %#v", outcome.Values)
	}
	if !session.Submitting() {
		t.Fatalf("session should be submitting")
	}

	if again := session.Submit(); again.Allowed {
		t.Fatalf("second submit while in flight must not be allowed")
	}
	session.Finish()
	if session.Submitting() {
		t.Fatalf("Finish should clear the submitting flag")
	}

	wantSaid := announcements{form.StatusInvalid, form.StatusSubmitting}
	if diff := cmp.Diff(wantSaid, said); diff != "" {
		t.Fatalf("announcements mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(outcomeCounter{form.OutcomeBlocked: 1, form.OutcomeAccepted: 1, form.OutcomeBusy: 1}, counter); diff != "" {
		t.Fatalf("observer mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ErrorDisplayRules(t *testing.T) {
	t.Parallel()

	def := testsupport.LoadDefinition(t, testsupport.Registration)
	session := form.NewSession(def, nil)

	// Typing into an empty required field does not nag.
	if _, err := session.SetValue("full_name", "", form.EventInput); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	state, _ := session.State("full_name")
	if state.Valid || state.ShowError {
		t.Fatalf("input on empty value should hide the error: %#v", state)
	}

	// Leaving the field surfaces it.
	_, _ = session.SetValue("full_name", "", form.EventFocusOut)
	state, _ = session.State("full_name")
	if !state.ShowError {
		t.Fatalf("focusout should force the error: %#v", state)
	}

	// A non-empty invalid value shows while typing.
	_, _ = session.SetValue("full_name", "A", form.EventInput)
	state, _ = session.State("full_name")
	if !state.ShowError || state.Message != "Full Name must be at least 2 characters." {
		t.Fatalf("input on invalid value should show the error: %#v", state)
	}

	_, _ = session.SetValue("full_name", "Amina", form.EventInput)
	state, _ = session.State("full_name")
	if !state.Valid || state.ShowError {
		t.Fatalf("valid value should clear the error: %#v", state)
	}
}

func TestSession_ScopedRecompute(t *testing.T) {
	t.Parallel()

	def := testsupport.LoadDefinition(t, testsupport.Registration)
	session := form.NewSession(def, map[string]any{"crop_type": "maize"})

	changes, _ := session.SetValue("crop_type", "beans", form.EventChange)
	if diff := cmp.Diff(form.Changes{Shown: []string{"cooperative_name"}}, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}

	changes, _ = session.SetValue("crop_type", "other", form.EventChange)
	want := form.Changes{Shown: []string{"other_crop"}, Hidden: []string{"cooperative_name"}}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}

	changes, _ = session.SetValue("phone", "+254700000000", form.EventInput)
	if !changes.Empty() {
		t.Fatalf("phone drives no logic, got %#v", changes)
	}

	changes, _ = session.SetValue("unknown", "x", form.EventInput)
	if !changes.Empty() {
		t.Fatalf("unknown field should be ignored")
	}
}

func TestSession_ClearHiddenCascades(t *testing.T) {
	t.Parallel()

	def, err := formdef.Parse([]byte(`{"fields": [
		{"name": "has_farm", "type": "boolean"},
		{"name": "crop", "conditional_logic": {"rules": [{"source_field": "has_farm", "operator": "is", "value": "true"}]}},
		{"name": "variety", "conditional_logic": {"rules": [{"source_field": "crop", "operator": "is_not_empty"}]}}
	]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	session := form.NewSession(def, map[string]any{"has_farm": true, "crop": "maize", "variety": "H614"}, form.WithClearHidden(true))
	changes, _ := session.SetValue("has_farm", false, form.EventChange)
	want := form.Changes{Hidden: []string{"crop", "variety"}, Cleared: []string{"crop", "variety"}}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("cascade mismatch (-want +got):\n%s", diff)
	}
	values := session.Values()
	if values["crop"] != nil || values["variety"] != nil {
		t.Fatalf("hidden values should be cleared: %#v", values)
	}

	keep := form.NewSession(def, map[string]any{"has_farm": true, "crop": "maize", "variety": "H614"})
	changes, _ = keep.SetValue("has_farm", false, form.EventChange)
	if diff := cmp.Diff(form.Changes{Hidden: []string{"crop"}}, changes); diff != "" {
		t.Fatalf("without clearing only crop hides (-want +got):\n%s", diff)
	}
	if keep.Values()["crop"] != "maize" {
		t.Fatalf("values kept by default")
	}
}

func TestSession_DefaultValues(t *testing.T) {
	t.Parallel()

	def, err := formdef.Parse([]byte(`{"fields": [
		{"name": "country", "default_value": "KE"},
		{"name": "county", "is_required": true, "conditional_logic": {"rules": [{"source_field": "country", "operator": "is", "value": "KE"}]}}
	]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	session := form.NewSession(def, nil)
	if got := session.Values()["country"]; got != "KE" {
		t.Fatalf("default not applied: %#v", got)
	}
	county, _ := session.State("county")
	if !county.Visible {
		t.Fatalf("county should be visible from the default value")
	}
}

func TestSession_MalformedDefinitionDisablesSubmission(t *testing.T) {
	t.Parallel()

	var said announcements
	session := form.NewSessionFromJSON([]byte(`{"fields": [{"name": "a"}, {"name": "a"}]}`), nil, form.WithAnnouncer(&said))

	if !session.Disabled() {
		t.Fatalf("session should be disabled")
	}
	if !errors.Is(session.ConfigError(), formdef.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", session.ConfigError())
	}
	if session.Status() != form.StatusConfigError {
		t.Fatalf("status mismatch: %q", session.Status())
	}
	if session.States() != nil {
		t.Fatalf("no field state should exist")
	}
	if _, err := session.SetValue("a", "x", form.EventInput); !errors.Is(err, form.ErrSubmissionDisabled) {
		t.Fatalf("expected ErrSubmissionDisabled, got %v", err)
	}

	outcome := session.Submit()
	if outcome.Allowed || outcome.Status != form.StatusConfigError {
		t.Fatalf("submit must stay disabled: %#v", outcome)
	}
	if diff := cmp.Diff(announcements{form.StatusConfigError}, said); diff != "" {
		t.Fatalf("announcements mismatch (-want +got):\n%s", diff)
	}
}
