package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/testsupport"
)

func TestMapErrorPayload(t *testing.T) {
	t.Parallel()

	def := testsupport.LoadDefinition(t, testsupport.Registration)
	mapping := form.MapErrorPayload(def, map[string][]string{
		"national_id":        {" Already registered. ", "Already registered."},
		"/data/farm_size":    {"Too large for the district."},
		"fields.crop_type.0": {"Unsupported crop."},
		"#/payload/phone":    {"Number in use."},
		"__all__":            {"Registry is read-only today."},
		"nonexistent":        {"Lost field."},
		"full_name":          {"   "},
	})

	wantFields := map[string][]string{
		"national_id":        {"Already registered."},
		"farm_size":          {"Too large for the district."},
		"crop_type":          {"Unsupported crop."},
		"phone":              {"Number in use."},
	}
	if diff := cmp.Diff(wantFields, mapping.Fields); diff != "" {
		t.Fatalf("field mapping mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Registry is read-only today.", "Lost field."}
	if diff := cmp.Diff(wantForm, mapping.Form); diff != "" {
		t.Fatalf("form mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ApplyServerErrors(t *testing.T) {
	t.Parallel()

	def := testsupport.LoadDefinition(t, testsupport.Registration)
	session := form.NewSession(def, testsupport.LoadValues(t, testsupport.RegistrationValues))
	if outcome := session.Submit(); !outcome.Allowed {
		t.Fatalf("fixture values should pass: %#v", outcome.Report.Invalid())
	}

	formLevel := session.ApplyServerErrors(map[string][]string{
		"phone":              {"Number in use."},
		"national_id":        {"Already registered."},
		"form":               {"Try again later."},
	})
	if diff := cmp.Diff([]string{"Try again later."}, formLevel); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if session.Submitting() {
		t.Fatalf("server errors end the submission")
	}
	if session.Focus() != "national_id" {
		t.Fatalf("focus should follow definition order, got %q", session.Focus())
	}
	state, _ := session.State("phone")
	if state.Valid || !state.Server || !state.ShowError || state.Message != "Number in use." {
		t.Fatalf("server error not applied: %#v", state)
	}

	// Editing the field replaces the server message with local validation.
	_, _ = session.SetValue("phone", "+254711111111", form.EventInput)
	state, _ = session.State("phone")
	if !state.Valid || state.Server {
		t.Fatalf("local validation should take over: %#v", state)
	}
}
