package testsupport

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

//go:embed testdata/*
var fixtures embed.FS

// Fixture names shared across package tests.
const (
	Registration       = "registration.json"
	RegistrationValues = "registration_values.json"
	HideToggle         = "hide_toggle.json"
	LegacyYAML         = "legacy.yaml"
)

// ReadFixture returns the raw bytes of an embedded fixture.
func ReadFixture(name string) ([]byte, error) {
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read fixture %s: %w", name, err)
	}
	return data, nil
}

// MustReadFixture is ReadFixture for tests.
func MustReadFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := ReadFixture(name)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return data
}

// LoadDefinition parses an embedded fixture into a form definition.
func LoadDefinition(t *testing.T, name string, opts ...formdef.ParseOption) *formdef.Definition {
	t.Helper()

	def, err := formdef.Parse(MustReadFixture(t, name), append([]formdef.ParseOption{formdef.WithSourceName(name)}, opts...)...)
	if err != nil {
		t.Fatalf("parse fixture %s: %v", name, err)
	}
	return def
}

// LoadValues decodes an embedded JSON fixture into a values map.
func LoadValues(t *testing.T, name string) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(MustReadFixture(t, name), &out); err != nil {
		t.Fatalf("unmarshal values %s: %v", name, err)
	}
	return out
}

// WriteFixtureFile copies an embedded fixture into dir, for code paths that
// read from disk.
func WriteFixtureFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, MustReadFixture(t, name), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
