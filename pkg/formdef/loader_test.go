package formdef_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/testsupport"
)

func TestLoader_File(t *testing.T) {
	t.Parallel()

	path := testsupport.WriteFixtureFile(t, t.TempDir(), testsupport.Registration)
	src, err := formdef.ParseSource(path)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if src.Kind() != formdef.SourceKindFile {
		t.Fatalf("expected file source, got %s", src.Kind())
	}

	def, err := formdef.NewLoader().Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(def.Fields) != 10 {
		t.Fatalf("expected 10 fields, got %d", len(def.Fields))
	}
}

func TestLoader_FS(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"forms/legacy.yaml": {Data: testsupport.MustReadFixture(t, testsupport.LegacyYAML)},
	}
	loader := formdef.NewLoader(formdef.WithFileSystem(files))

	def, err := loader.Load(context.Background(), formdef.SourceFromFS("forms/legacy.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if def.Name != "Legacy Survey" {
		t.Fatalf("form name mismatch: %q", def.Name)
	}

	_, err = formdef.NewLoader().Load(context.Background(), formdef.SourceFromFS("forms/legacy.yaml"))
	if err == nil {
		t.Fatalf("expected error without filesystem")
	}
}

func TestLoader_HTTP(t *testing.T) {
	t.Parallel()

	payload := testsupport.MustReadFixture(t, testsupport.HideToggle)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/7" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Accept") == "" {
			t.Errorf("missing Accept header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	loader := formdef.NewLoader(formdef.WithHTTPFallback(2 * time.Second))

	src, err := formdef.ParseSource(server.URL + "/forms/7")
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	def, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if names := def.Names(); len(names) != 2 {
		t.Fatalf("expected 2 fields, got %v", names)
	}

	missing, _ := formdef.SourceFromURL(server.URL + "/forms/404")
	if _, err := loader.Load(context.Background(), missing); err == nil {
		t.Fatalf("expected status error")
	}

	if _, err := formdef.NewLoader().Load(context.Background(), src); err == nil {
		t.Fatalf("expected http disabled error")
	}
}

func TestLoader_ParseErrorsAreMalformed(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{"bad.json": {Data: []byte(`{"fields": [{"name": ""}]}`)}}
	loader := formdef.NewLoader(formdef.WithFileSystem(files))

	_, err := loader.Load(context.Background(), formdef.SourceFromFS("bad.json"))
	if !errors.Is(err, formdef.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	var defErr *formdef.DefinitionError
	if !errors.As(err, &defErr) || defErr.Source != "bad.json" {
		t.Fatalf("expected source bad.json, got %#v", defErr)
	}
}

func TestLoader_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := formdef.NewLoader().LoadBytes(ctx, formdef.SourceFromFile("x.json")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
