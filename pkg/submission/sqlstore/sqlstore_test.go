package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/submission"
	"github.com/goliatone/go-formrules/pkg/submission/sqlstore"
	"github.com/goliatone/go-formrules/pkg/testsupport"
)

func openStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.Config{Path: path})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sample(id, farmer string, at time.Time) submission.Submission {
	n := 4.0
	yes := true
	return submission.Submission{
		ID:            id,
		FarmerID:      farmer,
		FormName:      "Farmer Registration",
		FormVersion:   formdef.Version("3"),
		FormVersionID: 12,
		Source:        submission.SourceMobile,
		State:         submission.StateSubmitted,
		SubmittedBy:   "agent-7",
		SubmittedAt:   at,
		Responses: []submission.Response{
			{Field: "livestock_count", Label: "Livestock Count", Type: formdef.FieldTypeNumber, Number: &n},
			{Field: "has_livestock", Label: "Keeps livestock?", Type: formdef.FieldTypeBoolean, Bool: &yes},
			{Field: "farm_location", Label: "Farm Location", Type: formdef.FieldTypeGPSPoint, Point: &submission.Point{Latitude: -1.28, Longitude: 36.82}},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := openStore(t, filepath.Join(t.TempDir(), "nested", "submissions.db"))
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 15, 30, 123, time.UTC)

	want := sample("s1", "F1", at)
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	want.State = submission.StateValidated
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = store.Get(ctx, "s1")
	if err != nil || got.State != submission.StateValidated {
		t.Fatalf("expected upsert to update state, got %+v (%v)", got, err)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, submission.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListByFarmerNewestFirst(t *testing.T) {
	t.Parallel()

	store := openStore(t, sqlstore.MemoryPath)
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	for i, entry := range []struct {
		id, farmer string
		offset     time.Duration
	}{
		{"a", "F1", time.Hour},
		{"b", "F2", 2 * time.Hour},
		{"c", "F1", 3 * time.Hour},
		{"d", "F1", 30 * time.Minute},
	} {
		if err := store.Save(ctx, sample(entry.id, entry.farmer, base.Add(entry.offset))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	list, err := store.ListByFarmer(ctx, "F1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, sub := range list {
		ids = append(ids, sub.ID)
	}
	if diff := cmp.Diff([]string{"c", "a", "d"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_BacksProcessor(t *testing.T) {
	t.Parallel()

	store := openStore(t, filepath.Join(t.TempDir(), "submissions.db"))
	proc := submission.NewProcessor(submission.WithStore(store))
	def := testsupport.LoadDefinition(t, testsupport.Registration)

	sub, err := proc.Process(context.Background(), submission.Request{
		FarmerID:   "FRM-010",
		Definition: def,
		Values:     testsupport.LoadValues(t, testsupport.RegistrationValues),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	list, err := store.ListByFarmer(context.Background(), "FRM-010")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != sub.ID {
		t.Fatalf("expected stored submission %s, got %+v", sub.ID, list)
	}
	if diff := cmp.Diff(sub.Responses, list[0].Responses); diff != "" {
		t.Fatalf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := sqlstore.Open(context.Background(), sqlstore.Config{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
