package progress_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/progress"
)

func TestPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		prev   int
		status progress.Status
		want   int
	}{
		{"rounded ratio", 0, progress.Status{State: progress.StateInProgress, TotalRecordsInFile: 3, TotalRecordsProcessed: 2}, 67},
		{"done without totals", 10, progress.Status{State: progress.StateDone}, 100},
		{"in progress without totals", 40, progress.Status{State: progress.StateInProgress}, 0},
		{"draft keeps previous", 40, progress.Status{State: progress.StateDraft}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progress.Percent(tc.prev, tc.status); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	t.Parallel()

	got := progress.StatusLine(progress.Status{
		State:                 progress.StateInProgress,
		TotalRecordsInFile:    200,
		TotalRecordsProcessed: 50,
		SuccessfulRecords:     48,
		FailedRecords:         2,
	})
	want := "State: in_progress. Processed: 50/200. Success: 48, Failed: 2."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func scripted(statuses ...progress.Status) progress.Fetcher {
	var mu sync.Mutex
	calls := 0
	return progress.FetcherFunc(func(context.Context, string) (progress.Status, error) {
		mu.Lock()
		defer mu.Unlock()
		st := statuses[min(calls, len(statuses)-1)]
		calls++
		return st, nil
	})
}

func TestPoller_StopsOnTerminalState(t *testing.T) {
	t.Parallel()

	fetcher := scripted(
		progress.Status{State: progress.StateDraft},
		progress.Status{State: progress.StateInProgress, TotalRecordsInFile: 4, TotalRecordsProcessed: 1},
		progress.Status{State: progress.StateDone, TotalRecordsInFile: 4, TotalRecordsProcessed: 4, SuccessfulRecords: 4},
		progress.Status{State: progress.StateInProgress},
	)
	poller := progress.NewPoller(fetcher, progress.WithInterval(time.Millisecond))

	var percents []int
	last, err := poller.Run(context.Background(), "7", func(s progress.Snapshot) {
		percents = append(percents, s.Percent)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]int{0, 25, 100}, percents); diff != "" {
		t.Fatalf("percent sequence mismatch (-want +got):\n%s", diff)
	}
	if last.State != progress.StateDone {
		t.Fatalf("expected done, got %s", last.State)
	}
}

func TestPoller_FetchErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	poller := progress.NewPoller(progress.FetcherFunc(func(context.Context, string) (progress.Status, error) {
		return progress.Status{}, boom
	}))

	last, err := poller.Run(context.Background(), "7", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if last.Text != progress.FetchErrorText {
		t.Fatalf("expected %q, got %q", progress.FetchErrorText, last.Text)
	}
}

func TestPoller_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	poller := progress.NewPoller(scripted(progress.Status{State: progress.StateInProgress}), progress.WithInterval(time.Millisecond))

	calls := 0
	_, err := poller.Run(ctx, "7", func(progress.Snapshot) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/dfr_data_tools/job_progress/42", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"result": {"state": "in_progress", "total_records_in_file": 10, "total_records_processed": 5, "successful_records": 5}}`)
	})
	mux.HandleFunc("/dfr_data_tools/job_progress/43", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"state": "done", "total_records_processed": 3}`)
	})
	mux.HandleFunc("/dfr_data_tools/job_progress/44", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error": "Job not found"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := progress.NewHTTPFetcher(server.URL+"/", server.Client())

	got, err := fetcher.Fetch(context.Background(), "42")
	if err != nil {
		t.Fatalf("fetch 42: %v", err)
	}
	want := progress.Status{State: progress.StateInProgress, TotalRecordsInFile: 10, TotalRecordsProcessed: 5, SuccessfulRecords: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}

	got, err = fetcher.Fetch(context.Background(), "43")
	if err != nil || got.State != progress.StateDone {
		t.Fatalf("fetch 43: %+v, %v", got, err)
	}

	_, err = fetcher.Fetch(context.Background(), "44")
	if !errors.Is(err, progress.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}

	if _, err := fetcher.Fetch(context.Background(), "99"); err == nil {
		t.Fatalf("expected 404 to fail")
	}
}

func TestPoller_RemoteErrorText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error": "Job not found"}`)
	}))
	t.Cleanup(server.Close)

	poller := progress.NewPoller(progress.NewHTTPFetcher(server.URL, server.Client()))
	last, err := poller.Run(context.Background(), "1", nil)
	if !errors.Is(err, progress.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	if last.Text != "Error: Job not found" {
		t.Fatalf("unexpected text %q", last.Text)
	}
}
