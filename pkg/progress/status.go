package progress

import (
	"fmt"
	"math"
)

// State is the lifecycle state of a data import job.
type State string

const (
	StateDraft      State = "draft"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
	StateError      State = "error"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether polling should stop at s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError || s == StateCancelled
}

// Status is the payload of the job progress endpoint.
type Status struct {
	State                 State  `json:"state"`
	TotalRecordsInFile    int    `json:"total_records_in_file"`
	TotalRecordsProcessed int    `json:"total_records_processed"`
	SuccessfulRecords     int    `json:"successful_records"`
	FailedRecords         int    `json:"failed_records"`
	LogSummary            string `json:"log_summary,omitempty"`
	Error                 string `json:"error,omitempty"`
}

// Snapshot is one poll result as presented to callers.
type Snapshot struct {
	Status
	Percent int
	Text    string
}

// Percent computes completion for st. Without a file total, done is 100,
// in_progress is 0 and any other state keeps prev.
func Percent(prev int, st Status) int {
	if st.TotalRecordsInFile > 0 {
		return int(math.Round(float64(st.TotalRecordsProcessed) / float64(st.TotalRecordsInFile) * 100))
	}
	switch st.State {
	case StateDone:
		return 100
	case StateInProgress:
		return 0
	default:
		return prev
	}
}

// StatusLine formats the human readable progress summary.
func StatusLine(st Status) string {
	return fmt.Sprintf("State: %s. Processed: %d/%d. Success: %d, Failed: %d.",
		st.State, st.TotalRecordsProcessed, st.TotalRecordsInFile, st.SuccessfulRecords, st.FailedRecords)
}
