// Package progress polls the status of data import jobs until they reach a
// terminal state.
package progress

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the delay between polls.
const DefaultInterval = 5 * time.Second

// FetchErrorText is the status line reported when a poll fails.
const FetchErrorText = "Error fetching progress."

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Poller repeatedly fetches a job status.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller constructs a Poller around fetcher.
func NewPoller(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run fetches immediately and then on every tick, handing each snapshot to
// onUpdate. It returns the last snapshot when the job reaches a terminal
// state, when a fetch fails (with its error) or when ctx is done.
func (p *Poller) Run(ctx context.Context, jobID string, onUpdate func(Snapshot)) (Snapshot, error) {
	var last Snapshot
	poll := func() (bool, error) {
		st, err := p.fetcher.Fetch(ctx, jobID)
		if err != nil {
			p.logger.Error("job progress fetch failed", zap.String("job_id", jobID), zap.Error(err))
			last.Text = FetchErrorText
			if st.Error != "" {
				last.Status = st
				last.Text = "Error: " + st.Error
			}
			notify(onUpdate, last)
			return true, err
		}
		last = Snapshot{Status: st, Percent: Percent(last.Percent, st), Text: StatusLine(st)}
		p.logger.Debug("job progress",
			zap.String("job_id", jobID),
			zap.String("state", string(st.State)),
			zap.Int("percent", last.Percent),
		)
		notify(onUpdate, last)
		return st.State.Terminal(), nil
	}

	if done, err := poll(); done || err != nil {
		return last, err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
			if done, err := poll(); done || err != nil {
				return last, err
			}
		}
	}
}

func notify(fn func(Snapshot), snap Snapshot) {
	if fn != nil {
		fn(snap)
	}
}
