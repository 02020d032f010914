// Package engine implements the job lifecycle synchronization engine: it
// submits generation jobs to the backend and converges the push channel, the
// polling fallback, and completion rechecks into one consistent per-workflow
// job view.
package engine

import (
	"context"
	"time"

	"github.com/rowan/genbridge/internal/domain"
)

// Backend is the subset of the backend contract the engine consumes.
type Backend interface {
	RunWorkflow(ctx context.Context, workflowID string, inputs []domain.RunInput) (string, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, workflowID string) ([]domain.Job, error)
	CancelJob(ctx context.Context, jobID string) (domain.JobStatus, error)
	RecheckJob(ctx context.Context, jobID string) error
	UploadImage(ctx context.Context, filename string, data []byte) (*domain.UploadDescriptor, error)
}

// PushSession is one open push connection.
type PushSession interface {
	Close() error
}

// PushDialer opens a push connection scoped to one workflow. onJob receives
// every valid job event, onState reports connectivity changes. The engine
// never redials a dropped session; the polling fallback covers the gap until
// the workflow is re-selected.
type PushDialer interface {
	Dial(ctx context.Context, workflowID string, onJob func(domain.Job), onState func(bool)) (PushSession, error)
}

// Options holds the engine's timer intervals.
type Options struct {
	// ClockInterval advances the duration-display clock while jobs are
	// active. No network I/O happens on this tick.
	ClockInterval time.Duration

	// RefreshInterval drives the polling fallback full re-fetch.
	RefreshInterval time.Duration

	// RecheckDelay is how long an automatic output recheck waits before
	// hitting the backend, absorbing the output visibility race.
	RecheckDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.ClockInterval <= 0 {
		o.ClockInterval = time.Second
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 8 * time.Second
	}
	if o.RecheckDelay <= 0 {
		o.RecheckDelay = 3 * time.Second
	}
	return o
}
