package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/logger"
)

// View owns the job store, upload cache, push session, timers, and recheck
// attempt record for one workflow selection. Its context is the cancellation
// token for the whole selection epoch: every async resolution re-checks it
// before touching state, so responses that land after a workflow switch are
// detected and discarded.
type View struct {
	workflowID string
	gen        uint64
	opts       Options
	backend    Backend
	push       PushDialer
	logger     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes every store mutation; the update sources converge here.
	mu        sync.Mutex
	store     *Store
	uploads   *UploadCache
	rechecked map[string]struct{}
	connected bool
	now       time.Time
	session   PushSession

	// submitMu keeps submissions sequential, matching the single-runner UI.
	submitMu sync.Mutex
}

func newView(parent context.Context, workflowID string, gen uint64, be Backend, push PushDialer, inputDir string, opts Options, log *logger.Logger) *View {
	ctx, cancel := context.WithCancel(parent)
	v := &View{
		workflowID: workflowID,
		gen:        gen,
		opts:       opts,
		backend:    be,
		push:       push,
		logger: log.WithFields(logger.Fields{
			logger.FieldWorkflowID: workflowID,
			"view_gen":             gen,
		}),
		ctx:       ctx,
		cancel:    cancel,
		store:     NewStore(workflowID),
		rechecked: make(map[string]struct{}),
		now:       time.Now(),
	}
	v.uploads = NewUploadCache(be, inputDir, v.logger)
	return v
}

// start opens the push channel and launches the background loops.
func (v *View) start() {
	go v.openPush()
	go v.clockLoop()
	go v.refreshLoop()
	go v.refresh("initial")
}

// close tears the view down: push channel first, then every timer and pending
// callback via the epoch context. Store, cache, and recheck record die with
// the view.
func (v *View) close() {
	v.cancel()
	v.mu.Lock()
	session := v.session
	v.session = nil
	v.mu.Unlock()
	if session != nil {
		session.Close()
	}
	v.logger.Debug("workflow view closed")
}

// WorkflowID returns the workflow this view is bound to.
func (v *View) WorkflowID() string {
	return v.workflowID
}

// Jobs returns the deduplicated job list, newest first.
func (v *View) Jobs() []domain.Job {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.Jobs()
}

// Now returns the duration-display reference time. It advances on the clock
// tick only while jobs are active, so displayed durations are stable between
// ticks.
func (v *View) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Status reports the live-channel connectivity flag and the active job count,
// the signal behind the UI's stale-progress warning.
func (v *View) Status() (connected bool, activeJobs int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, j := range v.store.jobs {
		if j.Active() {
			activeJobs++
		}
	}
	return v.connected, activeJobs
}

// openPush dials the push channel once. Dial failure is not retried: the
// polling fallback covers the gap until the workflow is re-selected.
func (v *View) openPush() {
	session, err := v.push.Dial(v.ctx, v.workflowID, v.applyPush, v.setConnected)
	if err != nil {
		v.logger.WithError(err).Warn("push channel unavailable, relying on polling fallback")
		return
	}
	v.mu.Lock()
	if v.ctx.Err() != nil {
		v.mu.Unlock()
		session.Close()
		return
	}
	v.session = session
	v.mu.Unlock()
}

func (v *View) applyPush(job domain.Job) {
	v.apply(job, "push")
}

func (v *View) setConnected(connected bool) {
	v.mu.Lock()
	if v.ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	v.connected = connected
	v.mu.Unlock()
	v.logger.WithField("connected", connected).Info("push channel state changed")
}

// apply upserts one job snapshot from any update source and scans for suspect
// jobs. Snapshots for a stale epoch or another workflow are discarded.
func (v *View) apply(job domain.Job, source string) {
	v.mu.Lock()
	if v.ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	changed := v.store.Upsert(job)
	var due []string
	if changed {
		due = v.suspectsLocked()
	}
	v.mu.Unlock()

	if !changed {
		v.logger.WithFields(logger.Fields{
			logger.FieldJobID:  job.ID,
			logger.FieldSource: source,
		}).Debug("discarded job update for another workflow")
		return
	}
	for _, id := range due {
		v.scheduleRecheck(id)
	}
}

// refresh re-fetches the whole job list and replaces the store wholesale.
// Failures are logged only; the next tick self-corrects the view.
func (v *View) refresh(source string) {
	jobs, err := v.backend.ListJobs(v.ctx, v.workflowID)
	if err != nil {
		if v.ctx.Err() == nil {
			v.logger.WithError(err).WithField(logger.FieldSource, source).Warn("job list refresh failed")
		}
		return
	}

	v.mu.Lock()
	if v.ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	v.store.Replace(jobs)
	due := v.suspectsLocked()
	v.mu.Unlock()

	for _, id := range due {
		v.scheduleRecheck(id)
	}
}

// clockLoop advances the duration-display reference while any job is active.
// It performs no network I/O and dies with the epoch context.
func (v *View) clockLoop() {
	ticker := time.NewTicker(v.opts.ClockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.ctx.Done():
			return
		case t := <-ticker.C:
			v.mu.Lock()
			if v.store.HasActive() {
				v.now = t
			}
			v.mu.Unlock()
		}
	}
}

// refreshLoop is the polling fallback. The tick is suppressed while jobs are
// active and the push channel is connected, trusting the push channel instead
// of generating needless load.
func (v *View) refreshLoop() {
	ticker := time.NewTicker(v.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C:
			v.mu.Lock()
			suppress := v.store.HasActive() && v.connected
			v.mu.Unlock()
			if suppress {
				continue
			}
			v.refresh("poll")
		}
	}
}

// suspectsLocked returns suspect job ids not yet scheduled for an automatic
// recheck and marks them attempted. A given id is scheduled at most once per
// workflow selection, no matter how often the store changes while it stays
// suspect. Caller holds v.mu.
func (v *View) suspectsLocked() []string {
	var due []string
	for i := range v.store.jobs {
		j := &v.store.jobs[i]
		if !j.Suspect() {
			continue
		}
		if _, done := v.rechecked[j.ID]; done {
			continue
		}
		v.rechecked[j.ID] = struct{}{}
		due = append(due, j.ID)
	}
	return due
}

// scheduleRecheck runs a delayed automatic recheck for one suspect job. The
// delay absorbs the output visibility race instead of hammering the backend
// right after completion.
func (v *View) scheduleRecheck(id string) {
	v.logger.WithField(logger.FieldJobID, id).Info("scheduling output recheck")
	go func() {
		timer := time.NewTimer(v.opts.RecheckDelay)
		defer timer.Stop()
		select {
		case <-v.ctx.Done():
			return
		case <-timer.C:
		}
		if err := v.recheckFetch(v.ctx, id); err != nil && v.ctx.Err() == nil {
			v.logger.WithError(err).WithField(logger.FieldJobID, id).Warn("automatic recheck failed")
		}
	}()
}

// recheckFetch triggers backend-side output discovery and merges the refreshed
// record. Shared by the automatic and manual recheck paths.
func (v *View) recheckFetch(ctx context.Context, id string) error {
	if err := v.backend.RecheckJob(ctx, id); err != nil {
		return err
	}
	job, err := v.backend.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Suspect() {
		// Either the output is still not visible or the workflow genuinely
		// produced nothing; the once-per-selection guard bounds retries.
		v.logger.WithField(logger.FieldJobID, id).Debug("recheck returned a completed job with no outputs")
	}
	v.apply(*job, "recheck")
	return nil
}

// Recheck is the user-triggered recheck path. It fires immediately, may be
// repeated, and surfaces failures to the caller.
func (v *View) Recheck(ctx context.Context, id string) error {
	if v.ctx.Err() != nil {
		return fmt.Errorf("workflow view closed")
	}
	return v.recheckFetch(ctx, id)
}

// Cancel optimistically marks the job cancelled so the UI responds instantly,
// then asks the backend. If the backend call fails or does not confirm, a full
// re-fetch restores ground truth instead of reporting an error.
func (v *View) Cancel(ctx context.Context, id string) error {
	v.mu.Lock()
	if v.ctx.Err() != nil {
		v.mu.Unlock()
		return fmt.Errorf("workflow view closed")
	}
	job, ok := v.store.Get(id)
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("unknown job %s", id)
	}
	completed := time.Now()
	job.Status = domain.JobStatusCancelled
	job.ErrorMessage = "Cancelled"
	job.CompletedAt = &completed
	v.store.Upsert(job)
	v.mu.Unlock()

	status, err := v.backend.CancelJob(ctx, id)
	if err != nil || (status != "" && status != domain.JobStatusCancelled) {
		if err != nil {
			v.logger.WithError(err).WithField(logger.FieldJobID, id).Warn("backend cancel not confirmed, re-fetching")
		}
		go v.refresh("cancel-reconcile")
	}
	return nil
}
