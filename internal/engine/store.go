package engine

import (
	"sort"

	"github.com/rowan/genbridge/internal/domain"
)

// Store is the canonical, deduplicated, time-ordered job collection for one
// workflow. It is not safe for concurrent use by itself; the owning View
// serializes all access.
type Store struct {
	workflowID string
	jobs       []domain.Job
}

// NewStore creates an empty store bound to one workflow.
func NewStore(workflowID string) *Store {
	return &Store{workflowID: workflowID}
}

// WorkflowID returns the workflow this store is bound to.
func (s *Store) WorkflowID() string {
	return s.workflowID
}

// Upsert replaces any existing entry with the same id and re-sorts. Updates
// for a different workflow are silently discarded; this also guards against a
// slow update arriving after the user navigated away. Returns whether the
// store changed.
func (s *Store) Upsert(job domain.Job) bool {
	if job.WorkflowID != s.workflowID {
		return false
	}
	for i := range s.jobs {
		if s.jobs[i].ID == job.ID {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			break
		}
	}
	s.jobs = append(s.jobs, job)
	s.sortLocked()
	return true
}

// Replace swaps the whole list, as the polling fallback does. Entries for
// other workflows are dropped and duplicate ids collapse to their first
// occurrence, preserving the store invariants regardless of backend behavior.
func (s *Store) Replace(jobs []domain.Job) {
	next := make([]domain.Job, 0, len(jobs))
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job.WorkflowID != s.workflowID {
			continue
		}
		if _, ok := seen[job.ID]; ok {
			continue
		}
		seen[job.ID] = struct{}{}
		next = append(next, job)
	}
	s.jobs = next
	s.sortLocked()
}

// Get returns the job with the given id.
func (s *Store) Get(id string) (domain.Job, bool) {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return s.jobs[i], true
		}
	}
	return domain.Job{}, false
}

// Jobs returns a copy of the job list, newest first.
func (s *Store) Jobs() []domain.Job {
	out := make([]domain.Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Len returns the number of jobs in the store.
func (s *Store) Len() int {
	return len(s.jobs)
}

// HasActive reports whether any job is in a non-terminal state.
func (s *Store) HasActive() bool {
	for i := range s.jobs {
		if s.jobs[i].Active() {
			return true
		}
	}
	return false
}

// sortLocked keeps entries sorted by creation time, newest first. Stable so
// equal timestamps keep their relative order.
func (s *Store) sortLocked() {
	sort.SliceStable(s.jobs, func(i, j int) bool {
		return s.jobs[i].CreatedAt.After(s.jobs[j].CreatedAt)
	})
}
