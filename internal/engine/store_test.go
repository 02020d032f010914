package engine

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rowan/genbridge/internal/domain"
)

func makeJob(id, workflowID string, status domain.JobStatus, createdAt time.Time) domain.Job {
	return domain.Job{
		ID:         id,
		WorkflowID: workflowID,
		Status:     status,
		CreatedAt:  createdAt,
	}
}

func assertSorted(t *testing.T, jobs []domain.Job) {
	t.Helper()
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Errorf("jobs not sorted newest-first at index %d: %v after %v",
				i, jobs[i-1].CreatedAt, jobs[i].CreatedAt)
		}
	}
}

func TestStoreUpsertIdempotent(t *testing.T) {
	s := NewStore("wf1")
	job := makeJob("a", "wf1", domain.JobStatusRunning, time.Now())

	if !s.Upsert(job) {
		t.Fatal("expected upsert to apply")
	}
	first := s.Jobs()

	if !s.Upsert(job) {
		t.Fatal("expected repeated upsert to apply")
	}
	second := s.Jobs()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 job after both upserts, got %d then %d", len(first), len(second))
	}
	if !reflect.DeepEqual(first[0], second[0]) {
		t.Errorf("repeated upsert changed the record: %+v vs %+v", first[0], second[0])
	}
}

func TestStoreUpsertReplacesWholeRecord(t *testing.T) {
	s := NewStore("wf1")
	created := time.Now()

	running := makeJob("a", "wf1", domain.JobStatusRunning, created)
	running.Progress = &domain.Progress{Value: 3, Max: 10}
	s.Upsert(running)

	done := makeJob("a", "wf1", domain.JobStatusCompleted, created)
	s.Upsert(done)

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("job missing after upsert")
	}
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Progress != nil {
		t.Error("expected whole-record replace to drop stale progress")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
}

func TestStoreNoDuplicateIDs(t *testing.T) {
	s := NewStore("wf1")
	base := time.Now()

	// Interleave inserts and re-inserts with shifting timestamps.
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("job-%d", i%5)
		s.Upsert(makeJob(id, "wf1", domain.JobStatusQueued, base.Add(time.Duration(i)*time.Second)))
	}

	jobs := s.Jobs()
	seen := make(map[string]bool)
	for _, j := range jobs {
		if seen[j.ID] {
			t.Fatalf("duplicate id %s in store", j.ID)
		}
		seen[j.ID] = true
	}
	if len(jobs) != 5 {
		t.Errorf("expected 5 unique jobs, got %d", len(jobs))
	}
	assertSorted(t, jobs)
}

func TestStoreSortInvariant(t *testing.T) {
	s := NewStore("wf1")
	base := time.Now()

	order := []int{3, 0, 4, 1, 2}
	for _, n := range order {
		s.Upsert(makeJob(fmt.Sprintf("j%d", n), "wf1", domain.JobStatusPending, base.Add(time.Duration(n)*time.Minute)))
		assertSorted(t, s.Jobs())
	}

	jobs := s.Jobs()
	if jobs[0].ID != "j4" || jobs[len(jobs)-1].ID != "j0" {
		t.Errorf("unexpected order: first=%s last=%s", jobs[0].ID, jobs[len(jobs)-1].ID)
	}
}

func TestStoreWorkflowIsolation(t *testing.T) {
	s := NewStore("wf1")
	s.Upsert(makeJob("a", "wf1", domain.JobStatusRunning, time.Now()))

	if s.Upsert(makeJob("b", "wf2", domain.JobStatusRunning, time.Now())) {
		t.Error("expected upsert for another workflow to be a no-op")
	}
	if s.Len() != 1 {
		t.Errorf("expected foreign-workflow upsert to leave store unchanged, got %d entries", s.Len())
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore("wf1")
	base := time.Now()
	s.Upsert(makeJob("old", "wf1", domain.JobStatusCompleted, base.Add(-time.Hour)))

	s.Replace([]domain.Job{
		makeJob("a", "wf1", domain.JobStatusRunning, base),
		makeJob("foreign", "wf2", domain.JobStatusRunning, base),
		makeJob("a", "wf1", domain.JobStatusCompleted, base.Add(time.Minute)),
		makeJob("b", "wf1", domain.JobStatusQueued, base.Add(2*time.Minute)),
	})

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs after replace, got %d", len(jobs))
	}
	if _, ok := s.Get("old"); ok {
		t.Error("replace should drop entries missing from the new list")
	}
	if _, ok := s.Get("foreign"); ok {
		t.Error("replace should drop entries for other workflows")
	}
	got, _ := s.Get("a")
	if got.Status != domain.JobStatusRunning {
		t.Errorf("duplicate ids should collapse to first occurrence, got %s", got.Status)
	}
	assertSorted(t, jobs)
}

func TestStoreHasActive(t *testing.T) {
	s := NewStore("wf1")
	if s.HasActive() {
		t.Error("empty store should not report active jobs")
	}
	s.Upsert(makeJob("a", "wf1", domain.JobStatusCompleted, time.Now()))
	if s.HasActive() {
		t.Error("completed job should not count as active")
	}
	s.Upsert(makeJob("b", "wf1", domain.JobStatusQueued, time.Now()))
	if !s.HasActive() {
		t.Error("queued job should count as active")
	}
}
