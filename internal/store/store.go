package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videoforge/internal/domain"
)

// Store holds every known job and serves the worker a strict
// arrival-order stream of pending jobs. All state is in memory; nothing
// survives a process restart.
type Store struct {
	mu    sync.Mutex
	jobs  map[string]*domain.JobRecord
	queue []string
	wake  chan struct{}

	// locks holds one mutex per job id, shared by the worker and the
	// regeneration controller so they never mutate the same record
	// concurrently.
	locks map[string]*sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		jobs:  make(map[string]*domain.JobRecord),
		wake:  make(chan struct{}, 1),
		locks: make(map[string]*sync.Mutex),
	}
}

// Submit validates the job, assigns it a unique id, and appends it to the
// FIFO queue in Pending state.
func (s *Store) Submit(job domain.JobRecord) (string, error) {
	if strings.TrimSpace(job.Title) == "" {
		return "", &domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(job.ScriptText) == "" && strings.TrimSpace(job.ScriptPath) == "" {
		return "", &domain.ValidationError{Field: "script", Reason: "must not be empty"}
	}

	job.ID = uuid.NewString()
	job.State = domain.StatePending
	job.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	rec := job
	s.jobs[job.ID] = &rec
	s.queue = append(s.queue, job.ID)
	s.locks[job.ID] = &sync.Mutex{}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return job.ID, nil
}

// Dequeue pops the oldest pending job, blocking up to timeout. The second
// return value is false when the timeout elapsed with nothing queued;
// that is not an error.
func (s *Store) Dequeue(timeout time.Duration) (domain.JobRecord, bool) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			id := s.queue[0]
			s.queue = s.queue[1:]
			rec := s.jobs[id].Clone()
			s.mu.Unlock()
			return rec, true
		}
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return domain.JobRecord{}, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Get returns a snapshot of one job.
func (s *Store) Get(id string) (domain.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.JobRecord{}, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns snapshots of every job ordered by creation time.
func (s *Store) List() []domain.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Update applies fn to the stored record atomically.
func (s *Store) Update(id string, fn func(*domain.JobRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(rec)
	return nil
}

// Guard returns the per-job mutex for id. The worker holds it for the
// whole pipeline run of a job; the regeneration controller holds it for
// the duration of a single-stage re-run.
func (s *Store) Guard(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[id]
}
