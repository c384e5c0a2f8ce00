package seed

import (
	"sync"
	"time"

	"github.com/google/uuid"

	searcherrors "github.com/simplyliz/searchd/internal/errors"
)

// JobStore is an in-memory registry of seeding jobs, modeled on the
// teacher's internal/jobs.Store but without the SQLite-backed
// persistence layer: seed jobs are short-lived and durability across
// restarts is not a requirement this façade carries.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create registers a new pending job for dataset and returns it.
func (s *JobStore) Create(dataset string) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get retrieves a job by ID.
func (s *JobStore) Get(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, searcherrors.NewNotFoundError("seed job not found: " + id)
	}
	copyJob := *job
	return &copyJob, nil
}

// List returns a snapshot of every tracked job, newest first.
func (s *JobStore) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		copyJob := *j
		out = append(out, &copyJob)
	}
	sortByCreatedDesc(out)
	return out
}

func sortByCreatedDesc(jobs []*Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}

// markRunning transitions job to running and records the start time.
func (s *JobStore) markRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = StatusRunning
		job.StartedAt = &now
	}
}

// updateProgress records progress and rows written so far for a running job.
func (s *JobStore) updateProgress(id string, progress, rowsWritten int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Progress = progress
		job.RowsWritten = rowsWritten
	}
}

// markCompleted transitions job to completed at 100% progress.
func (s *JobStore) markCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = StatusCompleted
		job.Progress = 100
		job.CompletedAt = &now
	}
}

// markFailed transitions job to failed, recording the error.
func (s *JobStore) markFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err.Error()
	}
}
