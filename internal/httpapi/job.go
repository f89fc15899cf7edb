// Package httpapi is the supplemental async HTTP surface (SPEC_FULL.md §6):
// a thin REST frontend over pipeline.Run and the handle-based network
// capture primitives already implemented in internal/pipeline and
// internal/network, for callers who would rather poll an HTTP resource than
// hold a CLI process open.
package httpapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status mirrors the teacher's pending → running → complete | failed
// lifecycle, generalized to cover any job kind this surface exposes.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Kind distinguishes the two async job families this surface fronts.
type Kind string

const (
	KindPipelineRun     Kind = "pipeline-run"
	KindNetworkCapture  Kind = "network-capture"
)

// Job is a single async unit of work: a pipeline run or a handle-based
// network capture, tracked from submission through completion.
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind       `json:"kind"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	// Result holds the kind-specific payload once Status is complete:
	// *pipeline.RunResult for KindPipelineRun, *network.WorkerResult for
	// KindNetworkCapture.
	Result any `json:"result,omitempty"`

	// Error is non-empty once Status is failed.
	Error string `json:"error,omitempty"`
}

// Store persists and retrieves Jobs. The in-memory implementation below
// suits a single `serve` instance; a future multi-instance deployment would
// satisfy the same interface backed by the state store or an external DB.
type Store interface {
	Create(kind Kind) (*Job, error)
	Get(id string) (*Job, error)
	MarkRunning(id string) error
	MarkComplete(id string, result any) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store, grounded directly on
// internal/operation.MemoryStore's lock-and-copy shape.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(kind Kind) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job, nil
}

func (s *MemoryStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %q not found", id)
	}
	copy := *job
	return &copy, nil
}

func (s *MemoryStore) MarkRunning(id string) error {
	return s.update(id, func(j *Job) { j.Status = StatusRunning })
}

func (s *MemoryStore) MarkComplete(id string, result any) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusComplete
		j.Result = result
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}
