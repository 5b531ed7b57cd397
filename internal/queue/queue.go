// Package queue is a badger-backed FIFO job queue with a polling worker
// pool. Discovery jobs fan out per municipality and source; extraction jobs
// consume candidates one at a time.
package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// JobStatus is the queue lifecycle of one job.
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

// Job is one persisted unit of work. Payload carries the handler-specific
// message as JSON.
type Job struct {
	ID              string          `json:"id" badgerhold:"key"`
	RunID           string          `json:"run_id" badgerhold:"index"`
	Type            models.JobType  `json:"type"`
	MunicipalityKey string          `json:"municipality_key"`
	Payload         json.RawMessage `json:"payload"`
	Status          JobStatus       `json:"status" badgerhold:"index"`
	Attempts        int             `json:"attempts"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Queue persists jobs in badgerhold and hands them out oldest first. Claiming
// is serialized by a mutex so two workers never take the same job.
type Queue struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	mu     sync.Mutex
}

func New(store *badgerhold.Store, logger arbor.ILogger) *Queue {
	return &Queue{store: store, logger: logger}
}

// Enqueue persists a new pending job and returns its ID.
func (q *Queue) Enqueue(runID string, jobType models.JobType, municipalityKey string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:              uuid.New().String(),
		RunID:           runID,
		Type:            jobType,
		MunicipalityKey: municipalityKey,
		Payload:         raw,
		Status:          JobPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := q.store.Upsert(job.ID, job); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// Dequeue claims the oldest pending job of a run, or nil when the queue is
// drained.
func (q *Queue) Dequeue(runID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pending []*Job
	err := q.store.Find(&pending,
		badgerhold.Where("RunID").Eq(runID).Index("RunID").And("Status").Eq(JobPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	job := pending[0]
	job.Status = JobRunning
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	if err := q.store.Upsert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}
	return job, nil
}

// Complete marks a job done.
func (q *Queue) Complete(jobID string) error {
	return q.finish(jobID, JobDone, "")
}

// Fail marks a job failed with its terminal error message.
func (q *Queue) Fail(jobID string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return q.finish(jobID, JobFailed, msg)
}

func (q *Queue) finish(jobID string, status JobStatus, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var job Job
	if err := q.store.Get(jobID, &job); err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	if err := q.store.Upsert(job.ID, &job); err != nil {
		return fmt.Errorf("failed to finish job %s: %w", jobID, err)
	}
	return nil
}

// Counts returns how many jobs of a run sit in each status.
func (q *Queue) Counts(runID string) (map[JobStatus]int, error) {
	var jobs []*Job
	err := q.store.Find(&jobs, badgerhold.Where("RunID").Eq(runID).Index("RunID"))
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs for run %s: %w", runID, err)
	}
	counts := map[JobStatus]int{}
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// Drained reports whether no pending or running jobs remain for a run.
func (q *Queue) Drained(runID string) (bool, error) {
	counts, err := q.Counts(runID)
	if err != nil {
		return false, err
	}
	return counts[JobPending] == 0 && counts[JobRunning] == 0, nil
}
