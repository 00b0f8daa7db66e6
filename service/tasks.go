package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// ValidationTask is one queued validation attempt.
type ValidationTask struct {
	ContractID  string
	Draft       map[string]any
	DocumentRef *string
	JobID       string
}

// ValidationQueue runs validation attempts on a bounded in-process queue.
// Submission is fire-and-forget from the caller's point of view, but
// submission failures are reported, never swallowed: a full queue returns
// ErrQueueFull and marks the job row failed.
type ValidationQueue struct {
	svc   *ValidationService
	jobs  JobStore
	tasks chan ValidationTask

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewValidationQueue(svc *ValidationService, jobs JobStore, size int) *ValidationQueue {
	if size <= 0 {
		size = 16
	}
	return &ValidationQueue{
		svc:   svc,
		jobs:  jobs,
		tasks: make(chan ValidationTask, size),
	}
}

// Start launches the worker goroutines.
func (q *ValidationQueue) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Submit creates a queued job row and hands the task to a worker. Returns
// the job id so callers can watch it. The task's eventual outcome is
// independent of submission: a successful Submit says nothing about whether
// validation will succeed.
func (q *ValidationQueue) Submit(ctx context.Context, contractID string, draft map[string]any, documentRef *string) (string, error) {
	job := &model.ContractAIJob{
		ID:         uuid.New().String(),
		ContratoID: contractID,
		Status:     model.JobStatusQueued,
		StartedAt:  time.Now(),
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	task := ValidationTask{
		ContractID:  contractID,
		Draft:       draft,
		DocumentRef: documentRef,
		JobID:       job.ID,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.failSubmission(ctx, job.ID, "queue shut down")
		return "", ErrQueueFull
	}

	select {
	case q.tasks <- task:
		return job.ID, nil
	default:
		q.failSubmission(ctx, job.ID, "queue full")
		return "", ErrQueueFull
	}
}

func (q *ValidationQueue) failSubmission(ctx context.Context, jobID, reason string) {
	slog.Error("validation task submission failed", "job_id", jobID, "reason", reason)
	if err := q.jobs.UpdateStatus(ctx, jobID, model.JobStatusFailed, reason); err != nil {
		slog.Warn("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// Shutdown stops accepting tasks and waits for in-flight work, bounded by
// the context deadline.
func (q *ValidationQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ValidationQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		result, err := q.svc.RunValidation(context.Background(), task.ContractID, task.Draft, task.DocumentRef, task.JobID)
		if err != nil {
			slog.Error("validation task aborted",
				"contract_id", task.ContractID,
				"job_id", task.JobID,
				"error", err,
			)
			if err := q.jobs.UpdateStatus(context.Background(), task.JobID, model.JobStatusFailed, err.Error()); err != nil {
				slog.Warn("failed to mark job failed", "job_id", task.JobID, "error", err)
			}
			continue
		}
		slog.Info("validation task finished",
			"contract_id", task.ContractID,
			"job_id", task.JobID,
			"success", result.Success,
			"status", result.Status,
		)
	}
}
