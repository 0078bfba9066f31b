// Package jobs owns the in-memory job table. All mutation goes through
// the Manager; callers only ever see snapshot copies.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"videoGateway/cache"
	"videoGateway/events"
	"videoGateway/models"
)

var (
	ErrNotFound       = errors.New("job not found")
	ErrAlreadyStarted = errors.New("job already started")
)

// PipelineFunc is one job's unit of work. Whatever it returns or
// panics with is recorded against the job, never propagated further.
type PipelineFunc func(ctx context.Context) (*models.ConversionResult, error)

type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*models.Job
	started map[string]bool

	sem    chan struct{}
	wg     sync.WaitGroup
	ttl    time.Duration
	logger *zap.Logger
	status *cache.StatusCache
	feed   *events.Producer
}

// NewManager builds a manager. status and feed may be nil. maxActive
// of zero leaves worker concurrency unbounded. ttl of zero disables
// eviction and both the table and the artifact dir grow without bound.
func NewManager(logger *zap.Logger, status *cache.StatusCache, feed *events.Producer, maxActive int, ttl time.Duration) *Manager {
	var sem chan struct{}
	if maxActive > 0 {
		sem = make(chan struct{}, maxActive)
	}
	return &Manager{
		jobs:    make(map[string]*models.Job),
		started: make(map[string]bool),
		sem:     sem,
		ttl:     ttl,
		logger:  logger,
		status:  status,
		feed:    feed,
	}
}

// Create inserts a fresh queued job and returns its ID. IDs are
// uuids and never reused.
func (m *Manager) Create() string {
	job := &models.Job{
		ID:        uuid.New().String(),
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.mirror(job.ID, models.StatusQueued)
	return job.ID
}

// Run schedules fn on its own goroutine. The job moves to processing
// before fn starts and to done or failed when it ends. A job runs at
// most once; a second Run for the same ID returns ErrAlreadyStarted.
func (m *Manager) Run(jobID string, fn PipelineFunc) error {
	job, err := m.claim(jobID)
	if err != nil {
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if m.sem != nil {
			m.sem <- struct{}{}
			defer func() { <-m.sem }()
		}
		m.execute(context.Background(), job, fn)
	}()
	return nil
}

// RunSync claims the job and runs fn inline, for the synchronous
// conversion path. Transitions are identical to Run.
func (m *Manager) RunSync(ctx context.Context, jobID string, fn PipelineFunc) (*models.ConversionResult, error) {
	job, err := m.claim(jobID)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, job, fn)
}

// Get returns a consistent snapshot of the job. Terminal reads are
// idempotent: once done or failed, every later read is identical.
func (m *Manager) Get(jobID string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// Shutdown waits for every spawned worker to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Janitor evicts terminal jobs older than the TTL until ctx ends.
// onEvict runs for each evicted ID so the caller can drop artifacts.
func (m *Manager) Janitor(ctx context.Context, interval time.Duration, onEvict func(jobID string)) {
	if m.ttl <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired(onEvict)
		}
	}
}

func (m *Manager) evictExpired(onEvict func(jobID string)) {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var evicted []string
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			delete(m.started, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		if err := m.status.Delete(context.Background(), id); err != nil {
			m.logger.Warn("status cache delete failed", zap.String("job_id", id), zap.Error(err))
		}
		if onEvict != nil {
			onEvict(id)
		}
		m.logger.Info("Evicted job", zap.String("job_id", id))
	}
}

// claim marks the job started while holding the lock, so two callers
// racing on the same ID cannot both execute it.
func (m *Manager) claim(jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.started[jobID] {
		return nil, ErrAlreadyStarted
	}
	m.started[jobID] = true
	return job, nil
}

func (m *Manager) execute(ctx context.Context, job *models.Job, fn PipelineFunc) (result *models.ConversionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			m.logger.Error("Job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
			)
			m.transition(job.ID, models.StatusFailed, nil, err.Error())
			result = nil
		}
	}()

	m.transition(job.ID, models.StatusProcessing, nil, "")

	result, err = fn(ctx)
	if err == nil && result == nil {
		err = errors.New("pipeline returned no result")
	}
	if err != nil {
		m.logger.Error("Job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		m.transition(job.ID, models.StatusFailed, nil, err.Error())
		return nil, err
	}

	m.transition(job.ID, models.StatusDone, result, "")
	return result, nil
}

// transition applies one forward state change. Terminal states win:
// anything arriving after done or failed is dropped, so an observer
// can never watch a job move backward.
func (m *Manager) transition(jobID string, status models.JobStatus, result *models.ConversionResult, errMsg string) {
	view, ok := m.apply(jobID, status, result, errMsg)
	if !ok {
		return
	}

	m.mirror(jobID, status)

	if status.Terminal() {
		event := &events.JobEvent{
			JobID:  jobID,
			Status: string(status),
			Error:  view.Error,
		}
		if status == models.StatusDone {
			event.OutURL = "/file/" + jobID + ".mp4"
		}
		if err := m.feed.Publish(context.Background(), event); err != nil {
			m.logger.Warn("event publish failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
}

// apply mutates the job under the lock and hands back a snapshot for
// the side effects that run unlocked. The lock release is deferred so
// nothing inside the critical section can strand it.
func (m *Manager) apply(jobID string, status models.JobStatus, result *models.ConversionResult, errMsg string) (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return models.Job{}, false
	}

	job.Status = status
	switch status {
	case models.StatusDone:
		if result != nil {
			job.OutputPath = result.OutputPath
			job.ThumbPath = result.ThumbPath
			job.Width = result.Width
			job.Height = result.Height
			job.ResultBytes = result.ResultBytes
			job.Note = result.Note
		}
		now := time.Now()
		job.CompletedAt = &now
	case models.StatusFailed:
		job.Error = errMsg
		now := time.Now()
		job.CompletedAt = &now
	}
	return *job, true
}

func (m *Manager) mirror(jobID string, status models.JobStatus) {
	if err := m.status.Set(context.Background(), jobID, status); err != nil {
		m.logger.Warn("status cache set failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
