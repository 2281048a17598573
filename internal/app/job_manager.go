package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/infrastructure"
	"github.com/yourusername/ytfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// commandLiner is implemented by runners that can render the invocation for history.
type commandLiner interface {
	CommandLine(req domain.DownloadRequest) string
}

// JobManager ties submitted jobs to their history records, the event hub
// and completion notifications.
type JobManager struct {
	repo       domain.JobRepository
	runner     domain.JobRunner
	hub        *EventHub
	notifier   *infrastructure.NotificationService
	logs       *logger.LoggerAdapter
	defaultDir string
}

// NewJobManager creates a new job manager. notifier may be nil.
func NewJobManager(
	repo domain.JobRepository,
	runner domain.JobRunner,
	hub *EventHub,
	notifier *infrastructure.NotificationService,
	logs *logger.LoggerAdapter,
	defaultDir string,
) *JobManager {
	return &JobManager{
		repo:       repo,
		runner:     runner,
		hub:        hub,
		notifier:   notifier,
		logs:       logs,
		defaultDir: defaultDir,
	}
}

// RecoverInterrupted fails the records a previous process left running
func (m *JobManager) RecoverInterrupted() error {
	n, err := m.repo.MarkInterrupted()
	if err != nil {
		return fmt.Errorf("failed to mark interrupted jobs: %w", err)
	}
	if n > 0 {
		m.logs.LogEvent(logger.CategoryJob, "jobs_interrupted", zap.Int64("count", n))
	}
	return nil
}

// Submit records and starts a job. A returned record with status spawn_failed
// comes with the spawn error; a running record means events will follow on the hub.
func (m *JobManager) Submit(ctx context.Context, req domain.DownloadRequest) (*domain.JobRecord, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Location == "" {
		req.Location = m.defaultDir
	}

	rec := domain.NewJobRecord(req)
	cmdLine := ""
	if cl, ok := m.runner.(commandLiner); ok {
		cmdLine = cl.CommandLine(req)
	}
	rec.MarkRunning(cmdLine)

	if err := m.repo.Create(rec); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}

	m.logs.LogEvent(logger.CategoryJob, "job_submitted",
		zap.String("id", rec.ID),
		zap.String("url", req.URL),
		zap.String("mode", string(req.Mode)),
		zap.String("location", req.Location))

	err := m.runner.Submit(ctx, rec.ID, req, m.sink(rec.ID, req))
	if err != nil {
		rec.MarkSpawnFailed(err)
		if uerr := m.repo.Update(rec); uerr != nil {
			m.logs.Error().Error("Failed to record spawn failure", zap.String("id", rec.ID), zap.Error(uerr))
		}
		m.logs.LogError(logger.CategoryJob, "job_spawn_failed",
			zap.String("id", rec.ID),
			zap.Error(err))
		return rec, err
	}

	return rec, nil
}

// sink publishes every event and settles the record on the terminal one
func (m *JobManager) sink(id string, req domain.DownloadRequest) domain.JobSink {
	return func(ev domain.JobEvent) {
		m.hub.PublishJob(ev)
		if ev.Kind == domain.JobEventComplete && ev.Result != nil {
			m.finish(id, req, *ev.Result)
		}
	}
}

func (m *JobManager) finish(id string, req domain.DownloadRequest, res domain.JobResult) {
	rec, err := m.repo.FindByID(id)
	if err != nil {
		m.logs.LogError(logger.CategoryJob, "job_record_missing", zap.String("id", id), zap.Error(err))
		return
	}

	rec.ApplyResult(res)
	if err := m.repo.Update(rec); err != nil {
		m.logs.LogError(logger.CategoryJob, "job_record_update_failed", zap.String("id", id), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("id", id),
		zap.String("status", string(rec.Status)),
		zap.Int("exit_code", res.ExitCode),
		zap.String("message", res.Message),
	}
	if res.Success {
		m.logs.LogEvent(logger.CategoryJob, "job_completed", append(fields,
			zap.String("file", res.Filename),
			zap.Int64("size", res.FileSize))...)
	} else {
		m.logs.LogEvent(logger.CategoryJob, "job_failed", fields...)
	}

	if !req.NotificationsEnabled || m.notifier == nil {
		return
	}
	if res.Success {
		m.notifier.NotifyJobCompleted(req.URL, res)
	} else {
		m.notifier.NotifyJobFailed(req.URL, res)
	}
}

// Cancel kills a running job
func (m *JobManager) Cancel(id string) error {
	err := m.runner.Cancel(id)
	if err == nil {
		m.logs.LogEvent(logger.CategoryJob, "job_cancel_requested", zap.String("id", id))
		return nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		return err
	}

	rec, ferr := m.repo.FindByID(id)
	if ferr != nil {
		return err
	}
	if rec.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", domain.ErrJobFinished, id, rec.Status)
	}
	return err
}

// Get returns one job record
func (m *JobManager) Get(id string) (*domain.JobRecord, error) {
	return m.repo.FindByID(id)
}

// List returns job records, newest first
func (m *JobManager) List(filters map[string]interface{}) ([]*domain.JobRecord, error) {
	return m.repo.FindAll(filters)
}

// Stats returns job counts by status
func (m *JobManager) Stats() (*domain.JobStats, error) {
	return m.repo.GetStats()
}

// Running returns the ids of live jobs when the runner tracks them
func (m *JobManager) Running() []string {
	if r, ok := m.runner.(interface{ Running() []string }); ok {
		return r.Running()
	}
	return nil
}

// Shutdown stops all live jobs and waits for their terminal events
func (m *JobManager) Shutdown(ctx context.Context) error {
	if s, ok := m.runner.(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(ctx)
	}
	return nil
}
