package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/jobs"
)

// Service promotes time-based jobs into execution. It hosts two mechanisms:
// a periodic sweeper that enqueues pending jobs whose scheduled_at has
// passed, and per-job cron entries that spawn a fresh job run on each
// firing (the cron job itself stays pending as a template).
type Service struct {
	storage interfaces.StorageManager
	jobs    *jobs.Service
	logger  arbor.ILogger
	sweep   time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
}

// NewService creates the scheduler. sweepInterval is in seconds; zero means
// the 60 second default.
func NewService(storage interfaces.StorageManager, jobService *jobs.Service, sweepInterval int, logger arbor.ILogger) *Service {
	if sweepInterval <= 0 {
		sweepInterval = 60
	}
	return &Service{
		storage: storage,
		jobs:    jobService,
		logger:  logger,
		sweep:   time.Duration(sweepInterval) * time.Second,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers the sweeper, reloads cron jobs from storage and starts the
// cron runner. Idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweep), s.sweepScheduledJobs); err != nil {
		return fmt.Errorf("failed to register job sweeper: %w", err)
	}

	if err := s.reloadCronJobs(); err != nil {
		return err
	}

	s.cron.Start()
	s.started = true
	s.logger.Info().
		Str("sweep_interval", s.sweep.String()).
		Int("cron_jobs", len(s.entries)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron runner and waits for in-flight invocations
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// RegisterJob adds a cron entry for a job carrying a cron expression. Each
// firing creates and enqueues a fresh copy of the job.
func (s *Service) RegisterJob(job *models.Job) error {
	if job.CronExpression == "" {
		return fmt.Errorf("job %s has no cron expression", job.ID)
	}

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.CronExpression, func() {
		if _, err := s.jobs.Retry(context.Background(), jobID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Cron job run failed to start")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", job.CronExpression, job.ID, err)
	}

	s.mu.Lock()
	if old, ok := s.entries[job.ID]; ok {
		s.cron.Remove(old)
	}
	s.entries[job.ID] = entryID
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("cron", job.CronExpression).
		Msg("Cron job registered")
	return nil
}

// UnregisterJob removes a job's cron entry, if any
func (s *Service) UnregisterJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
}

// reloadCronJobs re-registers cron templates after a restart. Caller holds
// the lock.
func (s *Service) reloadCronJobs() error {
	ctx := context.Background()
	pending, err := s.storage.JobStorage().GetJobsByStatus(ctx, models.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to load pending jobs: %w", err)
	}

	for _, job := range pending {
		if job.CronExpression == "" {
			continue
		}
		jobID := job.ID
		entryID, err := s.cron.AddFunc(job.CronExpression, func() {
			if _, err := s.jobs.Retry(context.Background(), jobID); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Cron job run failed to start")
			}
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Str("cron", job.CronExpression).
				Msg("Skipping job with invalid cron expression")
			continue
		}
		s.entries[job.ID] = entryID
	}
	return nil
}

// sweepScheduledJobs enqueues pending jobs whose scheduled_at has passed
func (s *Service) sweepScheduledJobs() {
	ctx := context.Background()
	pending, err := s.storage.JobStorage().GetJobsByStatus(ctx, models.JobStatusPending)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Job sweep failed to list pending jobs")
		return
	}

	now := time.Now()
	promoted := 0
	for _, job := range pending {
		if job.CronExpression != "" {
			continue
		}
		if job.ScheduledAt == nil || job.ScheduledAt.After(now) {
			continue
		}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue scheduled job")
			continue
		}
		promoted++
	}

	if promoted > 0 {
		s.logger.Info().Int("promoted", promoted).Msg("Scheduled jobs promoted")
	}
}
