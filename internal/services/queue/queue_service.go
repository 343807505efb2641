package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

type queuedTask struct {
	id   string
	name string
	fn   interfaces.TaskFunc
}

type schedule struct {
	name     string
	interval time.Duration
	fn       interfaces.TaskFunc
}

// Service implements the QueueService interface with a bounded worker pool
type Service struct {
	config    *common.QueueConfig
	logger    arbor.ILogger
	tasks     chan queuedTask
	records   map[string]*interfaces.TaskRecord
	schedules []schedule
	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
}

// NewService creates a new queue service
func NewService(config *common.QueueConfig, logger arbor.ILogger) interfaces.QueueService {
	return &Service{
		config:  config,
		logger:  logger,
		tasks:   make(chan queuedTask, config.QueueSize),
		records: make(map[string]*interfaces.TaskRecord),
	}
}

// Start launches the worker pool and any registered schedules
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true

	for i := 0; i < s.config.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	for _, sched := range s.schedules {
		s.wg.Add(1)
		go s.runSchedule(sched)
	}

	s.logger.Info().
		Int("workers", s.config.MaxWorkers).
		Int("queue_size", s.config.QueueSize).
		Msg("Queue service started")
	return nil
}

// Stop cancels in-flight tasks and waits for workers to drain
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Queue service stopped")
	return nil
}

// Enqueue submits a task for asynchronous execution
func (s *Service) Enqueue(name string, fn interfaces.TaskFunc) (string, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return "", fmt.Errorf("queue service not started")
	}
	id := common.NewID()
	s.records[id] = &interfaces.TaskRecord{
		ID:        id,
		Name:      name,
		Status:    interfaces.TaskStatusPending,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	select {
	case s.tasks <- queuedTask{id: id, name: name, fn: fn}:
		return id, nil
	default:
		s.setStatus(id, interfaces.TaskStatusFailed, "queue full")
		return "", fmt.Errorf("task queue is full (%d pending)", s.config.QueueSize)
	}
}

// Get returns the record for a task, or nil when unknown
func (s *Service) Get(taskID string) *interfaces.TaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[taskID]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

// Schedule registers a recurring task. Must be called before Start.
func (s *Service) Schedule(name string, interval time.Duration, fn interfaces.TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("schedule interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules = append(s.schedules, schedule{name: name, interval: interval, fn: fn})
	if s.started {
		s.wg.Add(1)
		go s.runSchedule(s.schedules[len(s.schedules)-1])
	}
	return nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.tasks:
			s.execute(task)
		}
	}
}

func (s *Service) execute(task queuedTask) {
	now := time.Now()
	s.mu.Lock()
	if record, ok := s.records[task.id]; ok {
		record.Status = interfaces.TaskStatusRunning
		record.StartedAt = &now
	}
	s.mu.Unlock()

	err := s.runSafely(task)

	if err != nil {
		s.setStatus(task.id, interfaces.TaskStatusFailed, err.Error())
		s.logger.Warn().Err(err).Str("task", task.name).Str("task_id", task.id).Msg("Task failed")
	} else {
		s.setStatus(task.id, interfaces.TaskStatusCompleted, "")
	}
}

// runSafely converts a panicking task into an error so the worker survives
func (s *Service) runSafely(task queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task.fn(s.ctx)
}

func (s *Service) runSchedule(sched schedule) {
	defer s.wg.Done()

	ticker := time.NewTicker(sched.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// Invocations run inline on this goroutine so they never overlap
			if err := s.runScheduledSafely(sched); err != nil {
				s.logger.Warn().Err(err).Str("schedule", sched.name).Msg("Scheduled task failed")
			}
		}
	}
}

func (s *Service) runScheduledSafely(sched schedule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduled task panic: %v", r)
		}
	}()
	return sched.fn(s.ctx)
}

func (s *Service) setStatus(taskID string, status interfaces.TaskStatus, errMsg string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[taskID]
	if !ok {
		return
	}
	record.Status = status
	record.Error = errMsg
	if status == interfaces.TaskStatusCompleted || status == interfaces.TaskStatusFailed {
		record.CompletedAt = &now
	}
}
