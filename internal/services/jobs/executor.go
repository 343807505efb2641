package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/parsers"
	"github.com/ternarybob/venator/internal/services/runner"
)

// Execute runs one queued job through its full lifecycle. Cancelled jobs are
// dropped on dequeue; terminal jobs are never re-run.
func (s *Service) Execute(ctx context.Context, jobID string) error {
	store := s.storage.JobStorage()

	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != models.JobStatusQueued {
		s.logger.Debug().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("Skipping job not in queued state")
		return nil
	}

	tool, ok := s.registry.Get(job.ToolName)
	if !ok {
		job.MarkFailed("unknown tool: " + job.ToolName)
		if err := store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job %s: %w", jobID, err)
		}
		s.publishStatus(ctx, job)
		return nil
	}

	job.MarkRunning()
	if err := store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", jobID, err)
	}
	s.publishStatus(ctx, job)

	runCtx, cancel := context.WithCancel(ctx)
	s.registerCancel(jobID, cancel)
	defer func() {
		s.unregisterCancel(jobID)
		cancel()
	}()

	var outputMu sync.Mutex
	sequence := 0
	onOutput := func(content string, stream models.OutputType) {
		outputMu.Lock()
		seq := sequence
		sequence++
		outputMu.Unlock()

		output := &models.JobOutput{
			ID:         common.NewID(),
			JobID:      jobID,
			Sequence:   seq,
			OutputType: stream,
			Content:    content,
			Timestamp:  time.Now(),
		}
		if err := store.SaveOutput(context.Background(), output); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to persist job output")
			return
		}
		if err := s.events.Publish(context.Background(), interfaces.Event{
			Type:  interfaces.EventJobOutput,
			Topic: interfaces.JobTopic(jobID),
			Payload: map[string]interface{}{
				"job_id":      jobID,
				"sequence":    seq,
				"output_type": string(stream),
				"content":     content,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job output")
		}
	}

	result, runErr := s.runner.Run(runCtx, jobID, job.Command, job.TimeoutSeconds, onOutput)

	// Reload: Cancel may have transitioned the job while the process ran
	current, err := store.GetJob(ctx, jobID)
	if err == nil && current != nil && current.Status == models.JobStatusCancelled {
		s.logger.Info().Str("job_id", jobID).Msg("Job cancelled during execution")
		return nil
	}

	switch {
	case errors.Is(runErr, runner.ErrTimeout):
		job.MarkTimeout()
		if result != nil {
			job.ExitCode = &result.ExitCode
		}
	case runErr != nil && errors.Is(runErr, context.Canceled):
		job.MarkCancelled()
	case runErr != nil:
		job.MarkFailed(runErr.Error())
	case result.ExitCode != 0:
		job.MarkFailed(fmt.Sprintf("Tool exited with code %d", result.ExitCode))
		job.ExitCode = &result.ExitCode
	default:
		job.MarkCompleted(result.ExitCode)
	}

	if err := store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", jobID, err)
	}
	s.publishStatus(ctx, job)

	s.logger.Info().
		Str("job_id", jobID).
		Str("tool", job.ToolName).
		Str("status", string(job.Status)).
		Msg("Job finished")

	if job.Status == models.JobStatusCompleted && tool.Output.Parser != "" {
		parserName := tool.Output.Parser
		if _, err := s.queue.Enqueue("parse:"+jobID, func(taskCtx context.Context) error {
			return s.ParseJob(taskCtx, jobID, parserName)
		}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to enqueue parse task")
		}
	}
	return nil
}

// ParseJob concatenates the job's stdout, runs the named parser and merges
// the output into storage
func (s *Service) ParseJob(ctx context.Context, jobID, parserName string) error {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	outputs, err := s.storage.JobStorage().GetOutputs(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load outputs for job %s: %w", jobID, err)
	}

	var b strings.Builder
	for _, output := range outputs {
		if output.OutputType != models.OutputTypeStdout {
			continue
		}
		b.WriteString(output.Content)
		b.WriteByte('\n')
	}

	parser, err := parsers.Get(parserName)
	if err != nil {
		return fmt.Errorf("failed to parse job %s: %w", jobID, err)
	}

	parsed, err := parser.Parse(b.String(), job.Parameters)
	if err != nil {
		return fmt.Errorf("parser %s failed for job %s: %w", parserName, jobID, err)
	}
	if len(parsed.Errors) > 0 {
		s.logger.Warn().
			Str("job_id", jobID).
			Str("parser", parserName).
			Int("errors", len(parsed.Errors)).
			Msg("Parser skipped unreadable fragments")
	}

	counts, err := s.upserter.Apply(ctx, job, parsed)
	if err != nil {
		return fmt.Errorf("failed to merge parse output for job %s: %w", jobID, err)
	}

	if err := s.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventJobStatus,
		Topic: interfaces.JobTopic(jobID),
		Payload: map[string]interface{}{
			"job_id":     jobID,
			"project_id": job.ProjectID,
			"tool_name":  job.ToolName,
			"status":     "parsed",
			"counts":     counts,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish parse completion")
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("parser", parserName).
		Int("entities", counts.Total()).
		Msg("Job output parsed")
	return nil
}
