package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/parsers"
)

// Import runs an externally-produced scan export (nessus, burp, nuclei,
// nmap, ...) through the matching parser and merges the findings into the
// project. A synthetic completed job anchors the results so they flow
// through the same pipeline as locally-executed tools.
func (s *Service) Import(ctx context.Context, projectID, format, data string) (*models.Job, *parsers.UpsertCounts, error) {
	if projectID == "" {
		return nil, nil, fmt.Errorf("project_id is required")
	}
	project, err := s.storage.ProjectStorage().GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, nil, fmt.Errorf("project %s not found", projectID)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return nil, nil, fmt.Errorf("format is required")
	}
	parser, err := parsers.Get(format + "_parser")
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported import format %q: %w", format, err)
	}

	job := models.NewJob(common.NewID(), projectID, "import_"+format, nil)
	job.MarkRunning()
	job.MarkCompleted(0)
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to save import job: %w", err)
	}

	parsed, err := parser.Parse(data, job.Parameters)
	if err != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = err.Error()
		if saveErr := s.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("job_id", job.ID).Msg("Failed to persist import failure")
		}
		return nil, nil, fmt.Errorf("failed to parse %s import: %w", format, err)
	}

	if len(parsed.Errors) > 0 {
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("format", format).
			Int("errors", len(parsed.Errors)).
			Msg("Import skipped unreadable fragments")
	}

	counts, err := s.upserter.Apply(ctx, job, parsed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge %s import: %w", format, err)
	}

	if err := s.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventJobStatus,
		Topic: interfaces.ProjectTopic(projectID),
		Payload: map[string]interface{}{
			"job_id":     job.ID,
			"project_id": projectID,
			"tool_name":  job.ToolName,
			"status":     "parsed",
			"counts":     counts,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish import completion")
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", projectID).
		Str("format", format).
		Int("entities", counts.Total()).
		Msg("Scan import processed")
	return job, counts, nil
}
