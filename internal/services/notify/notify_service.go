package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Service delivers notifications to the log, the event bus and, when a
// webhook URL is configured, an external HTTP endpoint. Delivery is
// best-effort; webhook failures are logged and swallowed.
type Service struct {
	config *common.NotifyConfig
	events interfaces.EventService
	client *http.Client
	logger arbor.ILogger
}

// NewService creates the notifier
func NewService(config *common.NotifyConfig, events interfaces.EventService, logger arbor.ILogger) interfaces.Notifier {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		config: config,
		events: events,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify logs the notification, publishes it on the project topic and posts
// it to the configured webhook
func (s *Service) Notify(ctx context.Context, projectID string, notification interfaces.Notification) error {
	s.logger.Info().
		Str("project_id", projectID).
		Str("title", notification.Title).
		Str("severity", notification.Severity).
		Msg(notification.Message)

	if err := s.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventWorkflowNotify,
		Topic: interfaces.ProjectTopic(projectID),
		Payload: map[string]interface{}{
			"project_id": projectID,
			"title":      notification.Title,
			"message":    notification.Message,
			"severity":   notification.Severity,
			"data":       notification.Data,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("Failed to publish notification event")
	}

	if s.config.WebhookURL != "" {
		if err := s.postWebhook(ctx, projectID, notification); err != nil {
			s.logger.Warn().
				Err(err).
				Str("project_id", projectID).
				Msg("Webhook notification delivery failed")
		}
	}
	return nil
}

func (s *Service) postWebhook(ctx context.Context, projectID string, notification interfaces.Notification) error {
	body, err := json.Marshal(map[string]interface{}{
		"project_id":   projectID,
		"notification": notification,
		"sent_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
