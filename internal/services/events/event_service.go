package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Service implements the EventService interface with an in-process pub/sub bus
type Service struct {
	handlers    map[interfaces.EventType][]interfaces.EventHandler
	allHandlers []interfaces.EventHandler
	mu          sync.RWMutex
	logger      arbor.ILogger
	closed      bool
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		handlers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("event service is closed")
	}

	s.handlers[eventType] = append(s.handlers[eventType], handler)
	s.logger.Debug().Str("event_type", string(eventType)).Msg("Handler subscribed")
	return nil
}

// SubscribeAll registers a handler that receives every published event
func (s *Service) SubscribeAll(handler interfaces.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("event service is closed")
	}

	s.allHandlers = append(s.allHandlers, handler)
	return nil
}

// Publish delivers an event to all subscribers asynchronously. Handler errors
// are logged, never returned to the publisher.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("event service is closed")
	}
	handlers := s.snapshotHandlers(event.Type)
	s.mu.RUnlock()

	for _, handler := range handlers {
		go func(h interfaces.EventHandler) {
			if err := h(ctx, event); err != nil {
				s.logger.Warn().
					Err(err).
					Str("event_type", string(event.Type)).
					Str("topic", event.Topic).
					Msg("Event handler failed")
			}
		}(handler)
	}

	return nil
}

// PublishSync delivers an event and waits for every handler; the first handler
// error is returned.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("event service is closed")
	}
	handlers := s.snapshotHandlers(event.Type)
	s.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				errChan <- err
			}
		}(handler)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return fmt.Errorf("event handler error: %w", err)
		}
	}
	return nil
}

// snapshotHandlers returns typed plus catch-all handlers; caller holds the lock
func (s *Service) snapshotHandlers(eventType interfaces.EventType) []interfaces.EventHandler {
	typed := s.handlers[eventType]
	handlers := make([]interfaces.EventHandler, 0, len(typed)+len(s.allHandlers))
	handlers = append(handlers, typed...)
	handlers = append(handlers, s.allHandlers...)
	return handlers
}

// Close shuts down the event service
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.handlers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.allHandlers = nil
	s.logger.Debug().Msg("Event service closed")
	return nil
}
