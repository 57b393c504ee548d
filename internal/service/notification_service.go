package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
	"github.com/noah-isme/childcare-reservation-api/pkg/jobs"
)

// EventPublisher delivers a serialized event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

type eventQueue interface {
	TryEnqueue(job jobs.Job) error
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, routingKey, messageID string, body []byte) error {
	p.logger.Info("reservation event", zap.String("routing_key", routingKey), zap.String("message_id", messageID), zap.ByteString("body", body))
	return nil
}

// NotificationService hands reservation events to a background queue so a
// slow or unavailable broker never delays an admission.
type NotificationService struct {
	publisher      EventPublisher
	queue          eventQueue
	metrics        *MetricsService
	logger         *zap.Logger
	publishTimeout time.Duration
}

// NewNotificationService constructs a NotificationService. Attach a queue with
// UseQueue; without one events are published inline.
func NewNotificationService(publisher EventPublisher, metrics *MetricsService, logger *zap.Logger, publishTimeout time.Duration) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NewLogPublisher(logger)
	}
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &NotificationService{publisher: publisher, metrics: metrics, logger: logger, publishTimeout: publishTimeout}
}

// UseQueue routes Notify through q.
func (s *NotificationService) UseQueue(q eventQueue) {
	s.queue = q
}

// Notify queues event for delivery. Failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, event models.ReservationEvent) {
	if s == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode reservation event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	job := jobs.Job{ID: event.ID, Type: event.Type, Payload: body, Enqueued: time.Now().UTC()}

	if s.queue == nil {
		if err := s.Handle(ctx, job); err != nil {
			s.logger.Warn("reservation event not delivered", zap.String("type", event.Type), zap.Error(err))
		}
		return
	}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordEvent(event.Type, err)
		s.logger.Warn("reservation event dropped", zap.String("type", event.Type), zap.String("reservation_id", event.ReservationID), zap.Error(err))
	}
}

// Handle publishes one queued event. It is the queue's job handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, job.Type, job.ID, job.Payload)
	s.metrics.RecordEvent(job.Type, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", job.Type, err)
	}
	return nil
}
