package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/pkg/events"
	"github.com/noah-isme/course-registration-api/pkg/jobs"
)

type jobDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

// EventDispatcher hands committed enrollment events to the background queue.
type EventDispatcher struct {
	queue  jobDispatcher
	logger *zap.Logger
}

// NewEventDispatcher constructs the dispatcher. A nil queue drops events.
func NewEventDispatcher(queue jobDispatcher, logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDispatcher{queue: queue, logger: logger}
}

// Emit enqueues the event without blocking the caller.
func (d *EventDispatcher) Emit(evt events.Event) {
	if d == nil || d.queue == nil {
		return
	}
	if err := d.queue.TryEnqueue(jobs.Job{ID: evt.ID, Type: string(evt.Type), Payload: evt}); err != nil {
		d.logger.Warn("enrollment event dropped",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.Error(err))
	}
}

// EventWorker publishes queued events to the broker.
type EventWorker struct {
	publisher events.Publisher
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventWorker constructs a worker.
func NewEventWorker(publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *EventWorker {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventWorker{publisher: publisher, metrics: metrics, logger: logger}
}

// Handle processes a queue job.
func (w *EventWorker) Handle(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(events.Event)
	if !ok {
		w.logger.Error("unexpected event payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := w.publisher.Publish(ctx, evt); err != nil {
		w.metrics.RecordEvent(string(evt.Type), false)
		return fmt.Errorf("publish event %s: %w", evt.ID, err)
	}
	w.metrics.RecordEvent(string(evt.Type), true)
	return nil
}
