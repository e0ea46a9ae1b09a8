package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"skillsync/internal/observability"
)

// EventEmitter publishes domain events wrapped in an observability.EventEnvelope.
type EventEmitter struct {
	publisher Publisher
	logger    *zerolog.Logger
}

func NewEventEmitter(publisher Publisher, logger *zerolog.Logger) *EventEmitter {
	return &EventEmitter{publisher: publisher, logger: logger}
}

// Emit sends name with payload, routed by name. Delivery is best effort: the
// domain change has already been committed when this runs.
func (e *EventEmitter) Emit(ctx context.Context, name string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := observability.EventEnvelope{
		EventType:  "domain_event",
		EventName:  name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	headers := observability.BuildHeaders(
		observability.RequestIDFromContext(ctx),
		observability.TraceIDFromContext(ctx),
	)
	if err := e.publisher.Publish(ctx, name, envelope, headers); err != nil {
		e.logger.Warn().Err(err).Str("event", name).Msg("event publish failed")
	}
}
