// Package services holds the connection, messaging and user directory rules.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"skillsync/internal/apperr"
)

// EventPublisher receives domain events after a change is stored.
type EventPublisher interface {
	Emit(ctx context.Context, name string, payload any)
}

type noopEvents struct{}

func (noopEvents) Emit(context.Context, string, any) {}

func eventsOrNoop(events EventPublisher) EventPublisher {
	if events == nil {
		return noopEvents{}
	}
	return events
}

// endSpan records err on span unless it is an expected client error.
func endSpan(span trace.Span, err error) {
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// internal wraps a store failure unless it is already classified.
func internal(msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(msg, err)
}
