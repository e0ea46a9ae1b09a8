package observability

import "time"

// Domain event names, also used as AMQP routing keys.
const (
	EventUserSignedUp        = "user.signed_up"
	EventUserVerified        = "user.verified"
	EventUserOnboarded       = "user.onboarded"
	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventConnectionRejected  = "connection.rejected"
	EventConnectionRemoved   = "connection.removed"
	EventMessageSent         = "message.sent"
)

type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
