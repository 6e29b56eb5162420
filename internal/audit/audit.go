// Package audit emits submission-trail events for regulatory traceability.
// Events are emitted after the enclosing transaction commits and are best
// effort: a broker outage never fails the caller's request.
package audit

import (
	"context"
	"time"
)

// Action names a gateway operation worth auditing.
type Action string

const (
	ActionAreaSubmitted     Action = "area_submitted"
	ActionAreaDeactivated   Action = "area_deactivated"
	ActionActivitySubmitted Action = "activity_submitted"
)

// Event captures one committed write. Actor is the caller's functional id
// from the token; Subject is the functional id of the affected record.
type Event struct {
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	ActorName string    `json:"actor_name,omitempty"`
	Subject   string    `json:"subject"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers audit events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close()
}

// Noop discards all events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
func (Noop) Close()                         {}
