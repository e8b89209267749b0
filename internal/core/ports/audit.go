package ports

import "context"

// AuditEvent is a fire-and-forget record of one business operation.
type AuditEvent struct {
	ActorID       string         `json:"actorID"`
	ActorKind     string         `json:"actorKind"`
	Operation     string         `json:"operation"`
	TransactionID string         `json:"transactionID,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
}

// AuditPublisher emits audit events. Publishing never blocks the business
// operation and never fails it; implementations swallow their own errors.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent)
}
