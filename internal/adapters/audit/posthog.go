// Package audit publishes business audit events. The posthog-backed adapter
// is fire-and-forget: a missing API key or a delivery failure never touches
// the business operation.
package audit

import (
	"context"
	"log/slog"

	"github.com/posthog/posthog-go"

	"github.com/sahelpay/sahelpay/internal/core/ports"
)

// PosthogPublisher implements ports.AuditPublisher on posthog capture events.
type PosthogPublisher struct {
	client posthog.Client
	logger *slog.Logger
}

var _ ports.AuditPublisher = (*PosthogPublisher)(nil)

// NewPosthogPublisher builds a publisher. With an empty API key the
// publisher is inert, which keeps local and test setups simple.
func NewPosthogPublisher(apiKey, endpoint string, logger *slog.Logger) *PosthogPublisher {
	if apiKey == "" {
		logger.Warn("Posthog API key is empty, audit events will only be logged.")
		return &PosthogPublisher{logger: logger}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		logger.Error("Failed to initialize posthog client", slog.String("error", err.Error()))
		return &PosthogPublisher{logger: logger}
	}
	return &PosthogPublisher{client: client, logger: logger}
}

// Publish emits one audit event. Errors are logged and swallowed.
func (p *PosthogPublisher) Publish(_ context.Context, event ports.AuditEvent) {
	if p.logger != nil {
		p.logger.Info("Audit event",
			slog.String("operation", event.Operation),
			slog.String("actor_id", event.ActorID),
			slog.String("actor_kind", event.ActorKind),
			slog.String("transaction_id", event.TransactionID),
		)
	}
	if p.client == nil {
		return
	}
	properties := map[string]any{
		"actor_kind":     event.ActorKind,
		"transaction_id": event.TransactionID,
	}
	for k, v := range event.Properties {
		properties[k] = v
	}
	err := p.client.Enqueue(posthog.Capture{
		DistinctId: event.ActorID,
		Event:      event.Operation,
		Properties: properties,
	})
	if err != nil && p.logger != nil {
		p.logger.Warn("Failed to enqueue audit event", slog.String("error", err.Error()))
	}
}

// Close flushes pending events.
func (p *PosthogPublisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
