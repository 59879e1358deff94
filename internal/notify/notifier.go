// Package notify defines the notification interface and implementations
// for stock alert delivery.
package notify

import (
	"context"

	domain "stockwatch/pkg/types"
)

// AlertPayload contains the data needed to send a product alert.
type AlertPayload struct {
	Product        domain.Product
	Classification domain.Classification
}

// Notifier defines the interface for delivering alerts and lifecycle
// notifications.
type Notifier interface {
	SendAlert(ctx context.Context, alert AlertPayload) error
	SendSummary(ctx context.Context, stats domain.Stats) error
	SendStartup(ctx context.Context) error
	SendShutdown(ctx context.Context, stats domain.Stats) error
	SendError(ctx context.Context, message string) error
}
