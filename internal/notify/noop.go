package notify

import (
	"context"
	"log/slog"

	domain "stockwatch/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded notifications. It
// is used when Telegram is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards notifications with a
// log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendAlert logs and discards a product alert.
func (n *NoOpNotifier) SendAlert(_ context.Context, alert AlertPayload) error {
	n.log.Debug("notification discarded (no backend configured)",
		"product_id", alert.Product.ID,
		"name", alert.Product.Name,
		"classification", alert.Classification,
	)
	return nil
}

// SendSummary logs and discards a summary.
func (n *NoOpNotifier) SendSummary(_ context.Context, stats domain.Stats) error {
	n.log.Debug("summary discarded (no backend configured)",
		"active_products", stats.TotalActiveProducts,
		"alerts_sent", stats.TotalAlertsSent,
	)
	return nil
}

// SendStartup logs and discards the startup announcement.
func (n *NoOpNotifier) SendStartup(context.Context) error {
	n.log.Debug("startup notification discarded (no backend configured)")
	return nil
}

// SendShutdown logs and discards the shutdown summary.
func (n *NoOpNotifier) SendShutdown(_ context.Context, stats domain.Stats) error {
	n.log.Debug("shutdown notification discarded (no backend configured)",
		"active_products", stats.TotalActiveProducts,
	)
	return nil
}

// SendError logs and discards an error report.
func (n *NoOpNotifier) SendError(_ context.Context, message string) error {
	n.log.Debug("error notification discarded (no backend configured)",
		"message", message,
	)
	return nil
}
