// Package notify holds the notification sinks that need no broker.
package notify

import (
	"context"
	"log/slog"

	"staybook/internal/app/policies"
)

// LogNotifier writes notifications to the log. It is the sink for local runs.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
