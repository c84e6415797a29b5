package middleware

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
)

// OutboxFlush relays committed events right after a successful command. It
// must wrap Transaction so records are only relayed once durable. Relay
// failures are logged; the polling worker retries them.
func OutboxFlush(flusher outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if flusher == nil {
		panic("middleware: outbox flusher required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := flusher.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
