package middleware

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	"staybook/internal/domain/shared/apperr"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs every command inside its own unit of work. Any handler
// error rolls the unit back; failures are logged here and returned unchanged.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, logger *slog.Logger) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				logger.ErrorContext(ctx, "begin unit of work failed", "command", cmd.Key(), "error", err)
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if committed {
					return
				}
				if rbErr := unit.Rollback(execCtx); rbErr != nil {
					logger.ErrorContext(ctx, "rollback failed", "command", cmd.Key(), "error", rbErr)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				logFailure(ctx, logger, cmd.Key(), err)
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				logger.ErrorContext(ctx, "commit failed", "command", cmd.Key(), "error", err)
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}

func logFailure(ctx context.Context, logger *slog.Logger, key string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.ErrorContext(ctx, "command failed, rolled back", "command", key, "error", err)
		return
	}
	logger.WarnContext(ctx, "command rejected, rolled back", "command", key, "kind", string(kind), "error", err)
}
