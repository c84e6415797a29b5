package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/apperr"
)

func Tracing(tracer trace.Tracer) CommandMiddleware {
	if tracer == nil {
		panic("middleware: tracer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, span := tracer.Start(ctx, "command "+cmd.Key(), trace.WithAttributes(attribute.String("staybook.command", cmd.Key())))
			defer span.End()
			res, err := nextFn(ctx, cmd)
			recordOutcome(span, err)
			return res, err
		})
	}
}

func QueryTracing(tracer trace.Tracer) QueryMiddleware {
	if tracer == nil {
		panic("middleware: tracer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, span := tracer.Start(ctx, "query "+q.Key(), trace.WithAttributes(attribute.String("staybook.query", q.Key())))
			defer span.End()
			res, err := nextFn(ctx, q)
			recordOutcome(span, err)
			return res, err
		})
	}
}

func recordOutcome(span trace.Span, err error) {
	if err == nil {
		return
	}
	kind := apperr.KindOf(err)
	span.SetAttributes(attribute.String("staybook.error_kind", string(kind)))
	if kind == apperr.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
