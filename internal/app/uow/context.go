package uow

import (
	"context"
	"errors"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	ErrReadOnly          = errors.New("uow: write attempted in read-only unit")
)

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// MustFromContext returns the unit bound to ctx or ErrUnitOfWorkMissing.
func MustFromContext(ctx context.Context) (UnitOfWork, error) {
	unit, ok := FromContext(ctx)
	if !ok || unit == nil {
		return nil, ErrUnitOfWorkMissing
	}
	return unit, nil
}

// Bind attaches unit to ctx, letting implementations that carry a native
// transaction handle inject it first.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
