package support

import (
	"context"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	"staybook/internal/domain/shared/events"
)

// BeginReadOnlyUnit reuses the unit bound to ctx or starts a read-only one.
// The returned cleanup is nil when the unit was reused.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// RecordEvents writes the given event batches into the unit outbox in order.
func RecordEvents(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, batches ...[]events.DomainEvent) error {
	var all []events.DomainEvent
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, all)
}
