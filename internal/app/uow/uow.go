package uow

import (
	"context"

	"staybook/internal/app/outbox"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Calendar() domaincalendar.Repository
	PriceRules() domainpricing.RuleRepository
	Bookings() domainbooking.Repository
	Cancellations() domainbooking.CancellationRepository
	// Outbox stages event records that become visible to the relay only on commit.
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
