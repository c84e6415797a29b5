package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
)

var now = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func begin(t *testing.T, store *Store, readOnly bool) uow.UnitOfWork {
	t.Helper()
	unit, err := Factory{Store: store}.Begin(context.Background(), uow.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return unit
}

func listing(t *testing.T) *domainlistings.Listing {
	t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID: "lst-1", Host: "host-1", Title: "Loft", PricePerNight: decimal.NewFromInt(90),
		MaxGuests: 2, DefaultAvailable: true, Now: now,
	})
	require.NoError(t, err)
	return l
}

func TestRollbackRestoresSnapshotAndDropsStagedEvents(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	l := listing(t)

	unit := begin(t, store, false)
	require.NoError(t, unit.Listings().Save(ctx, l))
	require.NoError(t, unit.Commit(ctx))

	unit = begin(t, store, false)
	created, err := unit.Calendar().InsertMissing(ctx, domaincalendar.GenerateYear(l, now))
	require.NoError(t, err)
	assert.Equal(t, domaincalendar.SeedDays, created)
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "calendar.seeded"}))
	require.NoError(t, unit.Rollback(ctx))

	unit = begin(t, store, true)
	days, err := unit.Calendar().FetchRange(ctx, l.ID, now, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, days)
	require.NoError(t, unit.Rollback(ctx))
	assert.Zero(t, store.Outbox().Pending())
}

func TestReadOnlyAndClosedUnits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	unit := begin(t, store, true)
	assert.ErrorIs(t, unit.Listings().Save(ctx, listing(t)), uow.ErrReadOnly)
	assert.ErrorIs(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "x"}), uow.ErrReadOnly)
	require.NoError(t, unit.Commit(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
	_, err := unit.Listings().ByID(ctx, "lst-1")
	assert.ErrorIs(t, err, ErrUnitClosed)
}

func TestListingVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	l := listing(t)
	unit := begin(t, store, false)
	require.NoError(t, unit.Listings().Save(ctx, l))
	stale := *l
	require.NoError(t, unit.Listings().Save(ctx, l))
	assert.ErrorIs(t, unit.Listings().Save(ctx, &stale), domainlistings.ErrVersionConflict)
	require.NoError(t, unit.Commit(ctx))
}

func TestCommittedEventsReachOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	unit := begin(t, store, false)
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "listing.created"}))
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-2", Name: "listing.published"}))
	assert.Zero(t, store.Outbox().Pending())
	require.NoError(t, unit.Commit(ctx))

	claimed, err := store.Outbox().Claim(ctx, "w", 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "evt-1", claimed[0].ID)
	require.NoError(t, store.Outbox().MarkSent(ctx, "evt-1"))
	assert.Equal(t, 1, store.Outbox().Pending())
}

func TestRulesOrderedByPriorityThenID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	unit := begin(t, store, false)
	for _, r := range []domainpricing.Rule{
		{ID: "b", ListingID: "lst-1", Type: domainpricing.RuleCustom, Priority: 1, Active: true},
		{ID: "a", ListingID: "lst-1", Type: domainpricing.RuleCustom, Priority: 1, Active: true},
		{ID: "z", ListingID: "lst-1", Type: domainpricing.RuleCustom, Priority: 7, Active: true},
		{ID: "off", ListingID: "lst-1", Type: domainpricing.RuleCustom, Priority: 9, Active: false},
	} {
		r.StartDate, r.EndDate = now, now.AddDate(0, 1, 0)
		r.AdjustmentType, r.AdjustmentValue = domainpricing.AdjustFixed, decimal.NewFromInt(5)
		require.NoError(t, unit.PriceRules().Save(ctx, r))
	}
	rules, err := unit.PriceRules().ActiveRules(ctx, "lst-1", now, now)
	require.NoError(t, err)
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)
	require.NoError(t, unit.Commit(ctx))
}
