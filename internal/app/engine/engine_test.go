package engine_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/engine"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	calendarapp "staybook/internal/app/handlers/calendar"
	listingapp "staybook/internal/app/handlers/listings"
	pricingapp "staybook/internal/app/handlers/pricing"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/apperr"
	"staybook/internal/infra/db/sqlstore"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

var (
	today = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	aug7  = time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)
)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Send(ctx context.Context, to string, template string, data any) error {
	args := m.Called(ctx, to, template, data)
	return args.Error(0)
}

type harness struct {
	engine   *engine.Engine
	notifier *notifierMock
	factory  uow.UoWFactory
	pending  func() int
}

func backends() []string {
	return []string{"memory", "sqlite"}
}

func newHarness(t *testing.T, backend string, wrap ...func(uow.UoWFactory) uow.UoWFactory) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var (
		factory uow.UoWFactory
		relay   infraoutbox.Store
		pending func() int
	)
	switch backend {
	case "memory":
		store := memory.NewStore()
		factory = memory.Factory{Store: store}
		relay = store.Outbox()
		pending = store.Outbox().Pending
	case "sqlite":
		store, err := sqlstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		factory = sqlstore.Factory{Store: store}
		box := store.Outbox()
		relay = box
		pending = func() int {
			n, err := box.Pending(context.Background())
			require.NoError(t, err)
			return n
		}
	default:
		t.Fatalf("unknown backend %q", backend)
	}

	for _, w := range wrap {
		factory = w(factory)
	}

	dispatcher := outbox.NewDispatcher()
	worker := &infraoutbox.Worker{
		Store:    relay,
		Producer: infraoutbox.LocalProducer{Dispatcher: dispatcher},
		Logger:   logger,
	}
	notifier := &notifierMock{}
	eng := engine.New(engine.Deps{
		UoWFactory:  factory,
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Flusher:     worker,
		Dispatcher:  dispatcher,
		Notifier:    notifier,
		Clock:       handlersupport.FixedClock(today),
		Logger:      logger,
	})
	return &harness{engine: eng, notifier: notifier, factory: factory, pending: pending}
}

func (h *harness) publishListing(t *testing.T, policy string) string {
	t.Helper()
	ctx := context.Background()
	created, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.Listing](ctx, h.engine.Commands, listingapp.CreateHostListingCommand{
		HostID: "host-1",
		Payload: listingapp.HostListingPayload{
			Title:              "Lake cabin",
			PricePerNight:      decimal.RequireFromString("100.00"),
			MinimumNights:      2,
			MaximumNights:      14,
			MaxGuests:          4,
			CancellationPolicy: policy,
			DefaultAvailable:   true,
		},
	})
	require.NoError(t, err)
	_, err = commands.Dispatch[listingapp.PublishHostListingCommand, *dto.Listing](ctx, h.engine.Commands, listingapp.PublishHostListingCommand{
		HostID: "host-1", ListingID: created.ID,
	})
	require.NoError(t, err)
	return created.ID
}

func (h *harness) request(t *testing.T, listingID string, checkIn time.Time, nights int) (*dto.Booking, error) {
	t.Helper()
	return commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.engine.Commands, bookingapp.RequestBookingCommand{
		ListingID: listingID,
		GuestID:   "guest-1",
		CheckIn:   checkIn,
		CheckOut:  checkIn.AddDate(0, 0, nights),
		Guests:    2,
	})
}

func (h *harness) confirm(t *testing.T, bookingID string) (*dto.Booking, error) {
	t.Helper()
	return commands.Dispatch[bookingapp.ConfirmHostBookingCommand, *dto.Booking](context.Background(), h.engine.Commands, bookingapp.ConfirmHostBookingCommand{
		HostID: "host-1", BookingID: bookingID,
	})
}

func (h *harness) calendar(t *testing.T, listingID string, from, to time.Time) dto.Calendar {
	t.Helper()
	cal, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](context.Background(), h.engine.Queries, availabilityapp.GetCalendarQuery{
		ListingID: listingID, From: from, To: to,
	})
	require.NoError(t, err)
	return cal
}

func TestPublishSeedsAYearOfCalendar(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)
			id := h.publishListing(t, "flexible")

			cal := h.calendar(t, id, today, today.AddDate(0, 0, 2*domaincalendar.SeedDays-1))
			require.Len(t, cal.Days, domaincalendar.SeedDays)
			assert.Equal(t, "2026-05-01", cal.Days[0].Date)
			assert.Equal(t, "2027-04-30", cal.Days[len(cal.Days)-1].Date)
			assert.Equal(t, "100.00", cal.Days[0].BasePrice)
			assert.Zero(t, h.pending())

			again, err := commands.Dispatch[calendarapp.SeedCalendarCommand, *dto.SeedResult](context.Background(), h.engine.Commands, calendarapp.SeedCalendarCommand{
				ListingID: id, HostID: "host-1",
			})
			require.NoError(t, err)
			assert.Zero(t, again.DaysCreated)
		})
	}
}

func TestBookingLifecycleReleasesNightsOnCancel(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)
			id := h.publishListing(t, "moderate")

			booking, err := h.request(t, id, aug7, 3)
			require.NoError(t, err)
			assert.Equal(t, "pending", booking.Status)
			assert.Equal(t, "300.00", booking.TotalPrice)

			confirmed, err := h.confirm(t, booking.ID)
			require.NoError(t, err)
			assert.Equal(t, "confirmed", confirmed.Status)
			for _, d := range h.calendar(t, id, aug7, aug7.AddDate(0, 0, 2)).Days {
				assert.False(t, d.IsAvailable, d.Date)
			}

			h.notifier.On("Send", mock.Anything, "host-1", policies.TemplateBookingCancelled,
				mock.MatchedBy(func(n policies.CancellationNotice) bool {
					return n.BookingID == booking.ID && n.RefundAmount == "300.00"
				})).Return(nil).Once()

			res, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelResult](ctx, h.engine.Commands, bookingapp.CancelBookingCommand{
				BookingID: booking.ID, ActorID: "guest-1", Reason: "plans changed",
			})
			require.NoError(t, err)
			assert.Equal(t, "300.00", res.RefundAmount)
			assert.Equal(t, "0.00", res.Cancellation.CancellationFee)
			assert.Equal(t, "cancelled", res.Booking.Status)
			assert.Equal(t, "guest", res.Booking.CancelledBy)
			h.notifier.AssertExpectations(t)

			for _, d := range h.calendar(t, id, aug7, aug7.AddDate(0, 0, 2)).Days {
				assert.True(t, d.IsAvailable, d.Date)
			}

			_, err = commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelResult](ctx, h.engine.Commands, bookingapp.CancelBookingCommand{
				BookingID: booking.ID, ActorID: "host-1",
			})
			assert.ErrorIs(t, err, domainbooking.ErrAlreadyCancelled)
			h.notifier.AssertNumberOfCalls(t, "Send", 1)
		})
	}
}

var errInjected = errors.New("storage unavailable")

// faultyFactory hands out units whose cancellation insert or calendar upsert
// fails while the matching switch is on.
type faultyFactory struct {
	uow.UoWFactory
	failCancellation *atomic.Bool
	failUpsert       *atomic.Bool
}

func (f faultyFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.UoWFactory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return faultyUnit{UnitOfWork: unit, f: f}, nil
}

type faultyUnit struct {
	uow.UnitOfWork
	f faultyFactory
}

func (u faultyUnit) Calendar() domaincalendar.Repository {
	return faultyCalendar{Repository: u.UnitOfWork.Calendar(), fail: u.f.failUpsert}
}

func (u faultyUnit) Cancellations() domainbooking.CancellationRepository {
	return faultyCancellations{CancellationRepository: u.UnitOfWork.Cancellations(), fail: u.f.failCancellation}
}

type faultyCalendar struct {
	domaincalendar.Repository
	fail *atomic.Bool
}

func (c faultyCalendar) Upsert(ctx context.Context, days []domaincalendar.Day) error {
	if c.fail.Load() {
		return errInjected
	}
	return c.Repository.Upsert(ctx, days)
}

type faultyCancellations struct {
	domainbooking.CancellationRepository
	fail *atomic.Bool
}

func (c faultyCancellations) Create(ctx context.Context, cancellation *domainbooking.Cancellation) error {
	if c.fail.Load() {
		return errInjected
	}
	return c.CancellationRepository.Create(ctx, cancellation)
}

func TestCancellationIsAtomic(t *testing.T) {
	for _, backend := range backends() {
		for _, step := range []string{"cancellation", "release"} {
			t.Run(backend+"/"+step, func(t *testing.T) {
				ctx := context.Background()
				faults := faultyFactory{failCancellation: &atomic.Bool{}, failUpsert: &atomic.Bool{}}
				h := newHarness(t, backend, func(inner uow.UoWFactory) uow.UoWFactory {
					faults.UoWFactory = inner
					return faults
				})
				id := h.publishListing(t, "flexible")
				booking, err := h.request(t, id, aug7, 3)
				require.NoError(t, err)
				_, err = h.confirm(t, booking.ID)
				require.NoError(t, err)
				sent := h.pending()

				if step == "cancellation" {
					faults.failCancellation.Store(true)
				} else {
					faults.failUpsert.Store(true)
				}
				_, err = commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelResult](ctx, h.engine.Commands, bookingapp.CancelBookingCommand{
					BookingID: booking.ID, ActorID: "guest-1", Reason: "plans changed",
				})
				require.ErrorIs(t, err, errInjected)
				faults.failCancellation.Store(false)
				faults.failUpsert.Store(false)

				current, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](ctx, h.engine.Queries, bookingapp.GetBookingQuery{
					BookingID: booking.ID, ActorID: "guest-1",
				})
				require.NoError(t, err)
				assert.Equal(t, "confirmed", current.Status)
				assert.Empty(t, current.CancelledBy)

				unit, err := h.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
				require.NoError(t, err)
				_, err = unit.Cancellations().ByBookingID(ctx, domainbooking.BookingID(booking.ID))
				require.NoError(t, unit.Rollback(ctx))
				assert.ErrorIs(t, err, domainbooking.ErrCancellationNotFound)

				for _, d := range h.calendar(t, id, aug7, aug7.AddDate(0, 0, 2)).Days {
					assert.False(t, d.IsAvailable, d.Date)
				}
				assert.Equal(t, sent, h.pending())
				h.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	}
}

func TestCancellingPendingBookingKeepsOtherBlocks(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)
			id := h.publishListing(t, "strict")
			h.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

			first, err := h.request(t, id, aug7, 3)
			require.NoError(t, err)
			second, err := h.request(t, id, aug7, 2)
			require.NoError(t, err)
			_, err = h.confirm(t, first.ID)
			require.NoError(t, err)

			_, err = commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelResult](ctx, h.engine.Commands, bookingapp.CancelBookingCommand{
				BookingID: second.ID, ActorID: domainbooking.SystemActorID,
			})
			require.NoError(t, err)
			for _, d := range h.calendar(t, id, aug7, aug7.AddDate(0, 0, 2)).Days {
				assert.False(t, d.IsAvailable, d.Date)
			}
		})
	}
}

func TestConcurrentConfirmationsHaveOneWinner(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)
			id := h.publishListing(t, "flexible")

			const contenders = 5
			ids := make([]string, 0, contenders)
			for i := 0; i < contenders; i++ {
				b, err := h.request(t, id, aug7.AddDate(0, 0, i%2), 3)
				require.NoError(t, err)
				ids = append(ids, b.ID)
			}

			var wg sync.WaitGroup
			errs := make([]error, contenders)
			for i, bookingID := range ids {
				wg.Add(1)
				go func(i int, bookingID string) {
					defer wg.Done()
					_, errs[i] = h.confirm(t, bookingID)
				}(i, bookingID)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
					continue
				}
				assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), err)
			}
			assert.Equal(t, 1, wins)
		})
	}
}

func TestRequestRejectsUnavailableStay(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)
			id := h.publishListing(t, "flexible")

			_, err := h.request(t, id, aug7, 1)
			assert.Equal(t, apperr.KindPolicyViolation, apperr.KindOf(err))

			b, err := h.request(t, id, aug7, 3)
			require.NoError(t, err)
			_, err = h.confirm(t, b.ID)
			require.NoError(t, err)

			_, err = h.request(t, id, aug7.AddDate(0, 0, 1), 3)
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		})
	}
}

func TestReplaceRangeRoundTripAndRollback(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)
			id := h.publishListing(t, "flexible")
			start, end := aug7, aug7.AddDate(0, 0, 2)

			replaced, err := commands.Dispatch[calendarapp.ReplaceCalendarRangeCommand, *dto.Calendar](ctx, h.engine.Commands, calendarapp.ReplaceCalendarRangeCommand{
				HostID: "host-1", ListingID: id, Start: start, End: end,
				Entries: []calendarapp.CalendarEntry{
					{Date: start, Available: true, BasePrice: decimal.RequireFromString("150"), MinStay: 3, CheckInAllowed: true, CheckOutAllowed: true},
					{Date: end, Available: false, BasePrice: decimal.RequireFromString("150"), CheckInAllowed: true, CheckOutAllowed: true},
				},
			})
			require.NoError(t, err)
			require.Len(t, replaced.Days, 2)

			cal := h.calendar(t, id, start, end)
			require.Len(t, cal.Days, 2)
			assert.Equal(t, "2026-08-07", cal.Days[0].Date)
			assert.Equal(t, "150.00", cal.Days[0].BasePrice)
			assert.Equal(t, 3, cal.Days[0].MinStay)
			assert.True(t, cal.Days[0].IsAvailable)
			assert.Equal(t, "2026-08-09", cal.Days[1].Date)
			assert.False(t, cal.Days[1].IsAvailable)
			for _, d := range cal.Days {
				assert.NotEqual(t, "2026-08-08", d.Date)
			}

			_, err = commands.Dispatch[calendarapp.ReplaceCalendarRangeCommand, *dto.Calendar](ctx, h.engine.Commands, calendarapp.ReplaceCalendarRangeCommand{
				HostID: "host-1", ListingID: id, Start: start, End: end,
				Entries: []calendarapp.CalendarEntry{
					{Date: start, BasePrice: decimal.RequireFromString("10")},
					{Date: end, BasePrice: decimal.RequireFromString("10"), MinStay: 5, MaxStay: 2},
				},
			})
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, cal, h.calendar(t, id, start, end))

			_, err = commands.Dispatch[calendarapp.ReplaceCalendarRangeCommand, *dto.Calendar](ctx, h.engine.Commands, calendarapp.ReplaceCalendarRangeCommand{
				HostID: "host-2", ListingID: id, Start: start, End: end,
			})
			assert.ErrorIs(t, err, calendarapp.ErrListingNotOwned)
		})
	}
}

func TestIdempotentRequestReplaysResult(t *testing.T) {
	h := newHarness(t, "memory")
	id := h.publishListing(t, "flexible")
	cmd := bookingapp.RequestBookingCommand{
		ListingID: id, GuestID: "guest-1", CheckIn: aug7, CheckOut: aug7.AddDate(0, 0, 3), Guests: 2,
		IdempotencyKeyV: "req-42",
	}
	first, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.engine.Commands, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.engine.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.engine.Queries, bookingapp.GetBookingQuery{
		BookingID: first.ID, ActorID: "host-1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.TotalPrice, got.TotalPrice)

	_, err = queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.engine.Queries, bookingapp.GetBookingQuery{
		BookingID: first.ID, ActorID: "stranger",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPriceRulesFlowIntoQuotesAndAvailability(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, backend)
			id := h.publishListing(t, "flexible")

			_, err := commands.Dispatch[pricingapp.SavePriceRuleCommand, *dto.PriceRule](ctx, h.engine.Commands, pricingapp.SavePriceRuleCommand{
				HostID: "host-1", ListingID: id, RuleID: "weekend",
				Type: string(domainpricing.RuleWeekend), StartDate: today, EndDate: today.AddDate(1, 0, 0),
				AdjustmentType: string(domainpricing.AdjustPercentage), AdjustmentValue: decimal.NewFromInt(20),
				Priority: 1, Active: true,
			})
			require.NoError(t, err)

			quote, err := queries.Ask[pricingapp.ApplyPriceRulesQuery, dto.PriceQuote](ctx, h.engine.Queries, pricingapp.ApplyPriceRulesQuery{
				ListingID: id, Date: aug7.AddDate(0, 0, 1), StayLength: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, "100.00", quote.BasePrice)
			assert.Equal(t, "120.00", quote.FinalPrice)

			friday, err := queries.Ask[pricingapp.ApplyPriceRulesQuery, dto.PriceQuote](ctx, h.engine.Queries, pricingapp.ApplyPriceRulesQuery{
				ListingID: id, Date: aug7, StayLength: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, "100.00", friday.FinalPrice)

			_, err = commands.Dispatch[pricingapp.SavePriceRuleCommand, *dto.PriceRule](ctx, h.engine.Commands, pricingapp.SavePriceRuleCommand{
				HostID: "host-1", ListingID: id, Type: string(domainpricing.RuleCustom),
				StartDate: today, EndDate: today, AdjustmentType: string(domainpricing.AdjustMultiplier),
				AdjustmentValue: decimal.NewFromInt(2), Active: true,
			})
			assert.Equal(t, apperr.KindUnsupported, apperr.KindOf(err))

			avail, err := queries.Ask[availabilityapp.ComputeAvailabilityQuery, dto.Availability](ctx, h.engine.Queries, availabilityapp.ComputeAvailabilityQuery{
				ListingID: id, Start: aug7, End: aug7.AddDate(0, 0, 2), Guests: 2,
			})
			require.NoError(t, err)
			assert.True(t, avail.Bookable)
			assert.Equal(t, 2, avail.Nights)
		})
	}
}

func TestValidationMiddlewareRejectsMissingFields(t *testing.T) {
	h := newHarness(t, "memory")
	_, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), h.engine.Commands, bookingapp.RequestBookingCommand{
		GuestID: "guest-1",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
