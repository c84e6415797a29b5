package listings

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/apperr"
)

const (
	createHostListingKey  = "host.listings.create"
	publishHostListingKey = "host.listings.publish"
	suspendHostListingKey = "host.listings.suspend"
)

var ErrListingNotOwned = apperr.NotFound("listings: not found for host")

type HostListingPayload struct {
	Title              string
	PricePerNight      decimal.Decimal
	MinimumNights      int
	MaximumNights      int
	MaxGuests          int
	CancellationPolicy string
	DefaultAvailable   bool
	CheckInDays        []string
	CheckOutDays       []string
}

type CreateHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string
	Payload   HostListingPayload
}

func (c CreateHostListingCommand) Key() string { return createHostListingKey }

type CreateHostListingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *CreateHostListingHandler) Handle(ctx context.Context, cmd CreateHostListingCommand) (*dto.Listing, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	checkIn, err := domainlistings.ParseWeekdays(cmd.Payload.CheckInDays)
	if err != nil {
		return nil, err
	}
	checkOut, err := domainlistings.ParseWeekdays(cmd.Payload.CheckOutDays)
	if err != nil {
		return nil, err
	}

	listingID := strings.TrimSpace(cmd.ListingID)
	if listingID == "" {
		listingID = uuid.NewString()
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:                 domainlistings.ListingID(listingID),
		Host:               domainlistings.HostID(cmd.HostID),
		Title:              cmd.Payload.Title,
		PricePerNight:      cmd.Payload.PricePerNight,
		MinimumNights:      cmd.Payload.MinimumNights,
		MaximumNights:      cmd.Payload.MaximumNights,
		MaxGuests:          cmd.Payload.MaxGuests,
		CancellationPolicy: domainlistings.CancellationPolicy(strings.ToLower(strings.TrimSpace(cmd.Payload.CancellationPolicy))),
		DefaultAvailable:   cmd.Payload.DefaultAvailable,
		CheckInDays:        checkIn,
		CheckOutDays:       checkOut,
		Now:                h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, listing.Drain()); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapListing(listing)
	return &result, nil
}

// PublishHostListingCommand activates a listing. Its calendar is seeded by
// the listing.published subscriber once this transaction commits.
type PublishHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c PublishHostListingCommand) Key() string { return publishHostListingKey }

type PublishHostListingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *PublishHostListingHandler) Handle(ctx context.Context, cmd PublishHostListingCommand) (*dto.Listing, error) {
	unit, listing, err := ownedListing(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Publish(h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, listing.Drain()); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing published", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapListing(listing)
	return &result, nil
}

type SuspendHostListingCommand struct {
	HostID    string `validate:"required"`
	ListingID string `validate:"required"`
	Reason    string
}

func (c SuspendHostListingCommand) Key() string { return suspendHostListingKey }

type SuspendHostListingHandler struct {
	Encoder outbox.EventEncoder
	Clock   handlersupport.Clock
	Logger  *slog.Logger
}

func (h *SuspendHostListingHandler) Handle(ctx context.Context, cmd SuspendHostListingCommand) (*dto.Listing, error) {
	unit, listing, err := ownedListing(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Suspend(h.Clock.Now(), strings.TrimSpace(cmd.Reason)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := handlersupport.RecordEvents(ctx, unit, h.Encoder, listing.Drain()); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing suspended", "listing_id", listing.ID, "host_id", cmd.HostID)
	}

	result := dto.MapListing(listing)
	return &result, nil
}

func ownedListing(ctx context.Context, hostID, listingID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, nil, err
	}
	if listing.Host != domainlistings.HostID(hostID) {
		return nil, nil, ErrListingNotOwned
	}
	return unit, listing, nil
}

var (
	_ commands.Handler[CreateHostListingCommand, *dto.Listing]  = (*CreateHostListingHandler)(nil)
	_ commands.Handler[PublishHostListingCommand, *dto.Listing] = (*PublishHostListingHandler)(nil)
	_ commands.Handler[SuspendHostListingCommand, *dto.Listing] = (*SuspendHostListingHandler)(nil)
)
