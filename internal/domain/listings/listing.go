package listings

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/events"
)

var (
	ErrListingNotFound = apperr.NotFound("listings: not found")
	ErrGuestsLimit     = apperr.Validation("listings: max guests must be at least 1")
	ErrNightsRange     = apperr.Validation("listings: minimum nights must be <= maximum nights")
	ErrInvalidState    = apperr.Conflict("listings: invalid state transition")
	ErrTitleRequired   = apperr.Validation("listings: title is required")
	ErrNightlyRate     = apperr.Validation("listings: price per night must be non-negative")
	ErrUnknownPolicy   = apperr.Validation("listings: unknown cancellation policy")
	ErrVersionConflict = apperr.Conflict("listings: concurrent modification")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft     ListingState = "draft"
	ListingActive    ListingState = "active"
	ListingSuspended ListingState = "suspended"
)

type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	PolicyModerate CancellationPolicy = "moderate"
	PolicyStrict   CancellationPolicy = "strict"
)

func (p CancellationPolicy) Valid() bool {
	switch p {
	case PolicyFlexible, PolicyModerate, PolicyStrict:
		return true
	}
	return false
}

type Listing struct {
	ID                 ListingID
	Host               HostID
	Title              string
	State              ListingState
	PricePerNight      decimal.Decimal
	MinimumNights      int
	MaximumNights      int // 0 means unbounded
	MaxGuests          int
	CancellationPolicy CancellationPolicy
	DefaultAvailable   bool
	CheckInDays        WeekdaySet
	CheckOutDays       WeekdaySet
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID                 ListingID
	Host               HostID
	Title              string
	PricePerNight      decimal.Decimal
	MinimumNights      int
	MaximumNights      int
	MaxGuests          int
	CancellationPolicy CancellationPolicy
	DefaultAvailable   bool
	CheckInDays        WeekdaySet
	CheckOutDays       WeekdaySet
	Now                time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, apperr.Validation("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, apperr.Validation("listings: host is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if err := validateTerms(params.PricePerNight, params.MinimumNights, params.MaximumNights, params.MaxGuests); err != nil {
		return nil, err
	}
	policy := params.CancellationPolicy
	if policy == "" {
		policy = PolicyFlexible
	}
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	minNights := params.MinimumNights
	if minNights < 1 {
		minNights = 1
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:                 params.ID,
		Host:               params.Host,
		Title:              strings.TrimSpace(params.Title),
		State:              ListingDraft,
		PricePerNight:      params.PricePerNight.Round(2),
		MinimumNights:      minNights,
		MaximumNights:      params.MaximumNights,
		MaxGuests:          params.MaxGuests,
		CancellationPolicy: policy,
		DefaultAvailable:   params.DefaultAvailable,
		CheckInDays:        params.CheckInDays,
		CheckOutDays:       params.CheckOutDays,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, At: now})
	return listing, nil
}

// Publish activates a draft or suspended listing and records ListingPublished,
// which drives calendar seeding.
func (l *Listing) Publish(now time.Time) error {
	if l.State == ListingActive {
		return ErrInvalidState
	}
	if err := validateTerms(l.PricePerNight, l.MinimumNights, l.MaximumNights, l.MaxGuests); err != nil {
		return err
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingPublishedEvent{ListingID: l.ID, HostID: l.Host, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Suspend(now time.Time, reason string) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

// StayBoundsOK reports whether a stay of the given length satisfies the listing's
// minimum and maximum nights.
func (l *Listing) StayBoundsOK(nights int) bool {
	if nights < l.MinimumNights {
		return false
	}
	return l.MaximumNights == 0 || nights <= l.MaximumNights
}

func validateTerms(price decimal.Decimal, minNights, maxNights, maxGuests int) error {
	if price.IsNegative() {
		return ErrNightlyRate
	}
	if maxGuests < 1 {
		return ErrGuestsLimit
	}
	if maxNights > 0 && minNights > maxNights {
		return ErrNightsRange
	}
	return nil
}
