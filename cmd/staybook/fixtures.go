package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/domain/shared/apperr"
)

type listingFixture struct {
	ID                  string          `json:"id"`
	Host                string          `json:"host"`
	Title               string          `json:"title"`
	PricePerNight       decimal.Decimal `json:"price_per_night"`
	MinimumNights       int             `json:"minimum_nights"`
	MaximumNights       int             `json:"maximum_nights"`
	MaxGuests           int             `json:"max_guests"`
	CancellationPolicy  string          `json:"cancellation_policy"`
	DefaultAvailability *bool           `json:"default_availability"`
	CheckInDays         []string        `json:"check_in_days"`
	CheckOutDays        []string        `json:"check_out_days"`
	Draft               bool            `json:"draft"`
}

// loadListingFixtures creates and publishes the listings of a JSON file
// through the command bus, so calendars are seeded the regular way. Listings
// that already exist are skipped.
func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		path = defaultListingFixturesPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures {
		available := true
		if fx.DefaultAvailability != nil {
			available = *fx.DefaultAvailability
		}
		created, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.Listing](ctx, a.engine.Commands, listingapp.CreateHostListingCommand{
			HostID:    fx.Host,
			ListingID: fx.ID,
			Payload: listingapp.HostListingPayload{
				Title:              fx.Title,
				PricePerNight:      fx.PricePerNight,
				MinimumNights:      fx.MinimumNights,
				MaximumNights:      fx.MaximumNights,
				MaxGuests:          fx.MaxGuests,
				CancellationPolicy: fx.CancellationPolicy,
				DefaultAvailable:   available,
				CheckInDays:        fx.CheckInDays,
				CheckOutDays:       fx.CheckOutDays,
			},
		})
		if err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				logger.Debug("fixture listing already present", "listing_id", fx.ID)
				continue
			}
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if fx.Draft {
			logger.Info("listing fixture imported", "listing_id", created.ID, "state", created.State)
			continue
		}
		if _, err := commands.Dispatch[listingapp.PublishHostListingCommand, *dto.Listing](ctx, a.engine.Commands, listingapp.PublishHostListingCommand{
			HostID:    fx.Host,
			ListingID: created.ID,
		}); err != nil {
			logger.Error("fixture publish failed", "listing_id", created.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", created.ID)
	}
	return nil
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
