package policies

import (
	"context"

	"staybook/internal/app/dto"
)

// AvailabilityCache stores computed availability answers per listing.
// Implementations must drop every entry of a listing on Invalidate.
type AvailabilityCache interface {
	Get(ctx context.Context, listingID, key string) (dto.Availability, bool, error)
	Set(ctx context.Context, listingID, key string, value dto.Availability) error
	Invalidate(ctx context.Context, listingID string) error
}
