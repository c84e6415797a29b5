package listings

import (
	"context"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
)

const getListingKey = "listings.get"

type GetListingQuery struct {
	ListingID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Listing{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	return dto.MapListing(listing), nil
}

var _ queries.Handler[GetListingQuery, dto.Listing] = (*GetListingHandler)(nil)
