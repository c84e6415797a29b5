package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	calendarapp "staybook/internal/app/handlers/calendar"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/queries"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type hostListingRequest struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	PricePerNight      decimal.Decimal `json:"price_per_night"`
	MinimumNights      int             `json:"minimum_nights"`
	MaximumNights      int             `json:"maximum_nights"`
	MaxGuests          int             `json:"max_guests"`
	CancellationPolicy string          `json:"cancellation_policy"`
	// DefaultAvailability defaults to true when omitted.
	DefaultAvailability *bool    `json:"default_availability"`
	CheckInDays         []string `json:"check_in_days"`
	CheckOutDays        []string `json:"check_out_days"`
}

func (h ListingHandler) Create(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req hostListingRequest
	if !bindJSON(c, h.Logger, &req) {
		return
	}
	available := true
	if req.DefaultAvailability != nil {
		available = *req.DefaultAvailability
	}
	cmd := listingapp.CreateHostListingCommand{
		HostID:    hostID,
		ListingID: req.ID,
		Payload: listingapp.HostListingPayload{
			Title:              req.Title,
			PricePerNight:      req.PricePerNight,
			MinimumNights:      req.MinimumNights,
			MaximumNights:      req.MaximumNights,
			MaxGuests:          req.MaxGuests,
			CancellationPolicy: req.CancellationPolicy,
			DefaultAvailable:   available,
			CheckInDays:        req.CheckInDays,
			CheckOutDays:       req.CheckOutDays,
		},
	}
	result, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/listings/%s", result.ID))
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Publish activates the listing. Calendar seeding follows from the
// published event.
func (h ListingHandler) Publish(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := listingapp.PublishHostListingCommand{HostID: hostID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.PublishHostListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

func (h ListingHandler) Suspend(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req suspendRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.Logger, &req) {
		return
	}
	cmd := listingapp.SuspendHostListingCommand{HostID: hostID, ListingID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[listingapp.SuspendHostListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type seedRequest struct {
	From string `json:"from"`
}

// SeedCalendar re-runs seeding explicitly. Existing rows are kept.
func (h ListingHandler) SeedCalendar(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req seedRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.Logger, &req) {
		return
	}
	from, err := optionalDate("from", req.From)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := calendarapp.SeedCalendarCommand{ListingID: c.Param("id"), HostID: hostID, From: from}
	result, err := commands.Dispatch[calendarapp.SeedCalendarCommand, *dto.SeedResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
