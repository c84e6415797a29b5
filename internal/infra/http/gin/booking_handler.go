package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	guestID, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if !bindJSON(c, h.Logger, &req) {
		return
	}
	checkIn, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       req.ListingID,
		GuestID:         guestID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/bookings/%s", result.ID))
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ActorID: actorID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmHostBookingCommand{HostID: hostID, BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.ConfirmHostBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	actorID, ok := requireActor(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.Logger, &req) {
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		ActorID:         actorID,
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Complete and Expire are driven by the external scheduler, which calls them
// with its own identity.
func (h BookingHandler) Complete(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	cmd := bookingapp.CompleteBookingCommand{BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Expire(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	cmd := bookingapp.ExpireBookingCommand{BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.ExpireBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
