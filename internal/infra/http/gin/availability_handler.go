package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	calendarapp "staybook/internal/app/handlers/calendar"
	"staybook/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AvailabilityHandler) Availability(c *gin.Context) {
	start, err := parseDate("start", c.Query("start"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	end, err := parseDate("end", c.Query("end"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	guests, err := parsePositiveInt("guests", c.Query("guests"), 1)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	q := availabilityapp.ComputeAvailabilityQuery{ListingID: c.Param("id"), Start: start, End: end, Guests: guests}
	result, err := queries.Ask[availabilityapp.ComputeAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := parseDate("start", c.Query("start"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	to, err := parseDate("end", c.Query("end"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	q := availabilityapp.GetCalendarQuery{ListingID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type calendarEntryRequest struct {
	Date            string          `json:"date"`
	IsAvailable     bool            `json:"is_available"`
	BasePrice       decimal.Decimal `json:"base_price"`
	MinStay         int             `json:"min_stay"`
	MaxStay         int             `json:"max_stay"`
	CheckInAllowed  bool            `json:"check_in_allowed"`
	CheckOutAllowed bool            `json:"check_out_allowed"`
}

type replaceCalendarRequest struct {
	Start   string                 `json:"start"`
	End     string                 `json:"end"`
	Entries []calendarEntryRequest `json:"entries"`
}

// ReplaceCalendar swaps the stored rows of [start, end] for the given entries
// in one transaction.
func (h AvailabilityHandler) ReplaceCalendar(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req replaceCalendarRequest
	if !bindJSON(c, h.Logger, &req) {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	entries := make([]calendarapp.CalendarEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		date, err := parseDate("entries.date", e.Date)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		entries = append(entries, calendarapp.CalendarEntry{
			Date:            date,
			Available:       e.IsAvailable,
			BasePrice:       e.BasePrice,
			MinStay:         e.MinStay,
			MaxStay:         e.MaxStay,
			CheckInAllowed:  e.CheckInAllowed,
			CheckOutAllowed: e.CheckOutAllowed,
		})
	}
	cmd := calendarapp.ReplaceCalendarRangeCommand{
		HostID:    hostID,
		ListingID: c.Param("id"),
		Start:     start,
		End:       end,
		Entries:   entries,
	}
	result, err := commands.Dispatch[calendarapp.ReplaceCalendarRangeCommand, *dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type exportCalendarRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Export publishes the blocked nights of the span as an .ics file.
func (h AvailabilityHandler) Export(c *gin.Context) {
	hostID, ok := requireActor(c)
	if !ok {
		return
	}
	var req exportCalendarRequest
	if !bindJSON(c, h.Logger, &req) {
		return
	}
	from, err := parseDate("start", req.Start)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	to, err := parseDate("end", req.End)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	q := calendarapp.ExportCalendarQuery{HostID: hostID, ListingID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[calendarapp.ExportCalendarQuery, dto.CalendarExport](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
