package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// BookingHandler serves the customer booking endpoints.  JWTAuth and
// RequireRole run before every method.
type BookingHandler struct {
    Bookings BookingService
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(bookings BookingService) *BookingHandler {
    if bookings == nil {
        panic("nil booking service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings}
}

type createBookingRequest struct {
    ScreeningID uint64   `json:"screening_id"`
    SeatIDs     []uint64 `json:"seat_ids"`
}

// Create handles POST /v1/bookings and answers 201 with the booking detail.
func (h *BookingHandler) Create(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    var req createBookingRequest
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    b, err := h.Bookings.CreateBooking(c.Request().Context(), caller, req.ScreeningID, req.SeatIDs)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    b, err := h.Bookings.GetBooking(c.Request().Context(), caller, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, b)
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    list, err := h.Bookings.ListMyBookings(c.Request().Context(), caller)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Cancel handles PUT /v1/bookings/:id/cancel and answers 204.
func (h *BookingHandler) Cancel(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    if err := h.Bookings.Cancel(c.Request().Context(), caller, id); err != nil {
        return err
    }
    return c.NoContent(http.StatusNoContent)
}

// ListForScreening handles GET /v1/admin/screenings/:id/bookings.
func (h *BookingHandler) ListForScreening(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    list, err := h.Bookings.ListScreeningBookings(c.Request().Context(), caller, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "bookings": list})
}
