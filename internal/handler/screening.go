package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// ScreeningHandler serves the public screening reads.
type ScreeningHandler struct {
    Screenings ScreeningService
}

// NewScreeningHandler panics on a nil service.
func NewScreeningHandler(screenings ScreeningService) *ScreeningHandler {
    if screenings == nil {
        panic("nil screening service passed to NewScreeningHandler")
    }
    return &ScreeningHandler{Screenings: screenings}
}

// Get handles GET /v1/screenings/:id.
func (h *ScreeningHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    s, err := h.Screenings.GetScreening(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, s)
}

// Seats handles GET /v1/screenings/:id/seats.
func (h *ScreeningHandler) Seats(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    m, err := h.Screenings.SeatMap(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, m)
}
