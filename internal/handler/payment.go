package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

// PaymentHandler serves the payment endpoints.
type PaymentHandler struct {
    Bookings BookingService
}

// NewPaymentHandler panics on a nil service.
func NewPaymentHandler(bookings BookingService) *PaymentHandler {
    if bookings == nil {
        panic("nil booking service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Bookings: bookings}
}

type payRequest struct {
    BookingID      uint64 `json:"booking_id"`
    Method         string `json:"method"`
    Amount         int64  `json:"amount"`
    TransactionRef string `json:"transaction_ref"`
}

type paySimpleRequest struct {
    BookingID uint64 `json:"booking_id"`
    Method    string `json:"method"`
}

// Pay handles POST /v1/payments.
func (h *PaymentHandler) Pay(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    var req payRequest
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    b, err := h.Bookings.Pay(c.Request().Context(), caller, service.PayInput{
        BookingID:      req.BookingID,
        Method:         req.Method,
        Amount:         req.Amount,
        TransactionRef: req.TransactionRef,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, b)
}

// PaySimple handles POST /v1/payments/simple: the amount is the booking
// total and the reference is generated.
func (h *PaymentHandler) PaySimple(c echo.Context) error {
    caller, err := getCaller(c)
    if err != nil {
        return err
    }
    var req paySimpleRequest
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    b, err := h.Bookings.PaySimple(c.Request().Context(), caller, req.BookingID, req.Method)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, b)
}
