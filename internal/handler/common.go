package handler // handler defines http handlers

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-seat-booking/internal/middleware"
    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

// BookingService is the part of service.BookingService the handlers use.
type BookingService interface {
    CreateBooking(ctx context.Context, caller service.Caller, screeningID uint64, seatIDs []uint64) (*service.BookingDetail, error)
    Pay(ctx context.Context, caller service.Caller, in service.PayInput) (*service.BookingDetail, error)
    PaySimple(ctx context.Context, caller service.Caller, bookingID uint64, method string) (*service.BookingDetail, error)
    Cancel(ctx context.Context, caller service.Caller, bookingID uint64) error
    GetBooking(ctx context.Context, caller service.Caller, bookingID uint64) (*service.BookingDetail, error)
    ListMyBookings(ctx context.Context, caller service.Caller) ([]service.BookingDetail, error)
    ListScreeningBookings(ctx context.Context, caller service.Caller, screeningID uint64) ([]service.BookingDetail, error)
}

// ScreeningService is the part of service.ScreeningService the handlers use.
type ScreeningService interface {
    GetScreening(ctx context.Context, id uint64) (*service.ScreeningDetail, error)
    SeatMap(ctx context.Context, id uint64) (*service.SeatMap, error)
}

// getCaller builds the service caller from the claims JWTAuth stored.
func getCaller(c echo.Context) (service.Caller, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return service.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    return service.Caller{UserID: id, IsAdmin: middleware.IsAdmin(c)}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, &service.Error{Kind: service.KindInvalidRequest, Code: service.CodeInvalidRequest, Message: "invalid " + name}
    }
    return id, nil
}

func badBody() error {
    return &service.Error{Kind: service.KindInvalidRequest, Code: service.CodeInvalidRequest, Message: "invalid request body"}
}
