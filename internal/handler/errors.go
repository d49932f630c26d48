package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
    Error   string   `json:"error"`
    Message string   `json:"message"`
    SeatIDs []uint64 `json:"seat_ids,omitempty"`
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(k service.Kind) int {
    switch k {
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindForbidden:
        return http.StatusForbidden
    case service.KindInvalidRequest:
        return http.StatusBadRequest
    case service.KindConflict:
        return http.StatusConflict
    case service.KindUnbookable:
        return http.StatusUnprocessableEntity
    case service.KindPaymentDeclined:
        return http.StatusPaymentRequired
    default:
        return http.StatusInternalServerError
    }
}

// NewErrorHandler returns the echo.HTTPErrorHandler of the API.  Service
// errors are rendered with their code and seat ids; internal errors are
// logged with their cause and answered with a generic message.
func NewErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, body := render(err)
        if status >= http.StatusInternalServerError {
            log.WithError(err).WithFields(logrus.Fields{
                "method": c.Request().Method,
                "path":   c.Request().URL.Path,
            }).Error("request failed")
        }
        if c.Request().Method == http.MethodHead {
            _ = c.NoContent(status)
            return
        }
        _ = c.JSON(status, body)
    }
}

func render(err error) (int, errorBody) {
    var se *service.Error
    if errors.As(err, &se) {
        status := StatusFor(se.Kind)
        if se.Kind == service.KindInternal {
            return status, errorBody{Error: service.CodeInternal, Message: "internal server error"}
        }
        return status, errorBody{Error: se.Code, Message: se.Message, SeatIDs: se.SeatIDs}
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        msg := http.StatusText(he.Code)
        if m, ok := he.Message.(string); ok {
            msg = m
        }
        code := "HTTP_ERROR"
        switch he.Code {
        case http.StatusNotFound:
            code = "NOT_FOUND"
        case http.StatusUnauthorized:
            code = "UNAUTHORIZED"
        case http.StatusMethodNotAllowed:
            code = "METHOD_NOT_ALLOWED"
        case http.StatusBadRequest:
            code = service.CodeInvalidRequest
        }
        return he.Code, errorBody{Error: code, Message: msg}
    }
    return http.StatusInternalServerError, errorBody{Error: service.CodeInternal, Message: "internal server error"}
}
