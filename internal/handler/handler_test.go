package handler

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-seat-booking/internal/logging"
    "github.com/iliyamo/cinema-seat-booking/internal/middleware"
    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

type mockBookings struct {
    createFn    func(ctx context.Context, caller service.Caller, screeningID uint64, seatIDs []uint64) (*service.BookingDetail, error)
    payFn       func(ctx context.Context, caller service.Caller, in service.PayInput) (*service.BookingDetail, error)
    paySimpleFn func(ctx context.Context, caller service.Caller, bookingID uint64, method string) (*service.BookingDetail, error)
    cancelFn    func(ctx context.Context, caller service.Caller, bookingID uint64) error
    getFn       func(ctx context.Context, caller service.Caller, bookingID uint64) (*service.BookingDetail, error)
    listMineFn  func(ctx context.Context, caller service.Caller) ([]service.BookingDetail, error)
    listAdminFn func(ctx context.Context, caller service.Caller, screeningID uint64) ([]service.BookingDetail, error)
}

func (m *mockBookings) CreateBooking(ctx context.Context, caller service.Caller, screeningID uint64, seatIDs []uint64) (*service.BookingDetail, error) {
    return m.createFn(ctx, caller, screeningID, seatIDs)
}

func (m *mockBookings) Pay(ctx context.Context, caller service.Caller, in service.PayInput) (*service.BookingDetail, error) {
    return m.payFn(ctx, caller, in)
}

func (m *mockBookings) PaySimple(ctx context.Context, caller service.Caller, bookingID uint64, method string) (*service.BookingDetail, error) {
    return m.paySimpleFn(ctx, caller, bookingID, method)
}

func (m *mockBookings) Cancel(ctx context.Context, caller service.Caller, bookingID uint64) error {
    return m.cancelFn(ctx, caller, bookingID)
}

func (m *mockBookings) GetBooking(ctx context.Context, caller service.Caller, bookingID uint64) (*service.BookingDetail, error) {
    return m.getFn(ctx, caller, bookingID)
}

func (m *mockBookings) ListMyBookings(ctx context.Context, caller service.Caller) ([]service.BookingDetail, error) {
    return m.listMineFn(ctx, caller)
}

func (m *mockBookings) ListScreeningBookings(ctx context.Context, caller service.Caller, screeningID uint64) ([]service.BookingDetail, error) {
    return m.listAdminFn(ctx, caller, screeningID)
}

type mockScreenings struct {
    getFn     func(ctx context.Context, id uint64) (*service.ScreeningDetail, error)
    seatMapFn func(ctx context.Context, id uint64) (*service.SeatMap, error)
}

func (m *mockScreenings) GetScreening(ctx context.Context, id uint64) (*service.ScreeningDetail, error) {
    return m.getFn(ctx, id)
}

func (m *mockScreenings) SeatMap(ctx context.Context, id uint64) (*service.SeatMap, error) {
    return m.seatMapFn(ctx, id)
}

// asUser stands in for JWTAuth in handler tests.
func asUser(id uint64, role string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set(middleware.ContextUserID, id)
            c.Set(middleware.ContextRole, role)
            return next(c)
        }
    }
}

func newEcho() *echo.Echo {
    e := echo.New()
    e.HTTPErrorHandler = NewErrorHandler(logging.Discard())
    return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestCreateBooking(t *testing.T) {
    var got service.Caller
    var gotSeats []uint64
    svc := &mockBookings{
        createFn: func(_ context.Context, caller service.Caller, screeningID uint64, seatIDs []uint64) (*service.BookingDetail, error) {
            got, gotSeats = caller, seatIDs
            return &service.BookingDetail{ID: 55, ScreeningID: screeningID, Status: "PENDING", TotalAmount: 200000}, nil
        },
    }
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(svc).Create, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodPost, "/v1/bookings", `{"screening_id":100,"seat_ids":[1,2]}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    assert.Contains(t, rec.Body.String(), `"id":55`)
    assert.Contains(t, rec.Body.String(), `"total_amount":200000`)
    assert.Equal(t, service.Caller{UserID: 7}, got)
    assert.Equal(t, []uint64{1, 2}, gotSeats)
}

func TestCreateBookingSeatConflictBody(t *testing.T) {
    svc := &mockBookings{
        createFn: func(context.Context, service.Caller, uint64, []uint64) (*service.BookingDetail, error) {
            return nil, &service.Error{Kind: service.KindConflict, Code: service.CodeSeatConflict, Message: "seats already booked", SeatIDs: []uint64{2}}
        },
    }
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(svc).Create, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodPost, "/v1/bookings", `{"screening_id":100,"seat_ids":[1,2]}`)
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.JSONEq(t, `{"error":"SEAT_CONFLICT","message":"seats already booked","seat_ids":[2]}`, rec.Body.String())
}

func TestCreateBookingMalformedBody(t *testing.T) {
    svc := &mockBookings{
        createFn: func(context.Context, service.Caller, uint64, []uint64) (*service.BookingDetail, error) {
            t.Fatal("service must not be called")
            return nil, nil
        },
    }
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(svc).Create, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodPost, "/v1/bookings", `{"screening_id":"x"`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), service.CodeInvalidRequest)
}

func TestCreateBookingWithoutIdentity(t *testing.T) {
    e := newEcho()
    e.POST("/v1/bookings", NewBookingHandler(&mockBookings{}).Create)

    rec := do(e, http.MethodPost, "/v1/bookings", `{"screening_id":100,"seat_ids":[1]}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestGetBookingStatusMapping(t *testing.T) {
    cases := []struct {
        name   string
        err    error
        status int
        code   string
    }{
        {"not found", &service.Error{Kind: service.KindNotFound, Code: service.CodeBookingNotFound}, http.StatusNotFound, service.CodeBookingNotFound},
        {"forbidden", &service.Error{Kind: service.KindForbidden, Code: service.CodeForbidden}, http.StatusForbidden, service.CodeForbidden},
        {"unbookable", &service.Error{Kind: service.KindUnbookable, Code: service.CodeAlreadyStarted}, http.StatusUnprocessableEntity, service.CodeAlreadyStarted},
        {"declined", &service.Error{Kind: service.KindPaymentDeclined, Code: service.CodePaymentDeclined}, http.StatusPaymentRequired, service.CodePaymentDeclined},
        {"internal", &service.Error{Kind: service.KindInternal, Code: service.CodeInternal, Message: "db password leaked", Err: errors.New("boom")}, http.StatusInternalServerError, service.CodeInternal},
        {"plain", errors.New("boom"), http.StatusInternalServerError, service.CodeInternal},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            svc := &mockBookings{
                getFn: func(context.Context, service.Caller, uint64) (*service.BookingDetail, error) { return nil, tc.err },
            }
            e := newEcho()
            e.GET("/v1/bookings/:id", NewBookingHandler(svc).Get, asUser(7, middleware.RoleCustomer))

            rec := do(e, http.MethodGet, "/v1/bookings/9", "")
            assert.Equal(t, tc.status, rec.Code)
            assert.Contains(t, rec.Body.String(), `"error":"`+tc.code+`"`)
            assert.NotContains(t, rec.Body.String(), "leaked")
        })
    }
}

func TestGetBookingInvalidID(t *testing.T) {
    e := newEcho()
    e.GET("/v1/bookings/:id", NewBookingHandler(&mockBookings{}).Get, asUser(7, middleware.RoleCustomer))

    for _, id := range []string{"abc", "0", "-1"} {
        rec := do(e, http.MethodGet, "/v1/bookings/"+id, "")
        assert.Equal(t, http.StatusBadRequest, rec.Code, id)
    }
}

func TestCancelBooking(t *testing.T) {
    var cancelled uint64
    svc := &mockBookings{
        cancelFn: func(_ context.Context, caller service.Caller, id uint64) error {
            assert.True(t, caller.IsAdmin)
            cancelled = id
            return nil
        },
    }
    e := newEcho()
    e.PUT("/v1/bookings/:id/cancel", NewBookingHandler(svc).Cancel, asUser(1, middleware.RoleAdmin))

    rec := do(e, http.MethodPut, "/v1/bookings/42/cancel", "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Empty(t, rec.Body.String())
    assert.Equal(t, uint64(42), cancelled)
}

func TestListMyBookings(t *testing.T) {
    svc := &mockBookings{
        listMineFn: func(_ context.Context, caller service.Caller) ([]service.BookingDetail, error) {
            return []service.BookingDetail{{ID: 2, UserID: caller.UserID}, {ID: 1, UserID: caller.UserID}}, nil
        },
    }
    e := newEcho()
    e.GET("/v1/my-bookings", NewBookingHandler(svc).ListMine, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodGet, "/v1/my-bookings", "")
    require.Equal(t, http.StatusOK, rec.Code)
    body := rec.Body.String()
    assert.Contains(t, body, `"bookings":[`)
    assert.Less(t, strings.Index(body, `"id":2`), strings.Index(body, `"id":1`))
}

func TestListScreeningBookings(t *testing.T) {
    svc := &mockBookings{
        listAdminFn: func(_ context.Context, _ service.Caller, screeningID uint64) ([]service.BookingDetail, error) {
            return []service.BookingDetail{{ID: 3, ScreeningID: screeningID}}, nil
        },
    }
    e := newEcho()
    e.GET("/v1/admin/screenings/:id/bookings", NewBookingHandler(svc).ListForScreening, asUser(1, middleware.RoleAdmin))

    rec := do(e, http.MethodGet, "/v1/admin/screenings/100/bookings", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"screening_id":100`)
}

func TestPay(t *testing.T) {
    var got service.PayInput
    svc := &mockBookings{
        payFn: func(_ context.Context, _ service.Caller, in service.PayInput) (*service.BookingDetail, error) {
            got = in
            return &service.BookingDetail{ID: in.BookingID, PaymentStatus: "PAID"}, nil
        },
    }
    e := newEcho()
    e.POST("/v1/payments", NewPaymentHandler(svc).Pay, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodPost, "/v1/payments", `{"booking_id":5,"method":"CREDIT_CARD","amount":200000,"transaction_ref":"T-1"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"payment_status":"PAID"`)
    assert.Equal(t, service.PayInput{BookingID: 5, Method: "CREDIT_CARD", Amount: 200000, TransactionRef: "T-1"}, got)
}

func TestPaySimple(t *testing.T) {
    svc := &mockBookings{
        paySimpleFn: func(_ context.Context, _ service.Caller, id uint64, method string) (*service.BookingDetail, error) {
            assert.Equal(t, uint64(5), id)
            assert.Equal(t, "TEST_FAIL", method)
            return nil, &service.Error{Kind: service.KindPaymentDeclined, Code: service.CodePaymentDeclined, Message: "payment declined"}
        },
    }
    e := newEcho()
    e.POST("/v1/payments/simple", NewPaymentHandler(svc).PaySimple, asUser(7, middleware.RoleCustomer))

    rec := do(e, http.MethodPost, "/v1/payments/simple", `{"booking_id":5,"method":"TEST_FAIL"}`)
    assert.Equal(t, http.StatusPaymentRequired, rec.Code)
    assert.JSONEq(t, `{"error":"PAYMENT_DECLINED","message":"payment declined"}`, rec.Body.String())
}

func TestScreeningHandlers(t *testing.T) {
    svc := &mockScreenings{
        getFn: func(_ context.Context, id uint64) (*service.ScreeningDetail, error) {
            if id != 100 {
                return nil, &service.Error{Kind: service.KindNotFound, Code: service.CodeScreeningNotFound, Message: "screening not found"}
            }
            return &service.ScreeningDetail{ScreeningSummary: service.ScreeningSummary{ID: id, Bookable: true}}, nil
        },
        seatMapFn: func(_ context.Context, id uint64) (*service.SeatMap, error) {
            return &service.SeatMap{ScreeningID: id, Total: 5, Booked: 2, Available: 3}, nil
        },
    }
    h := NewScreeningHandler(svc)
    e := newEcho()
    e.GET("/v1/screenings/:id", h.Get)
    e.GET("/v1/screenings/:id/seats", h.Seats)

    rec := do(e, http.MethodGet, "/v1/screenings/100", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"bookable":true`)

    rec = do(e, http.MethodGet, "/v1/screenings/101", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), service.CodeScreeningNotFound)

    rec = do(e, http.MethodGet, "/v1/screenings/100/seats", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"available":3`)
}

func TestUnknownRouteUsesErrorBody(t *testing.T) {
    e := newEcho()
    rec := do(e, http.MethodGet, "/nope", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), `"error":"NOT_FOUND"`)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
    e := newEcho()
    e.GET("/ok", Health(pinger{}))
    e.GET("/down", Health(pinger{err: errors.New("refused")}))
    e.GET("/bare", Health(nil))

    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ok", "").Code)
    assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
    assert.JSONEq(t, `{"status":"ok"}`, do(e, http.MethodGet, "/bare", "").Body.String())
}
