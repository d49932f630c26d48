package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-seat-booking/internal/config"
    "github.com/iliyamo/cinema-seat-booking/internal/handler"
    "github.com/iliyamo/cinema-seat-booking/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil; the rate
// limiter then falls back to in-process buckets and the response cache
// is skipped.
type Deps struct {
    JWTSecret  string
    Bookings   handler.BookingService
    Screenings handler.ScreeningService
    DB         handler.Pinger
    Redis      *redis.Client
    RateLimit  config.RateLimitConfig
    Cache      config.CacheConfig
    Log        *logrus.Logger
}

// Register mounts the health check, the public screening reads, the
// authenticated booking and payment routes and the admin routes.
func Register(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health(d.DB))

    RegisterPublic(e, handler.NewScreeningHandler(d.Screenings), d)

    bookings := handler.NewBookingHandler(d.Bookings)
    payments := handler.NewPaymentHandler(d.Bookings)
    limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

    // Both roles may book; ownership is enforced by the service.
    g := e.Group(
        "/v1",
        middleware.JWTAuth(d.JWTSecret),
        middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin),
    )
    g.POST("/bookings", bookings.Create, limit)
    g.GET("/bookings/:id", bookings.Get)
    g.GET("/my-bookings", bookings.ListMine)
    g.PUT("/bookings/:id/cancel", bookings.Cancel, limit)
    g.POST("/payments", payments.Pay, limit)
    g.POST("/payments/simple", payments.PaySimple, limit)

    RegisterAdmin(e, bookings, d.JWTSecret)
}

// RegisterPublic registers the unauthenticated screening reads.  Only the
// screening detail goes through the response cache; the seat map has its
// own cache that booking writes invalidate.
func RegisterPublic(e *echo.Echo, h *handler.ScreeningHandler, d Deps) {
    e.GET("/v1/screenings/:id", h.Get, middleware.ResponseCache(d.Cache, d.Redis))
    e.GET("/v1/screenings/:id/seats", h.Seats)
}

// RegisterAdmin registers ADMIN-only routes under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(middleware.RoleAdmin),
    )
    g.GET("/screenings/:id/bookings", h.ListForScreening)
}
