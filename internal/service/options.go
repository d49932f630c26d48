package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/logging"
)

const (
	DefaultMaxSeats    = 8
	DefaultExpiryGrace = 15 * time.Minute

	// PaymentClaimTTL bounds how long a PROCESSING claim blocks other
	// payers before it is considered abandoned.
	PaymentClaimTTL = 2 * time.Minute
)

type options struct {
	maxSeats int
	grace    time.Duration
	events   EventPublisher
	seatMaps SeatMapCache
	log      *logrus.Logger
}

// Option configures BookingService and ScreeningService.
type Option func(*options)

// WithMaxSeats caps the number of seats in one booking.
func WithMaxSeats(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSeats = n
		}
	}
}

// WithExpiryGrace sets how long after its start a screening stays bookable.
func WithExpiryGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.grace = d
		}
	}
}

// WithPublisher enables booking lifecycle events.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithSeatMapCache enables seat map caching.
func WithSeatMapCache(c SeatMapCache) Option {
	return func(o *options) { o.seatMaps = c }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		maxSeats: DefaultMaxSeats,
		grace:    DefaultExpiryGrace,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
