// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and audit consumer that move them.
package queue

import "time"

// Event types published on booking state changes.  Each type is also the
// name of the durable queue it is routed to.
const (
    EventBookingCreated   = "booking.created"
    EventBookingPaid      = "booking.paid"
    EventBookingCancelled = "booking.cancelled"
)

// EventTypes lists every queue the publisher and consumer declare.
var EventTypes = []string{EventBookingCreated, EventBookingPaid, EventBookingCancelled}

// BookingEvent is published after a booking change commits.  It contains
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type BookingEvent struct {
    Type          string    `json:"type"`
    BookingID     uint64    `json:"booking_id"`
    UserID        uint64    `json:"user_id"`
    ScreeningID   uint64    `json:"screening_id"`
    SeatIDs       []uint64  `json:"seat_ids"`
    TotalAmount   int64     `json:"total_amount"`
    Status        string    `json:"status"`
    PaymentStatus string    `json:"payment_status"`
    TransactionID string    `json:"transaction_id,omitempty"`
    OccurredAt    time.Time `json:"occurred_at"`
}
