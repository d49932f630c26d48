package model

import "time"

// BookingStatus is the reservation side of a booking's lifecycle.
type BookingStatus string

// PaymentStatus is the payment side of a booking's lifecycle.
type PaymentStatus string

const (
    BookingPending   BookingStatus = "PENDING"
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCancelled BookingStatus = "CANCELLED"

    PaymentPending    PaymentStatus = "PENDING"
    PaymentProcessing PaymentStatus = "PROCESSING"
    PaymentPaid       PaymentStatus = "PAID"
    PaymentFailed     PaymentStatus = "FAILED"
)

// Booking records a user's reservation of one or more seats for a
// screening.  The seat set and TotalAmount are fixed when the booking is
// created; later price changes on the screening do not touch it.
// Bookings are never deleted, cancellation only flips Status.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who made the booking.
//  ScreeningID   – screening being booked.
//  Status        – PENDING, CONFIRMED or CANCELLED.
//  PaymentStatus – PENDING, PROCESSING, PAID or FAILED.  PROCESSING marks
//                  a charge in flight at the payment processor.
//  TotalAmount   – price × seat count at creation time.
//  PaymentMethod – method used for the successful payment, if any.
//  TransactionID – payment reference, if any.
//  PaidAt        – set exactly once, when payment succeeds.
//  SeatIDs       – seats held by this booking.
type Booking struct {
    ID            uint64        // bookings.id
    UserID        uint64        // bookings.user_id
    ScreeningID   uint64        // bookings.screening_id
    Status        BookingStatus // bookings.status
    PaymentStatus PaymentStatus // bookings.payment_status
    TotalAmount   int64         // bookings.total_amount
    PaymentMethod *string       // bookings.payment_method (nullable)
    TransactionID *string       // bookings.transaction_id (nullable)
    PaidAt        *time.Time    // bookings.paid_at (nullable)
    CreatedAt     time.Time     // bookings.created_at
    UpdatedAt     time.Time     // bookings.updated_at
    SeatIDs       []uint64      // booking_seats.seat_id
}

// Active reports whether the booking still holds its seats.
func (b *Booking) Active() bool { return b.Status != BookingCancelled }

// BookingSeat links a booking to a seat of its screening.  Active is
// cleared when the parent booking is cancelled so the unique index over
// (screening_id, seat_id, active) only covers live bookings.
type BookingSeat struct {
    BookingID   uint64 // booking_seats.booking_id
    ScreeningID uint64 // booking_seats.screening_id
    SeatID      uint64 // booking_seats.seat_id
    Active      bool   // booking_seats.active (1 or NULL)
}

// Payment carries the fields written when a payment is confirmed.
type Payment struct {
    Method        string
    TransactionID string
    PaidAt        time.Time
}
