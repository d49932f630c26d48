package service

import (
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ScreeningSummary is the public view of a screening.  Times are
// rendered in the service clock's zone.
type ScreeningSummary struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	HallID     uint64    `json:"hall_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Price      int64     `json:"price"`
	Status     string    `json:"status"`
	Bookable   bool      `json:"bookable"`
}

// HallSummary names the hall and, when assigned, its cinema.
type HallSummary struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	CinemaID   *uint64 `json:"cinema_id,omitempty"`
	CinemaName *string `json:"cinema_name,omitempty"`
}

// SeatSummary describes one seat of a booking.
type SeatSummary struct {
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	SeatType   string `json:"seat_type"`
	Label      string `json:"label"`
}

// BookingDetail is a booking together with its screening, hall and seats.
type BookingDetail struct {
	ID            uint64            `json:"id"`
	UserID        uint64            `json:"user_id"`
	ScreeningID   uint64            `json:"screening_id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	TotalAmount   int64             `json:"total_amount"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	TransactionID *string           `json:"transaction_id,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Seats         []SeatSummary     `json:"seats"`
	Screening     *ScreeningSummary `json:"screening,omitempty"`
	Hall          *HallSummary      `json:"hall,omitempty"`
}

// ScreeningDetail is returned by the screening detail endpoint.
type ScreeningDetail struct {
	ScreeningSummary
	Hall *HallSummary `json:"hall,omitempty"`
}

// SeatState is one cell of a seat map.
type SeatState struct {
	SeatID     uint64 `json:"seat_id"`
	SeatNumber uint32 `json:"seat_number"`
	SeatType   string `json:"seat_type"`
	Label      string `json:"label"`
	IsBooked   bool   `json:"is_booked"`
}

// SeatRow groups the seats sharing a row label.
type SeatRow struct {
	RowLabel string      `json:"row_label"`
	Seats    []SeatState `json:"seats"`
}

// SeatMap is the seat grid of a screening's hall with availability.
type SeatMap struct {
	ScreeningID uint64    `json:"screening_id"`
	HallID      uint64    `json:"hall_id"`
	Rows        []SeatRow `json:"rows"`
	Total       int       `json:"total"`
	Booked      int       `json:"booked"`
	Available   int       `json:"available"`
}

func screeningSummary(s *model.Screening, loc *time.Location, bookable bool) *ScreeningSummary {
	return &ScreeningSummary{
		ID:         s.ID,
		MovieID:    s.MovieID,
		MovieTitle: s.MovieTitle,
		HallID:     s.HallID,
		StartsAt:   s.StartsAt.In(loc),
		EndsAt:     s.EndsAt.In(loc),
		Price:      s.Price,
		Status:     string(s.Status),
		Bookable:   bookable,
	}
}

func hallSummary(h *model.Hall) *HallSummary {
	if h == nil {
		return nil
	}
	return &HallSummary{ID: h.ID, Name: h.Name, CinemaID: h.CinemaID, CinemaName: h.CinemaName}
}

func seatSummary(s model.Seat) SeatSummary {
	return SeatSummary{
		SeatID:     s.ID,
		RowLabel:   s.RowLabel,
		SeatNumber: s.SeatNumber,
		SeatType:   s.SeatType,
		Label:      s.Label(),
	}
}
