package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
)

// TxRunner runs fn in one transaction carried by the context passed to fn.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ScreeningStore is implemented by repository.ScreeningRepo.
type ScreeningStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Screening, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Screening, error)
	ListUpcoming(ctx context.Context, startedBefore time.Time) ([]model.Screening, error)
	MarkExpired(ctx context.Context, ids []uint64) (int64, error)
}

// SeatStore is implemented by repository.SeatRepo.
type SeatStore interface {
	ListByHall(ctx context.Context, hallID uint64) ([]model.Seat, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
}

// HallStore is implemented by repository.HallRepo.
type HallStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
}

// BookingStore is implemented by repository.BookingRepo.
type BookingStore interface {
	HeldSeatIDs(ctx context.Context, screeningID uint64, candidates []uint64) ([]uint64, error)
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	ClaimPayment(ctx context.Context, id uint64, at, staleBefore time.Time) (bool, error)
	ReleasePayment(ctx context.Context, id uint64, at time.Time) error
	MarkPaid(ctx context.Context, id uint64, p model.Payment) (bool, error)
	MarkCancelled(ctx context.Context, id uint64, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Booking, error)
}

// Stores bundles the persistence dependencies of the services.
type Stores struct {
	Tx         TxRunner
	Screenings ScreeningStore
	Seats      SeatStore
	Halls      HallStore
	Bookings   BookingStore
}

// EventPublisher delivers booking lifecycle events.  Failures are logged
// by the caller and never undo a committed change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// SeatMapCache stores encoded seat maps per screening.  Invalidate bumps
// the screening's generation; Set must refuse data computed under an
// older generation than the current one.
type SeatMapCache interface {
	Get(ctx context.Context, screeningID uint64) ([]byte, bool, error)
	Generation(ctx context.Context, screeningID uint64) (uint64, error)
	Set(ctx context.Context, screeningID, gen uint64, data []byte) (bool, error)
	Invalidate(ctx context.Context, screeningID uint64) error
}
