package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  WithTx
// serializes transactions and restores a snapshot when fn fails; Create
// enforces the same "one live booking per seat" rule as the
// booking_seats unique index.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	screenings map[uint64]model.Screening
	seats      map[uint64]model.Seat
	halls      map[uint64]model.Hall
	bookings   map[uint64]model.Booking
	seatRows   []model.BookingSeat
	nextID     uint64

	// skipHeld makes HeldSeatIDs report nothing so only the unique index
	// stands between two overlapping bookings.
	skipHeld bool
	listErr  error
	markErr  error
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		screenings: map[uint64]model.Screening{},
		seats:      map[uint64]model.Seat{},
		halls:      map[uint64]model.Hall{},
		bookings:   map[uint64]model.Booking{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Tx:         m,
		Screenings: memScreenings{m},
		Seats:      memSeats{m},
		Halls:      memHalls{m},
		Bookings:   memBookings{m},
	}
}

func (m *memStore) addHall(id uint64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halls[id] = model.Hall{ID: id, Name: name}
}

func (m *memStore) addSeat(id, hallID uint64, row string, num uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[id] = model.Seat{ID: id, HallID: hallID, RowLabel: row, SeatNumber: num, SeatType: "STANDARD"}
}

func (m *memStore) addScreening(s model.Screening) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = model.ScreeningUpcoming
	}
	m.screenings[s.ID] = s
}

func (m *memStore) screening(id uint64) model.Screening {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screenings[id]
}

func (m *memStore) setPrice(id uint64, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.screenings[id]
	s.Price = price
	m.screenings[id] = s
}

func (m *memStore) booking(id uint64) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

// activeSeats returns, per screening, how often each seat appears across
// live bookings.
func (m *memStore) activeSeats(screeningID uint64) map[uint64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[uint64]int{}
	for _, b := range m.bookings {
		if b.ScreeningID != screeningID || b.Status == model.BookingCancelled {
			continue
		}
		for _, id := range b.SeatIDs {
			counts[id]++
		}
	}
	return counts
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapBookings := make(map[uint64]model.Booking, len(m.bookings))
	for k, v := range m.bookings {
		snapBookings[k] = v
	}
	snapRows := append([]model.BookingSeat(nil), m.seatRows...)
	snapScreenings := make(map[uint64]model.Screening, len(m.screenings))
	for k, v := range m.screenings {
		snapScreenings[k] = v
	}
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.bookings, m.seatRows, m.screenings = snapBookings, snapRows, snapScreenings
		m.mu.Unlock()
		return err
	}
	return nil
}

type memScreenings struct{ m *memStore }

func (r memScreenings) GetByID(_ context.Context, id uint64) (*model.Screening, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.screenings[id]
	if !ok {
		return nil, repository.ErrScreeningNotFound
	}
	return &s, nil
}

func (r memScreenings) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Screening, error) {
	return r.GetByID(ctx, id)
}

func (r memScreenings) ListUpcoming(_ context.Context, startedBefore time.Time) ([]model.Screening, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.listErr != nil {
		return nil, r.m.listErr
	}
	var out []model.Screening
	for _, s := range r.m.screenings {
		if s.Status != model.ScreeningUpcoming {
			continue
		}
		if !startedBefore.IsZero() && s.StartsAt.After(startedBefore) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r memScreenings) MarkExpired(_ context.Context, ids []uint64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.markErr != nil {
		return 0, r.m.markErr
	}
	var n int64
	for _, id := range ids {
		s, ok := r.m.screenings[id]
		if !ok || s.Status != model.ScreeningUpcoming {
			continue
		}
		s.Status = model.ScreeningExpired
		r.m.screenings[id] = s
		n++
	}
	return n, nil
}

type memSeats struct{ m *memStore }

func (r memSeats) ListByHall(_ context.Context, hallID uint64) ([]model.Seat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Seat
	for _, s := range r.m.seats {
		if s.HallID == hallID {
			out = append(out, s)
		}
	}
	sortSeats(out)
	return out, nil
}

func (r memSeats) ListByIDs(_ context.Context, ids []uint64) ([]model.Seat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Seat
	for _, id := range ids {
		if s, ok := r.m.seats[id]; ok {
			out = append(out, s)
		}
	}
	sortSeats(out)
	return out, nil
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].RowLabel != seats[j].RowLabel {
			return seats[i].RowLabel < seats[j].RowLabel
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
}

type memHalls struct{ m *memStore }

func (r memHalls) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	h, ok := r.m.halls[id]
	if !ok {
		return nil, repository.ErrHallNotFound
	}
	return &h, nil
}

type memBookings struct{ m *memStore }

func (r memBookings) HeldSeatIDs(_ context.Context, screeningID uint64, candidates []uint64) ([]uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.skipHeld {
		return nil, nil
	}
	want := map[uint64]bool{}
	for _, id := range candidates {
		want[id] = true
	}
	var held []uint64
	for _, row := range r.m.seatRows {
		if row.ScreeningID != screeningID {
			continue
		}
		if r.m.bookings[row.BookingID].Status == model.BookingCancelled {
			continue
		}
		if len(candidates) > 0 && !want[row.SeatID] {
			continue
		}
		held = append(held, row.SeatID)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	return held, nil
}

func (r memBookings) Create(_ context.Context, b *model.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, row := range r.m.seatRows {
		if !row.Active || row.ScreeningID != b.ScreeningID {
			continue
		}
		for _, id := range b.SeatIDs {
			if row.SeatID == id {
				return repository.ErrDuplicateSeat
			}
		}
	}
	r.m.nextID++
	b.ID = r.m.nextID
	stored := *b
	stored.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	r.m.bookings[b.ID] = stored
	for _, id := range b.SeatIDs {
		r.m.seatRows = append(r.m.seatRows, model.BookingSeat{BookingID: b.ID, ScreeningID: b.ScreeningID, SeatID: id, Active: true})
	}
	return nil
}

func (r memBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	return &b, nil
}

func (r memBookings) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r memBookings) ClaimPayment(_ context.Context, id uint64, at, staleBefore time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	switch b.PaymentStatus {
	case model.PaymentPending, model.PaymentFailed:
	case model.PaymentProcessing:
		if !b.UpdatedAt.Before(staleBefore) {
			return false, nil
		}
	default:
		return false, nil
	}
	b.PaymentStatus = model.PaymentProcessing
	b.UpdatedAt = at
	r.m.bookings[id] = b
	return true, nil
}

func (r memBookings) ReleasePayment(_ context.Context, id uint64, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.PaymentStatus != model.PaymentProcessing {
		return nil
	}
	b.PaymentStatus = model.PaymentPending
	b.UpdatedAt = at
	r.m.bookings[id] = b
	return nil
}

func (r memBookings) MarkPaid(_ context.Context, id uint64, p model.Payment) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.Status != model.BookingPending || b.PaymentStatus == model.PaymentPaid {
		return false, nil
	}
	method, ref, at := p.Method, p.TransactionID, p.PaidAt
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentPaid
	b.PaymentMethod, b.TransactionID, b.PaidAt = &method, &ref, &at
	b.UpdatedAt = at
	r.m.bookings[id] = b
	return true, nil
}

func (r memBookings) MarkCancelled(_ context.Context, id uint64, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.Status == model.BookingCancelled {
		return false, nil
	}
	b.Status = model.BookingCancelled
	b.UpdatedAt = at
	r.m.bookings[id] = b
	for i := range r.m.seatRows {
		if r.m.seatRows[i].BookingID == id {
			r.m.seatRows[i].Active = false
		}
	}
	return true, nil
}

func (r memBookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (r memBookings) ListByScreening(_ context.Context, screeningID uint64) ([]model.Booking, error) {
	return r.list(func(b model.Booking) bool { return b.ScreeningID == screeningID }), nil
}

func (r memBookings) list(keep func(model.Booking) bool) []model.Booking {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Booking
	for _, b := range r.m.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
