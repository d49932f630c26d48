package service

import (
	"context"
	"sort"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// AvailabilityChecker answers which seats of a screening are held by a
// booking that is not cancelled.  It has no side effects; when ctx carries
// a transaction the read joins it.
type AvailabilityChecker struct {
	bookings BookingStore
}

// NewAvailabilityChecker returns an AvailabilityChecker over bookings.
func NewAvailabilityChecker(bookings BookingStore) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// FindConflicts returns the subset of seatIDs already held for the
// screening, in ascending order.  An empty result means every seat is free.
func (a *AvailabilityChecker) FindConflicts(ctx context.Context, screeningID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	held, err := a.bookings.HeldSeatIDs(ctx, screeningID, seatIDs)
	if err != nil {
		return nil, err
	}
	requested := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		requested[id] = struct{}{}
	}
	conflicts := make([]uint64, 0, len(held))
	seen := make(map[uint64]struct{}, len(held))
	for _, id := range held {
		if _, ok := requested[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conflicts = append(conflicts, id)
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i] < conflicts[j] })
	return conflicts, nil
}

// Held returns every held seat of the screening as a set.
func (a *AvailabilityChecker) Held(ctx context.Context, screeningID uint64) (map[uint64]bool, error) {
	ids, err := a.bookings.HeldSeatIDs(ctx, screeningID, nil)
	if err != nil {
		return nil, err
	}
	held := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}

// buildSeatMap groups seats by row label, keeping the order the seats
// were listed in (row label, then seat number).
func buildSeatMap(screening *model.Screening, seats []model.Seat, held map[uint64]bool) *SeatMap {
	m := &SeatMap{ScreeningID: screening.ID, HallID: screening.HallID, Rows: []SeatRow{}}
	rowIndex := make(map[string]int)
	for _, s := range seats {
		i, ok := rowIndex[s.RowLabel]
		if !ok {
			i = len(m.Rows)
			rowIndex[s.RowLabel] = i
			m.Rows = append(m.Rows, SeatRow{RowLabel: s.RowLabel})
		}
		booked := held[s.ID]
		m.Rows[i].Seats = append(m.Rows[i].Seats, SeatState{
			SeatID:     s.ID,
			SeatNumber: s.SeatNumber,
			SeatType:   s.SeatType,
			Label:      s.Label(),
			IsBooked:   booked,
		})
		m.Total++
		if booked {
			m.Booked++
		}
	}
	m.Available = m.Total - m.Booked
	return m
}
