package repository // repository defines data access for seats

import (
    "context"      // context allows query cancellation and timeouts
    "database/sql" // sql provides DB primitives

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// SeatRepo provides read access to the seats of a hall.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

const seatColumns = `id, hall_id, row_label, seat_number, seat_type`

// ListByHall retrieves all seats of a hall ordered by row_label then seat_number.
func (r *SeatRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Seat, error) {
    const q = `SELECT ` + seatColumns + ` FROM seats WHERE hall_id = ? ORDER BY row_label, seat_number`
    return r.query(ctx, q, hallID)
}

// ListByIDs returns the seats with the given IDs in seat order.  IDs that
// do not exist are simply absent from the result.
func (r *SeatRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    in, args := placeholders(ids)
    q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + in + `) ORDER BY row_label, seat_number`
    return r.query(ctx, q, args...)
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var seats []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.HallID, &s.RowLabel, &s.SeatNumber, &s.SeatType); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}
