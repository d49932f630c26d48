package repository // repository holds data access logic for domain entities

import (
    "context"      // context is used to manage deadlines and cancellation
    "database/sql" // sql provides DB primitives
    "errors"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// HallRepo reads halls together with the name of their cinema.
type HallRepo struct {
    db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
    return &HallRepo{db: db}
}

// GetByID returns a hall by ID or ErrHallNotFound.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
    const q = `SELECT h.id, h.name, h.cinema_id, c.name
               FROM halls h
               LEFT JOIN cinemas c ON c.id = h.cinema_id
               WHERE h.id = ?`
    var h model.Hall
    var cinemaID sql.NullInt64
    var cinemaName sql.NullString
    err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &cinemaID, &cinemaName)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrHallNotFound
        }
        return nil, err
    }
    if cinemaID.Valid {
        cid := uint64(cinemaID.Int64)
        h.CinemaID = &cid
    }
    if cinemaName.Valid {
        name := cinemaName.String
        h.CinemaName = &name
    }
    return &h, nil
}
