package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ScreeningRepo reads screenings and performs the upcoming -> expired
// transition.  Every method joins the caller's transaction when ctx
// carries one.
type ScreeningRepo struct {
    db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo {
    return &ScreeningRepo{db: db}
}

const screeningColumns = `s.id, s.movie_id, m.title, s.hall_id, s.starts_at, s.ends_at, s.price, s.status`

const screeningFrom = ` FROM screenings s JOIN movies m ON m.id = s.movie_id`

func scanScreening(row interface{ Scan(...any) error }) (*model.Screening, error) {
    var s model.Screening
    var status string
    if err := row.Scan(&s.ID, &s.MovieID, &s.MovieTitle, &s.HallID, &s.StartsAt, &s.EndsAt, &s.Price, &status); err != nil {
        return nil, err
    }
    s.Status = model.ScreeningStatus(status)
    s.StartsAt = s.StartsAt.UTC()
    s.EndsAt = s.EndsAt.UTC()
    return &s, nil
}

// GetByID retrieves a screening by its ID.  It returns
// ErrScreeningNotFound if there is no matching row.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
    const q = `SELECT ` + screeningColumns + screeningFrom + ` WHERE s.id = ?`
    s, err := scanScreening(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrScreeningNotFound
    }
    return s, err
}

// GetByIDForUpdate is GetByID with an exclusive row lock.  It must run
// inside WithTx; all bookings for one screening serialize on this lock.
func (r *ScreeningRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Screening, error) {
    const q = `SELECT ` + screeningColumns + screeningFrom + ` WHERE s.id = ? FOR UPDATE`
    s, err := scanScreening(conn(ctx, r.db).QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrScreeningNotFound
    }
    return s, err
}

// ListUpcoming returns every screening still marked upcoming whose start
// is at or before the given instant.  Passing a zero time lists all of
// them.
func (r *ScreeningRepo) ListUpcoming(ctx context.Context, startedBefore time.Time) ([]model.Screening, error) {
    q := `SELECT ` + screeningColumns + screeningFrom + ` WHERE s.status = 'upcoming'`
    var args []any
    if !startedBefore.IsZero() {
        q += ` AND s.starts_at <= ?`
        args = append(args, startedBefore.UTC())
    }
    q += ` ORDER BY s.starts_at ASC`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Screening
    for rows.Next() {
        s, err := scanScreening(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// MarkExpired flips the given screenings from upcoming to expired in a
// single statement and returns the number of rows changed.  Screenings
// already expired are left alone, so the call is idempotent.
func (r *ScreeningRepo) MarkExpired(ctx context.Context, ids []uint64) (int64, error) {
    if len(ids) == 0 {
        return 0, nil
    }
    in, args := placeholders(ids)
    q := `UPDATE screenings SET status = 'expired' WHERE status = 'upcoming' AND id IN (` + in + `)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
