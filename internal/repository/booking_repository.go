package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingRepo persists bookings and their booking_seats rows.  Bookings
// are never deleted; cancellation clears the active flag of the seat rows
// so the (screening_id, seat_id, active) unique index stops covering them.
// All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, screening_id, status, payment_status, total_amount,
                        payment_method, transaction_id, paid_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
    var b model.Booking
    var status, payStatus string
    var method, txID sql.NullString
    var paidAt sql.NullTime
    if err := row.Scan(
        &b.ID, &b.UserID, &b.ScreeningID, &status, &payStatus, &b.TotalAmount,
        &method, &txID, &paidAt, &b.CreatedAt, &b.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    b.Status = model.BookingStatus(status)
    b.PaymentStatus = model.PaymentStatus(payStatus)
    if method.Valid {
        m := method.String
        b.PaymentMethod = &m
    }
    if txID.Valid {
        ref := txID.String
        b.TransactionID = &ref
    }
    if paidAt.Valid {
        t := paidAt.Time.UTC()
        b.PaidAt = &t
    }
    b.CreatedAt = b.CreatedAt.UTC()
    b.UpdatedAt = b.UpdatedAt.UTC()
    return &b, nil
}

// HeldSeatIDs returns the seats of the screening that belong to a booking
// which is not cancelled.  When candidates is non-empty only those seat
// ids are checked; otherwise every held seat is returned.
func (r *BookingRepo) HeldSeatIDs(ctx context.Context, screeningID uint64, candidates []uint64) ([]uint64, error) {
    q := `SELECT bs.seat_id
          FROM booking_seats bs
          JOIN bookings b ON b.id = bs.booking_id
          WHERE bs.screening_id = ? AND b.status <> 'CANCELLED'`
    args := []any{screeningID}
    if len(candidates) > 0 {
        in, ids := placeholders(candidates)
        q += ` AND bs.seat_id IN (` + in + `)`
        args = append(args, ids...)
    }
    q += ` ORDER BY bs.seat_id`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var held []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        held = append(held, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return held, nil
}

// Create inserts a booking and one booking_seats row per seat.  It must run
// inside WithTx so both inserts commit together.  The generated ID is set
// on b.  When another live booking already holds one of the seats the
// unique index rejects the insert and ErrDuplicateSeat is returned.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    q := conn(ctx, r.db)
    const ins = `INSERT INTO bookings (user_id, screening_id, status, payment_status, total_amount, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := q.ExecContext(ctx, ins, b.UserID, b.ScreeningID, string(b.Status), string(b.PaymentStatus),
        b.TotalAmount, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if len(b.SeatIDs) == 0 {
        return nil
    }
    seatQ := `INSERT INTO booking_seats (booking_id, screening_id, seat_id, active) VALUES `
    args := make([]any, 0, len(b.SeatIDs)*3)
    for i, seatID := range b.SeatIDs {
        if i > 0 {
            seatQ += ","
        }
        seatQ += "(?, ?, ?, 1)"
        args = append(args, b.ID, b.ScreeningID, seatID)
    }
    if _, err := q.ExecContext(ctx, seatQ, args...); err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateSeat
        }
        return err
    }
    return nil
}

// GetByID loads a booking and its seat ids or returns ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// GetByIDForUpdate is GetByID holding an exclusive lock on the booking row
// until the surrounding transaction ends.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
    return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
}

func (r *BookingRepo) get(ctx context.Context, query string, id uint64) (*model.Booking, error) {
    b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, query, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    if err := r.attachSeats(ctx, []*model.Booking{b}); err != nil {
        return nil, err
    }
    return b, nil
}

// ClaimPayment moves a pending booking to PROCESSING so only one caller
// charges it at a time.  A PROCESSING claim older than staleBefore is
// taken over, which covers a process that died mid charge.  The boolean
// reports whether this caller now owns the claim.
func (r *BookingRepo) ClaimPayment(ctx context.Context, id uint64, at, staleBefore time.Time) (bool, error) {
    const q = `UPDATE bookings SET payment_status = 'PROCESSING', updated_at = ?
               WHERE id = ? AND status = 'PENDING'
                 AND (payment_status IN ('PENDING','FAILED')
                      OR (payment_status = 'PROCESSING' AND updated_at < ?))`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, at.UTC(), id, staleBefore.UTC())
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// ReleasePayment drops a PROCESSING claim back to PENDING after the
// processor declined or failed.
func (r *BookingRepo) ReleasePayment(ctx context.Context, id uint64, at time.Time) error {
    const q = `UPDATE bookings SET payment_status = 'PENDING', updated_at = ?
               WHERE id = ? AND payment_status = 'PROCESSING'`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, at.UTC(), id)
    return err
}

// MarkPaid confirms a pending booking.  The update only applies while the
// booking is PENDING and not yet PAID; the boolean reports whether a row
// changed so the caller can tell a lost race from success.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64, p model.Payment) (bool, error) {
    const q = `UPDATE bookings
               SET status = 'CONFIRMED', payment_status = 'PAID',
                   payment_method = ?, transaction_id = ?, paid_at = ?, updated_at = ?
               WHERE id = ? AND status = 'PENDING' AND payment_status <> 'PAID'`
    paidAt := p.PaidAt.UTC()
    res, err := conn(ctx, r.db).ExecContext(ctx, q, p.Method, p.TransactionID, paidAt, paidAt, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// MarkCancelled flips a live booking to CANCELLED and releases its seats.
// It returns false without touching anything when the booking is already
// cancelled.  Run it inside WithTx so both statements commit together.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id uint64, at time.Time) (bool, error) {
    q := conn(ctx, r.db)
    const upd = `UPDATE bookings SET status = 'CANCELLED', updated_at = ?
                 WHERE id = ? AND status <> 'CANCELLED'`
    res, err := q.ExecContext(ctx, upd, at.UTC(), id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil || n == 0 {
        return false, err
    }
    if _, err := q.ExecContext(ctx, `UPDATE booking_seats SET active = NULL WHERE booking_id = ?`, id); err != nil {
        return false, err
    }
    return true, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListByScreening returns every booking of a screening, newest first,
// cancelled ones included.
func (r *BookingRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Booking, error) {
    return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE screening_id = ? ORDER BY created_at DESC, id DESC`, screeningID)
}

func (r *BookingRepo) list(ctx context.Context, query string, arg uint64) ([]model.Booking, error) {
    rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ptrs []*model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        ptrs = append(ptrs, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := r.attachSeats(ctx, ptrs); err != nil {
        return nil, err
    }
    result := make([]model.Booking, 0, len(ptrs))
    for _, b := range ptrs {
        result = append(result, *b)
    }
    return result, nil
}

// attachSeats fills SeatIDs for the given bookings with a single query.
func (r *BookingRepo) attachSeats(ctx context.Context, bookings []*model.Booking) error {
    if len(bookings) == 0 {
        return nil
    }
    ids := make([]uint64, 0, len(bookings))
    index := make(map[uint64]*model.Booking, len(bookings))
    for _, b := range bookings {
        ids = append(ids, b.ID)
        index[b.ID] = b
        b.SeatIDs = []uint64{}
    }
    in, args := placeholders(ids)
    rows, err := conn(ctx, r.db).QueryContext(ctx,
        `SELECT booking_id, seat_id FROM booking_seats WHERE booking_id IN (`+in+`) ORDER BY booking_id, seat_id`, args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var bookingID, seatID uint64
        if err := rows.Scan(&bookingID, &seatID); err != nil {
            return err
        }
        if b, ok := index[bookingID]; ok {
            b.SeatIDs = append(b.SeatIDs, seatID)
        }
    }
    return rows.Err()
}
