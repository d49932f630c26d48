// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between "row missing", "unique index hit" and genuine
// infrastructure failures without parsing driver messages.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrScreeningNotFound is returned when a screening lookup yields no rows.
var ErrScreeningNotFound = errors.New("screening not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrHallNotFound is returned when a hall lookup yields no rows.
var ErrHallNotFound = errors.New("hall not found")

// ErrDuplicateSeat is returned when inserting booking_seats hits the
// (screening_id, seat_id, active) unique index, i.e. another live booking
// already holds one of the seats.
var ErrDuplicateSeat = errors.New("seat already held by an active booking")

const (
    mysqlDuplicateEntry   = 1062
    mysqlLockWaitTimeout  = 1205
    mysqlDeadlockDetected = 1213
)

// isDuplicateKey reports a MySQL duplicate entry error.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isRetryable reports errors after which the whole transaction can be
// replayed from the start: deadlock victims and lock wait timeouts.
func isRetryable(err error) bool {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return false
    }
    return me.Number == mysqlDeadlockDetected || me.Number == mysqlLockWaitTimeout
}
