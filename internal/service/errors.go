package service

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidRequest
	KindConflict
	KindUnbookable
	KindPaymentDeclined
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindUnbookable:
		return "unbookable"
	case KindPaymentDeclined:
		return "payment_declined"
	default:
		return "internal"
	}
}

// Error codes returned to clients.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeScreeningNotFound = "SCREENING_NOT_FOUND"
	CodeBookingNotFound   = "BOOKING_NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeNotBookable       = "SCREENING_NOT_BOOKABLE"
	CodeAlreadyStarted    = "SCREENING_ALREADY_STARTED"
	CodeSeatNotInHall     = "SEAT_NOT_IN_HALL"
	CodeSeatConflict      = "SEAT_CONFLICT"
	CodeAlreadyPaid       = "ALREADY_PAID"
	CodeAlreadyCancelled  = "ALREADY_CANCELLED"
	CodeBookingCancelled  = "BOOKING_CANCELLED"
	CodeAmountMismatch    = "AMOUNT_MISMATCH"
	CodePaymentDeclined   = "PAYMENT_DECLINED"
	CodePaymentInProgress = "PAYMENT_IN_PROGRESS"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is the error type returned by every service operation.  Business
// outcomes carry a Kind other than KindInternal and a stable Code; SeatIDs
// lists the offending seats for seat related failures.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	SeatIDs []uint64
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, CodeInternal for foreign errors.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func invalid(msg string) *Error { return newError(KindInvalidRequest, CodeInvalidRequest, msg) }

func forbidden() *Error {
	return newError(KindForbidden, CodeForbidden, "booking belongs to another user")
}

func bookingNotFound() *Error {
	return newError(KindNotFound, CodeBookingNotFound, "booking not found")
}

func screeningNotFound() *Error {
	return newError(KindNotFound, CodeScreeningNotFound, "screening not found")
}

func seatConflict(ids []uint64) *Error {
	e := newError(KindConflict, CodeSeatConflict, "seats already booked")
	e.SeatIDs = ids
	return e
}
