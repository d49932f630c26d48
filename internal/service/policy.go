package service

import (
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// Caller identifies who is invoking an operation.
type Caller struct {
	UserID  uint64
	IsAdmin bool
}

// CanModify decides whether a caller may pay for, cancel or view a
// booking: admins may act on any booking, everyone else only on their own.
func CanModify(callerID uint64, isAdmin bool, b *model.Booking) bool {
	if b == nil {
		return false
	}
	if isAdmin {
		return true
	}
	return callerID != 0 && b.UserID == callerID
}

// IsExpired reports whether now is at or past start+grace.  The lifecycle
// sweep persists exactly this predicate.
func IsExpired(s *model.Screening, now time.Time, grace time.Duration) bool {
	return !now.Before(s.StartsAt.Add(grace))
}

// IsBookable reports whether new bookings are accepted for s.  A stored
// status of upcoming is not enough on its own since the sweep may not
// have run yet.
func IsBookable(s *model.Screening, now time.Time, grace time.Duration) bool {
	return s.Status == model.ScreeningUpcoming && !IsExpired(s, now, grace)
}

// HasStarted reports whether the screening start is at or before now.
// Cancellation is refused from that instant on.
func HasStarted(s *model.Screening, now time.Time) bool {
	return !now.Before(s.StartsAt)
}
