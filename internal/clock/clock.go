// Package clock provides the single time reference used by booking,
// cancellation and screening expiry checks.  All business logic asks a
// Clock for "now" instead of calling time.Now directly so tests can pin
// the instant.
package clock

import (
	"strconv"
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock and reports it in a fixed civil zone.  The
// zone has no DST so every component sees the same offset all year.
type System struct {
	loc *time.Location
}

// NewSystem returns a System clock pinned to UTC+offsetHours.
func NewSystem(offsetHours int) System {
	return System{loc: Zone(offsetHours)}
}

// Now returns the current instant in the configured zone.
func (s System) Now() time.Time {
	if s.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.loc)
}

// Zone builds the fixed-offset location used for presentation, e.g. "UTC+7".
func Zone(offsetHours int) *time.Location {
	if offsetHours == 0 {
		return time.UTC
	}
	name := "UTC"
	if offsetHours > 0 {
		name += "+"
	}
	name += strconv.Itoa(offsetHours)
	return time.FixedZone(name, offsetHours*3600)
}

// Fixed is a manually driven clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a Fixed clock set to t.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
