package model

import "strconv"

// Seat describes a physical seat in a hall.  Seats are uniquely
// identified by their hall, row label and seat number and are shared by
// every screening in that hall; availability is always evaluated
// against one screening.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  SeatType   – type of seat (STANDARD, VIP, COUPLE).
type Seat struct {
    ID         uint64 // seats.id
    HallID     uint64 // seats.hall_id
    RowLabel   string // seats.row_label
    SeatNumber uint32 // seats.seat_number
    SeatType   string // seats.seat_type
}

// Label renders the seat as "A7".
func (s Seat) Label() string {
    return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}
