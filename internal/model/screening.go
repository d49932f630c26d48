package model

import "time"

// ScreeningStatus is the lifecycle state of a screening.  Only the
// upcoming -> expired transition is owned by this service.
type ScreeningStatus string

const (
    ScreeningUpcoming ScreeningStatus = "upcoming"
    ScreeningExpired  ScreeningStatus = "expired"
)

// Screening represents a scheduled showing of a movie in a particular
// hall.  Rows are created by the catalog service; the booking service
// only reads them and flips Status to expired.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being shown.
//  MovieTitle – denormalised title for receipts.
//  HallID     – hall where the screening takes place.
//  StartsAt   – when the screening begins (UTC in the database).
//  EndsAt     – when the screening ends.
//  Price      – price of one seat in the smallest currency unit.
//  Status     – upcoming or expired.
type Screening struct {
    ID         uint64          // screenings.id
    MovieID    uint64          // screenings.movie_id
    MovieTitle string          // movies.title
    HallID     uint64          // screenings.hall_id
    StartsAt   time.Time       // screenings.starts_at
    EndsAt     time.Time       // screenings.ends_at
    Price      int64           // screenings.price
    Status     ScreeningStatus // screenings.status
}
