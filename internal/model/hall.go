package model

// Hall is the screening room seats belong to.  CinemaID and CinemaName
// are nil when the hall has not been assigned to a cinema.
type Hall struct {
    ID         uint64  // halls.id
    Name       string  // halls.name
    CinemaID   *uint64 // halls.cinema_id (nullable)
    CinemaName *string // cinemas.name (nullable)
}
