package model

// Reservation binds one user to one flight.  Reference is the human-facing
// business key; ReservedOn is the UTC calendar date the booking was made.
type Reservation struct {
	ID         int64  `db:"id" json:"id"`                   // reservations.id
	Reference  string `db:"reference" json:"reference"`     // reservations.reference (unique)
	ReservedOn string `db:"reserved_on" json:"reserved_on"` // reservations.reserved_on (YYYY-MM-DD)
	UserID     int64  `db:"user_id" json:"user_id"`         // reservations.user_id
	FlightID   int64  `db:"flight_id" json:"flight_id"`     // reservations.flight_id
}
