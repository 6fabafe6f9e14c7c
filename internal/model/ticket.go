package model

// Passenger holds the traveler details carried by a ticket.  These are the
// only ticket fields a caller may change after issue.
type Passenger struct {
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Gender    string `db:"gender" json:"gender"`
	Age       int    `db:"age" json:"age"`
}

// Ticket is one passenger's seat under a reservation.  Seat is the decimal
// label of the allocation position on the flight (1-based).  FlightID is
// copied from the reservation so seat labels can be kept unique per flight.
type Ticket struct {
	ID int64 `db:"id" json:"id"`
	Passenger
	Seat          string `db:"seat" json:"seat"`
	ReservationID int64  `db:"reservation_id" json:"reservation_id"`
	FlightID      int64  `db:"flight_id" json:"flight_id"`
}
