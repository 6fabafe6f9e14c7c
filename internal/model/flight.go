package model

import "regexp"

// Flight is one dated instance of a TemplateFlight.  TotalSeats is the
// fixed capacity; SeatsLeft is decremented once per issued ticket and is
// never restored.  Price is expressed in minor currency units.
type Flight struct {
	ID         int64  `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Gate       string `db:"gate" json:"gate"`
	Price      int64  `db:"price" json:"price"`
	DepDate    string `db:"dep_date" json:"dep_date"`
	ArrDate    string `db:"arr_date" json:"arr_date"`
	TotalSeats int    `db:"total_seats" json:"total_seats"`
	SeatsLeft  int    `db:"seats_left" json:"seats_left"`
	TemplateID int64  `db:"template_id" json:"template_id"`
}

// SeatInventory is the (total, left) pair governing how many further
// tickets may be issued for a flight.
type SeatInventory struct {
	FlightID   int64 `db:"id" json:"flight_id"`
	TotalSeats int   `db:"total_seats" json:"total_seats"`
	SeatsLeft  int   `db:"seats_left" json:"seats_left"`
}

// NextSeat returns the 1-based occupancy position of the next seat to fill.
func (s SeatInventory) NextSeat() int {
	return s.TotalSeats - s.SeatsLeft + 1
}

var gatePattern = regexp.MustCompile(`^GATE\d{2}$`)

// ValidGate reports whether g has the GATEnn form.
func ValidGate(g string) bool {
	return gatePattern.MatchString(g)
}
