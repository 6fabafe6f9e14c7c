package model

// TemplateFlight is a recurring route definition.  DepTime and ArrTime are
// times of day in HH:MM form; dated instances are Flights.
type TemplateFlight struct {
	ID          int64  `db:"id" json:"id"`
	Origin      string `db:"origin" json:"origin"`
	Destination string `db:"destination" json:"destination"`
	DepTime     string `db:"dep_time" json:"dep_time"`
	ArrTime     string `db:"arr_time" json:"arr_time"`
}
