package model

// User represents a traveler record as stored in the `users` table.  Each
// field corresponds to a column in the database.
//
// Fields:
//  ID           – primary key identifier of the user.
//  LastName     – family name.
//  FirstName    – given name.
//  PhoneNumber  – free-form contact number.
//  Email        – unique email address.
//  BirthDate    – calendar date in YYYY-MM-DD form.
//  Gender       – free-form gender label.
//  RegisteredAt – unix seconds at signup.
type User struct {
	ID           int64  `db:"id" json:"id"`                       // users.id
	LastName     string `db:"last_name" json:"last_name"`         // users.last_name
	FirstName    string `db:"first_name" json:"first_name"`       // users.first_name
	PhoneNumber  string `db:"phone_number" json:"phone_number"`   // users.phone_number
	Email        string `db:"email" json:"email"`                 // users.email
	BirthDate    string `db:"birth_date" json:"birth_date"`       // users.birth_date
	Gender       string `db:"gender" json:"gender"`               // users.gender
	RegisteredAt int64  `db:"registered_at" json:"registered_at"` // users.registered_at
}
