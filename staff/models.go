package staff

// User is one row of the users table.
type User struct {
	ID           int64   `db:"id"            json:"id"`
	FirstName    string  `db:"first_name"    json:"first_name"`
	LastName     string  `db:"last_name"     json:"last_name"`
	PhoneNumber  string  `db:"phone_number"  json:"phone_number,omitempty"`
	Email        string  `db:"email"         json:"email"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Balance      float64 `db:"balance"       json:"balance"`
	Username     string  `db:"username"      json:"username"`
}

// NewUser is the input of CreateUser. A nil Balance leaves the column default.
type NewUser struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Password    string
	Balance     *float64
	Username    string
}
