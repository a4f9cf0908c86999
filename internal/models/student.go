package models

import "time"

// Student is a roster entry. The roster is maintained by an external import
// workflow; this service only reads it.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Grade       string    `db:"grade" json:"grade"`
	Room        string    `db:"room" json:"room"`
	ParentEmail string    `db:"parent_email" json:"parent_email"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter scopes roster queries.
type StudentFilter struct {
	Grade  string
	Room   string
	Search string
}
