package model

import "time"

// User represents an account record as stored in the `users` table.
// Name fields are persisted lowercase.  Accounts are never physically
// removed: deleting an account clears Active.
//
// Fields:
//  ID            : primary key identifier of the user.
//  Email         : unique email address, compared case-sensitively.
//  Name          : first name.
//  LastName      : first last name.
//  SecondLastName: optional second last name (nil when not given).
//  PasswordHash  : bcrypt hashed password.
//  Active        : false once the account has been soft-deleted.
//  CreatedAt     : timestamp of creation.
//  UpdatedAt     : timestamp of last update.
type User struct {
	ID             uint64    // users.id
	Email          string    // users.email
	Name           string    // users.name
	LastName       string    // users.last_name
	SecondLastName *string   // users.second_last_name (nullable)
	PasswordHash   string    // users.password_hash
	Active         bool      // users.active
	CreatedAt      time.Time // users.created_at
	UpdatedAt      time.Time // users.updated_at
}

// Profile holds the editable identity fields of a user.  Updates always
// overwrite all four fields.
type Profile struct {
	Email          string
	Name           string
	LastName       string
	SecondLastName *string
}
