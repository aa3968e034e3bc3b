package model

import "time"

// Event is a sport gathering organized by a single user.  Only the
// organizer may change or delete it.  Deleting clears Active.
type Event struct {
	ID          uint64    // events.id
	OrganizerID uint64    // events.organizer_id (references users.id)
	Description string    // events.description
	Date        time.Time // events.starts_at (UTC)
	Location    string    // events.location
	Sport       string    // events.sport, stored lowercase
	Active      bool      // events.active
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// EventDetails holds the organizer-editable fields of an event.
type EventDetails struct {
	Description string
	Date        time.Time
	Location    string
	Sport       string
}
