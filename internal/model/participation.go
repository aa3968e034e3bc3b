package model

import "time"

// Participation is the join relationship between a user and an event.
// There is at most one row per (EventID, UserID); leaving clears Active
// and joining again sets it back.
type Participation struct {
	EventID   uint64    // participations.event_id
	UserID    uint64    // participations.user_id
	Active    bool      // participations.active
	CreatedAt time.Time // participations.created_at
	UpdatedAt time.Time // participations.updated_at
}

// JoinOutcome describes what a join did to the participation row.
type JoinOutcome int

const (
	// Joined means a new participation row was created.
	Joined JoinOutcome = iota + 1
	// Rejoined means an inactive row was reactivated.
	Rejoined
	// AlreadyJoined means the row was already active; nothing changed.
	AlreadyJoined
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case Rejoined:
		return "rejoined"
	case AlreadyJoined:
		return "already_joined"
	}
	return "unknown"
}
