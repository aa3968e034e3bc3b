// Package queue defines the activity audit trail exchanged over RabbitMQ:
// the message payload, a publisher used by the services and a consumer
// that appends every message to a log file.
package queue

import "time"

// Activity kinds.
const (
	KindUserRegistered      = "user.registered"
	KindUserDeactivated     = "user.deactivated"
	KindEventCreated        = "event.created"
	KindEventUpdated        = "event.updated"
	KindEventDeleted        = "event.deleted"
	KindParticipationJoined = "participation.joined"
	KindParticipationLeft   = "participation.left"
)

// ActivityEvent is published after a successful mutation.  It carries
// enough context for the audit log without querying the primary database.
type ActivityEvent struct {
	Kind       string `json:"kind"`
	ActorID    uint64 `json:"actor_id"`
	EventID    uint64 `json:"event_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewActivity stamps an ActivityEvent with at.
func NewActivity(kind string, actorID, eventID uint64, detail string, at time.Time) ActivityEvent {
	return ActivityEvent{
		Kind:       kind,
		ActorID:    actorID,
		EventID:    eventID,
		Detail:     detail,
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
	}
}
