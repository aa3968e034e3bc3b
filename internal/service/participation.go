package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
	"github.com/granada-sport/server/internal/repository"
)

// ParticipationStore is the persistence needed by ParticipationLedger.  It
// is satisfied by *repository.ParticipationRepo.
type ParticipationStore interface {
	Join(ctx context.Context, eventID, userID uint64, now time.Time) (model.JoinOutcome, error)
	Leave(ctx context.Context, eventID, userID uint64, now time.Time) error
	ListActiveUserIDs(ctx context.Context, eventID uint64) ([]uint64, error)
}

// EventLookup is the subset of EventStore the ledger reads.
type EventLookup interface {
	GetOwned(ctx context.Context, id, organizerID uint64) (model.Event, error)
	GetUpcoming(ctx context.Context, id uint64, now time.Time) (model.Event, error)
}

// ParticipationLedger records who takes part in which event.  Joining and
// leaving are only possible while the event is active and upcoming.
type ParticipationLedger struct {
	events   EventLookup
	parts    ParticipationStore
	activity ActivityRecorder
	logger   zerolog.Logger
	now      Clock
}

func NewParticipationLedger(events EventLookup, parts ParticipationStore, activity ActivityRecorder, logger zerolog.Logger) *ParticipationLedger {
	if activity == nil {
		activity = nopActivity{}
	}
	return &ParticipationLedger{
		events:   events,
		parts:    parts,
		activity: activity,
		logger:   logger.With().Str("component", "participation-ledger").Logger(),
		now:      systemClock,
	}
}

// WithClock replaces the time source, for tests.
func (l *ParticipationLedger) WithClock(now Clock) *ParticipationLedger {
	l.now = now
	return l
}

// Join makes userID an active participant of eventID.  Joining an event one
// already takes part in is a no-op reported as AlreadyJoined.
func (l *ParticipationLedger) Join(ctx context.Context, eventID, userID uint64) (model.JoinOutcome, error) {
	now := l.now()
	if err := l.requireUpcoming(ctx, eventID, now); err != nil {
		return 0, err
	}
	outcome, err := l.parts.Join(ctx, eventID, userID, now)
	if err != nil {
		l.logger.Error().Err(err).Uint64("event_id", eventID).Uint64("user_id", userID).Msg("join failed")
		return 0, fmt.Errorf("join event: %w", err)
	}
	if outcome != model.AlreadyJoined {
		l.record(ctx, queue.NewActivity(queue.KindParticipationJoined, userID, eventID, outcome.String(), now))
	}
	return outcome, nil
}

// Leave ends the active participation of userID in eventID.
func (l *ParticipationLedger) Leave(ctx context.Context, eventID, userID uint64) error {
	now := l.now()
	if err := l.requireUpcoming(ctx, eventID, now); err != nil {
		return err
	}
	err := l.parts.Leave(ctx, eventID, userID, now)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotParticipating
	default:
		l.logger.Error().Err(err).Uint64("event_id", eventID).Uint64("user_id", userID).Msg("leave failed")
		return fmt.Errorf("leave event: %w", err)
	}
	l.record(ctx, queue.NewActivity(queue.KindParticipationLeft, userID, eventID, "", now))
	return nil
}

// ListParticipants returns the active participant ids of an event to its
// organizer.
func (l *ParticipationLedger) ListParticipants(ctx context.Context, eventID, organizerID uint64) ([]uint64, error) {
	if _, err := l.events.GetOwned(ctx, eventID, organizerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		l.logger.Error().Err(err).Uint64("event_id", eventID).Msg("lookup event failed")
		return nil, fmt.Errorf("get event: %w", err)
	}
	ids, err := l.parts.ListActiveUserIDs(ctx, eventID)
	if err != nil {
		l.logger.Error().Err(err).Uint64("event_id", eventID).Msg("list participants failed")
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return ids, nil
}

func (l *ParticipationLedger) requireUpcoming(ctx context.Context, eventID uint64, now time.Time) error {
	_, err := l.events.GetUpcoming(ctx, eventID, now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventUnavailable
	default:
		l.logger.Error().Err(err).Uint64("event_id", eventID).Msg("lookup event failed")
		return fmt.Errorf("get event: %w", err)
	}
}

func (l *ParticipationLedger) record(ctx context.Context, ev queue.ActivityEvent) {
	if err := l.activity.Record(ctx, ev); err != nil {
		l.logger.Warn().Err(err).Str("kind", ev.Kind).Msg("activity not recorded")
	}
}
