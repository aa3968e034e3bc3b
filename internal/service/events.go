package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
	"github.com/granada-sport/server/internal/repository"
)

// EventStore is the persistence needed by EventCatalog and
// ParticipationLedger.  It is satisfied by *repository.EventRepo.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetOwned(ctx context.Context, id, organizerID uint64) (model.Event, error)
	GetUpcoming(ctx context.Context, id uint64, now time.Time) (model.Event, error)
	ListUpcoming(ctx context.Context, sport string, now time.Time, skip, limit int) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uint64, skip, limit int) ([]model.Event, error)
	UpdateOwned(ctx context.Context, id, organizerID uint64, d model.EventDetails, now time.Time) (model.Event, error)
	DeactivateOwned(ctx context.Context, id, organizerID uint64, now time.Time) error
}

// ListFilter narrows the public listing.  An empty Sport matches all.
type ListFilter struct {
	Sport string
	Page
}

// EventCatalog applies the ownership rules for events.  Not found, not
// owner and already deleted are reported alike as ErrNotFound.
type EventCatalog struct {
	events      EventStore
	activity    ActivityRecorder
	invalidator ListingInvalidator
	logger      zerolog.Logger
	now         Clock
}

// NewEventCatalog wires a catalog over events.  activity and invalidator
// may be nil.
func NewEventCatalog(events EventStore, activity ActivityRecorder, invalidator ListingInvalidator, logger zerolog.Logger) *EventCatalog {
	if activity == nil {
		activity = nopActivity{}
	}
	if invalidator == nil {
		invalidator = nopInvalidator{}
	}
	return &EventCatalog{
		events:      events,
		activity:    activity,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "event-catalog").Logger(),
		now:         systemClock,
	}
}

// WithClock replaces the time source, for tests.
func (c *EventCatalog) WithClock(now Clock) *EventCatalog {
	c.now = now
	return c
}

// Create stores a new active event organized by organizerID.
func (c *EventCatalog) Create(ctx context.Context, organizerID uint64, in model.EventDetails) (model.Event, error) {
	now := c.now()
	e := model.Event{
		OrganizerID: organizerID,
		Description: in.Description,
		Date:        in.Date.UTC(),
		Location:    in.Location,
		Sport:       lower(in.Sport),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.events.Create(ctx, &e); err != nil {
		return model.Event{}, c.mapErr(err, "create event")
	}
	c.changed(ctx, queue.NewActivity(queue.KindEventCreated, organizerID, e.ID, e.Sport, now))
	return e, nil
}

// List returns active events that have not started yet, ordered by id.
func (c *EventCatalog) List(ctx context.Context, f ListFilter) ([]model.Event, error) {
	p := f.Page.normalize()
	out, err := c.events.ListUpcoming(ctx, lower(f.Sport), c.now(), p.Skip, p.Limit)
	if err != nil {
		return nil, c.mapErr(err, "list events")
	}
	return out, nil
}

// ListByOrganizer returns every active event of organizerID, past ones
// included.
func (c *EventCatalog) ListByOrganizer(ctx context.Context, organizerID uint64, page Page) ([]model.Event, error) {
	p := page.normalize()
	out, err := c.events.ListByOrganizer(ctx, organizerID, p.Skip, p.Limit)
	if err != nil {
		return nil, c.mapErr(err, "list organizer events")
	}
	return out, nil
}

// Get returns an event only to its organizer.
func (c *EventCatalog) Get(ctx context.Context, eventID, requesterID uint64) (model.Event, error) {
	e, err := c.events.GetOwned(ctx, eventID, requesterID)
	if err != nil {
		return model.Event{}, c.mapErr(err, "get event")
	}
	return e, nil
}

// Update overwrites the four editable fields of an owned active event.
func (c *EventCatalog) Update(ctx context.Context, eventID, organizerID uint64, in model.EventDetails) (model.Event, error) {
	in.Date = in.Date.UTC()
	in.Sport = lower(in.Sport)
	now := c.now()
	e, err := c.events.UpdateOwned(ctx, eventID, organizerID, in, now)
	if err != nil {
		return model.Event{}, c.mapErr(err, "update event")
	}
	c.changed(ctx, queue.NewActivity(queue.KindEventUpdated, organizerID, eventID, "", now))
	return e, nil
}

// Delete soft-deletes an owned active event.
func (c *EventCatalog) Delete(ctx context.Context, eventID, organizerID uint64) error {
	now := c.now()
	if err := c.events.DeactivateOwned(ctx, eventID, organizerID, now); err != nil {
		return c.mapErr(err, "delete event")
	}
	c.changed(ctx, queue.NewActivity(queue.KindEventDeleted, organizerID, eventID, "", now))
	return nil
}

func (c *EventCatalog) changed(ctx context.Context, ev queue.ActivityEvent) {
	if err := c.invalidator.InvalidateListings(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("listing cache not invalidated")
	}
	if err := c.activity.Record(ctx, ev); err != nil {
		c.logger.Warn().Err(err).Str("kind", ev.Kind).Str("event_id", strconv.FormatUint(ev.EventID, 10)).Msg("activity not recorded")
	}
}

func (c *EventCatalog) mapErr(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	c.logger.Error().Err(err).Str("op", op).Msg("storage failure")
	return fmt.Errorf("%s: %w", op, err)
}
