package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
	"github.com/granada-sport/server/internal/repository"
)

// memStore mimics the MySQL repositories closely enough for policy tests:
// unique emails, owner-scoped updates and the participation upsert.
type memStore struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	events map[uint64]model.Event
	parts  map[[2]uint64]model.Participation
	nextID uint64
	fail   error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[uint64]model.User{},
		events: map[uint64]model.Event{},
		parts:  map[[2]uint64]model.Participation{},
	}
}

func (s *memStore) id() uint64 { s.nextID++; return s.nextID }

func (s *memStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, x := range s.users {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = s.id()
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.User{}, s.fail
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) UpdateProfile(_ context.Context, id uint64, p model.Profile, now time.Time) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	for _, x := range s.users {
		if x.ID != id && x.Email == p.Email {
			return model.User{}, repository.ErrDuplicate
		}
	}
	u.Email, u.Name, u.LastName, u.SecondLastName = p.Email, p.Name, p.LastName, p.SecondLastName
	u.UpdatedAt = now
	s.users[id] = u
	return u, nil
}

func (s *memStore) UpdatePassword(_ context.Context, id uint64, hash string, now time.Time) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, now
	s.users[id] = u
	return u, nil
}

func (s *memStore) Deactivate(_ context.Context, id uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active, u.UpdatedAt = false, now
	s.users[id] = u
	return nil
}

// memEvents exposes the event half of memStore under the EventStore names.
type memEvents struct{ *memStore }

func (s memEvents) Create(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	e.ID = s.id()
	s.events[e.ID] = *e
	return nil
}

func (s memEvents) GetOwned(_ context.Context, id, organizerID uint64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.Event{}, s.fail
	}
	e, ok := s.events[id]
	if !ok || e.OrganizerID != organizerID || !e.Active {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s memEvents) GetUpcoming(_ context.Context, id uint64, now time.Time) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.Event{}, s.fail
	}
	e, ok := s.events[id]
	if !ok || !upcoming(e, now) {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s memEvents) ListUpcoming(_ context.Context, sport string, now time.Time, skip, limit int) ([]model.Event, error) {
	return s.filter(skip, limit, func(e model.Event) bool {
		return upcoming(e, now) && (sport == "" || e.Sport == sport)
	})
}

func (s memEvents) ListByOrganizer(_ context.Context, organizerID uint64, skip, limit int) ([]model.Event, error) {
	return s.filter(skip, limit, func(e model.Event) bool {
		return e.Active && e.OrganizerID == organizerID
	})
}

func (s memEvents) filter(skip, limit int, keep func(model.Event) bool) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := []model.Event{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip >= len(out) {
		return []model.Event{}, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memEvents) UpdateOwned(_ context.Context, id, organizerID uint64, d model.EventDetails, now time.Time) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.OrganizerID != organizerID || !e.Active {
		return model.Event{}, repository.ErrNotFound
	}
	e.Description, e.Date, e.Location, e.Sport, e.UpdatedAt = d.Description, d.Date, d.Location, d.Sport, now
	s.events[id] = e
	return e, nil
}

func (s memEvents) DeactivateOwned(_ context.Context, id, organizerID uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.OrganizerID != organizerID || !e.Active {
		return repository.ErrNotFound
	}
	e.Active, e.UpdatedAt = false, now
	s.events[id] = e
	return nil
}

// memParts exposes the participation half of memStore.
type memParts struct{ *memStore }

func (s memParts) Join(_ context.Context, eventID, userID uint64, now time.Time) (model.JoinOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	key := [2]uint64{eventID, userID}
	p, ok := s.parts[key]
	switch {
	case !ok:
		s.parts[key] = model.Participation{EventID: eventID, UserID: userID, Active: true, CreatedAt: now, UpdatedAt: now}
		return model.Joined, nil
	case p.Active:
		return model.AlreadyJoined, nil
	default:
		p.Active, p.UpdatedAt = true, now
		s.parts[key] = p
		return model.Rejoined, nil
	}
}

func (s memParts) Leave(_ context.Context, eventID, userID uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	key := [2]uint64{eventID, userID}
	p, ok := s.parts[key]
	if !ok || !p.Active {
		return repository.ErrNotFound
	}
	p.Active, p.UpdatedAt = false, now
	s.parts[key] = p
	return nil
}

func (s memParts) ListActiveUserIDs(_ context.Context, eventID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []uint64{}
	for k, p := range s.parts {
		if k[0] == eventID && p.Active {
			ids = append(ids, k[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) rows(eventID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.parts {
		if k[0] == eventID {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
	err    error
}

func (r *recorder) Record(_ context.Context, ev queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateListings(context.Context) error {
	c.calls++
	return nil
}

var errStorage = errors.New("connection reset")

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func upcoming(e model.Event, now time.Time) bool {
	return e.Active && !e.Date.Before(now)
}
