package apitest

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadySubscribed is returned when the same viewer subscribes twice.
var ErrAlreadySubscribed = errors.New("viewer already subscribed to this event")

// ErrNotSubscribed is returned when unsubscribing a viewer who is not subscribed.
var ErrNotSubscribed = errors.New("viewer is not subscribed to this event")

// ErrCapacityBelowSubscribed is returned when an update would shrink
// capacity under the current subscription count.
var ErrCapacityBelowSubscribed = errors.New("capacity cannot be lower than the number of subscribers")

// Store keeps events and subscriptions in memory.
//
// Subscribe reads the counter and writes it back under one lock, the
// in-memory equivalent of SELECT ... FOR UPDATE, so concurrent subscribers
// can never overbook an event.
type Store struct {
	mu     sync.Mutex
	seq    int
	uuids  bool
	events map[model.ID]*model.Event
	order  []model.ID
	subs   map[model.ID]map[string]bool // event -> viewer email
}

// NewStore returns an empty store. When uuids is true event ids are UUID
// strings, otherwise increasing integers.
func NewStore(uuids bool) *Store {
	return &Store{
		uuids:  uuids,
		events: make(map[model.ID]*model.Event),
		subs:   make(map[model.ID]map[string]bool),
	}
}

// Create inserts a new event and returns a copy with its generated id.
func (s *Store) Create(in model.EventInput) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := model.ID(strconv.Itoa(s.seq))
	if s.uuids {
		id = model.ID(uuid.NewString())
	}
	e := &model.Event{
		ID:          id,
		Title:       in.Title,
		Date:        in.Date,
		Location:    in.Location,
		Description: in.Description,
		Capacity:    in.Capacity,
	}
	s.events[id] = e
	s.order = append(s.order, id)
	s.subs[id] = make(map[string]bool)
	return *e
}

// List returns all events ordered by date, then insertion.
func (s *Store) List() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.events[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Get returns a single event or ErrNotFound.
func (s *Store) Get(id model.ID) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return *e, nil
}

// Update replaces the writable fields of an event.
func (s *Store) Update(id model.ID, in model.EventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	if in.Capacity < e.SubscribedCount {
		return model.Event{}, ErrCapacityBelowSubscribed
	}
	e.Title = in.Title
	e.Date = in.Date
	e.Location = in.Location
	e.Description = in.Description
	e.Capacity = in.Capacity
	return *e, nil
}

// Delete removes an event and its subscriptions.
func (s *Store) Delete(id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	delete(s.subs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Subscribe registers viewer for the event, guarding capacity and duplicates.
func (s *Store) Subscribe(id model.ID, viewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	if s.subs[id][viewer] {
		return ErrAlreadySubscribed
	}
	if e.SubscribedCount >= e.Capacity {
		return ErrEventFull
	}
	e.SubscribedCount++
	s.subs[id][viewer] = true
	return nil
}

// Unsubscribe removes viewer's subscription.
func (s *Store) Unsubscribe(id model.ID, viewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	if !s.subs[id][viewer] {
		return ErrNotSubscribed
	}
	delete(s.subs[id], viewer)
	e.SubscribedCount--
	return nil
}

// IsSubscribed reports whether viewer is subscribed to the event.
func (s *Store) IsSubscribed(id model.ID, viewer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return false, ErrNotFound
	}
	return s.subs[id][viewer], nil
}
