package apitest

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// maxCapacity mirrors the upper bound enforced by the production backend.
const maxCapacity = 100_000

// eventService validates requests and delegates to the store.
type eventService struct {
	store *Store
}

func (s *eventService) normalize(in model.EventInput) (model.EventInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return in, err
	}
	if in.Capacity > maxCapacity {
		return in, fmt.Errorf("capacity cannot exceed %d", maxCapacity)
	}
	return in, nil
}

func (s *eventService) create(in model.EventInput) (model.Event, error) {
	in, err := s.normalize(in)
	if err != nil {
		return model.Event{}, err
	}
	return s.store.Create(in), nil
}

func (s *eventService) update(id model.ID, in model.EventInput) (model.Event, error) {
	in, err := s.normalize(in)
	if err != nil {
		return model.Event{}, err
	}
	return s.store.Update(id, in)
}

func viewerKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *eventService) subscribe(id model.ID, viewer string) error {
	return s.store.Subscribe(id, viewerKey(viewer))
}

func (s *eventService) unsubscribe(id model.ID, viewer string) error {
	return s.store.Unsubscribe(id, viewerKey(viewer))
}

func (s *eventService) isSubscribed(id model.ID, viewer string) (bool, error) {
	return s.store.IsSubscribed(id, viewerKey(viewer))
}
