package apitest

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// FakeEvent returns a valid input with random text and a future date
// truncated to whole seconds in time.Local, so it survives the wire layout.
func FakeEvent(f *gofakeit.Faker, capacity int) model.EventInput {
	return model.EventInput{
		Title:       f.LoremIpsumSentence(4),
		Date:        model.DateTime{Time: f.FutureDate().In(time.Local).Truncate(time.Second)},
		Location:    f.City(),
		Description: f.LoremIpsumSentence(15),
		Capacity:    capacity,
	}
}

// SeedFake inserts n fake events of the given capacity.
func (s *Server) SeedFake(f *gofakeit.Faker, n, capacity int) []model.Event {
	out := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Seed(FakeEvent(f, capacity)))
	}
	return out
}
