package people

import (
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/people/backend/internal/model/person"
)

// EventPersonCreated is the only event type published today.
const EventPersonCreated = "person.created"

// Event is pushed to live feed subscribers.
type Event struct {
	ID     string        `json:"id"`
	Type   string        `json:"type"`
	Person person.Person `json:"person"`
	Time   time.Time     `json:"time"`
}

func newCreatedEvent(p person.Person) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   EventPersonCreated,
		Person: p,
		Time:   time.Now().UTC(),
	}
}
