package people

import (
	"context"
	"errors"
	"log"

	"github.com/zhouzirui/people/backend/internal/metrics"
	"github.com/zhouzirui/people/backend/internal/model/person"
)

// Service wraps a person.Store with metrics, logging and the live feed.
type Service struct {
	store   person.Store
	hub     *Hub
	metrics *metrics.Metrics
}

// NewService builds a Service. hub and m may be nil.
func NewService(store person.Store, hub *Hub, m *metrics.Metrics) *Service {
	if hub != nil && m != nil {
		hub.OnDrop = m.EventsDropped.Inc
		hub.OnSubscribersChanged = func(n int) { m.EventSubscribers.Set(float64(n)) }
	}
	return &Service{store: store, hub: hub, metrics: m}
}

// Create stores a new person and announces it to subscribers.
func (s *Service) Create(ctx context.Context, name string) (person.Person, error) {
	p, err := s.store.Create(ctx, name)
	if err != nil {
		return person.Person{}, err
	}

	log.Printf("[people] created person id=%d name=%q", p.ID, p.Name)
	if s.metrics != nil {
		s.metrics.PeopleCreated.Inc()
	}
	if s.hub != nil {
		s.hub.Publish(newCreatedEvent(p))
	}
	return p, nil
}

// List returns every stored person.
func (s *Service) List(ctx context.Context) ([]person.Person, error) {
	return s.store.List(ctx)
}

// Get returns the person with the given id or person.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (person.Person, error) {
	p, err := s.store.FindByID(ctx, id)
	if errors.Is(err, person.ErrNotFound) && s.metrics != nil {
		s.metrics.LookupMisses.Inc()
	}
	return p, err
}

// Subscribe streams created-person events until ctx is done. Without a hub the
// channel is closed when ctx ends and never carries events.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	if s.hub != nil {
		return s.hub.Subscribe(ctx)
	}
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
