// Package events publishes domain notifications about generated designs.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypeDesignGenerated is emitted after a design record is committed.
const TypeDesignGenerated = "design.generated"

// Event is the envelope written to every sink.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event with a random ID, marshalling payload as JSON.
func New(eventType, key string, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

// DesignGenerated is the payload of TypeDesignGenerated.
type DesignGenerated struct {
	DesignID    string  `json:"design_id"`
	SiteID      string  `json:"site_id,omitempty"`
	SiteName    string  `json:"site_name"`
	Zones       int     `json:"zones"`
	TotalPlants int     `json:"total_plants"`
	NativePct   float64 `json:"native_percentage"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in order.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (m *MemoryPublisher) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

// Close implements Publisher.
func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
