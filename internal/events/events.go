// Package events publishes contact domain events to in-process subscribers
// and to kafka.
package events

import (
	"context"
	"errors"
	"time"

	"contactbook/backend/internal/models"

	"github.com/google/uuid"
)

type Type string

const (
	ContactRequested Type = "contact.requested"
	ContactAccepted  Type = "contact.accepted"
)

// Event describes a change to one directed connection.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	RequesterID uint      `json:"requester_id"`
	TargetID    uint      `json:"target_id"`
	Accepted    bool      `json:"accepted"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// New builds an event for conn with a fresh id.
func New(t Type, conn models.Connection) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		RequesterID: conn.RequesterID,
		TargetID:    conn.TargetID,
		Accepted:    conn.Accepted,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher delivers events somewhere outside the write that produced them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
