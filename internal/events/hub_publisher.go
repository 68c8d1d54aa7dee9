package events

import (
	"context"
	"errors"

	"contactbook/backend/internal/hub"
)

// HubPublisher pushes events to the open streams of both users of the edge.
type HubPublisher struct {
	hub *hub.Hub
}

func NewHubPublisher(h *hub.Hub) *HubPublisher {
	return &HubPublisher{hub: h}
}

func (p *HubPublisher) Publish(_ context.Context, event Event) error {
	msg := hub.Event{Type: string(event.Type), Payload: event}

	_, errRequester := p.hub.Broadcast(event.RequesterID, msg)
	_, errTarget := p.hub.Broadcast(event.TargetID, msg)
	return errors.Join(errRequester, errTarget)
}
