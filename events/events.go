// Package events provides the in-process publish/subscribe bus used to
// decouple the redemption flow from consumers like the notifier.
package events

import (
	"context"
	"slices"
	"sync"

	"github.com/myxmaster/zeus/logger"
)

type Event struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

type EventSubscriber interface {
	ConsumeEvent(ctx context.Context, event *Event) error
}

type EventPublisher interface {
	RegisterSubscriber(subscriber EventSubscriber)
	RemoveSubscriber(subscriber EventSubscriber)
	Publish(event *Event)
	PublishSync(event *Event)
}

type eventPublisher struct {
	listeners []EventSubscriber
	mu        sync.RWMutex
}

func NewEventPublisher() *eventPublisher {
	return &eventPublisher{
		listeners: []EventSubscriber{},
	}
}

func (ep *eventPublisher) RegisterSubscriber(subscriber EventSubscriber) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.listeners = append(ep.listeners, subscriber)
}

func (ep *eventPublisher) RemoveSubscriber(subscriber EventSubscriber) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.listeners = slices.DeleteFunc(ep.listeners, func(s EventSubscriber) bool {
		return s == subscriber
	})
}

func (ep *eventPublisher) Publish(event *Event) {
	ep.mu.RLock()
	listeners := slices.Clone(ep.listeners)
	ep.mu.RUnlock()

	logger.Logger.Debug().Str("event", event.Event).Msg("Publishing event")
	for _, listener := range listeners {
		go func(listener EventSubscriber) {
			err := listener.ConsumeEvent(context.Background(), event)
			if err != nil {
				logger.Logger.Error().Err(err).Str("event", event.Event).Msg("Failed to consume event")
			}
		}(listener)
	}
}

func (ep *eventPublisher) PublishSync(event *Event) {
	ep.mu.RLock()
	listeners := slices.Clone(ep.listeners)
	ep.mu.RUnlock()

	logger.Logger.Debug().Str("event", event.Event).Msg("Publishing event synchronously")
	for _, listener := range listeners {
		err := listener.ConsumeEvent(context.Background(), event)
		if err != nil {
			logger.Logger.Error().Err(err).Str("event", event.Event).Msg("Failed to consume event")
		}
	}
}
