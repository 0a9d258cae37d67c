package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testSubscriber struct {
	mu     sync.Mutex
	events []*Event
}

func (subscriber *testSubscriber) ConsumeEvent(ctx context.Context, event *Event) error {
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	subscriber.events = append(subscriber.events, event)
	return nil
}

func (subscriber *testSubscriber) count() int {
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	return len(subscriber.events)
}

func TestPublishSync(t *testing.T) {
	publisher := NewEventPublisher()
	subscriber := &testSubscriber{}
	publisher.RegisterSubscriber(subscriber)

	publisher.PublishSync(&Event{Event: "test_event"})

	assert.Equal(t, 1, subscriber.count())
}

func TestPublishAsync(t *testing.T) {
	publisher := NewEventPublisher()
	subscriber := &testSubscriber{}
	publisher.RegisterSubscriber(subscriber)

	publisher.Publish(&Event{Event: "test_event"})

	assert.Eventually(t, func() bool {
		return subscriber.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveSubscriber(t *testing.T) {
	publisher := NewEventPublisher()
	subscriber := &testSubscriber{}
	publisher.RegisterSubscriber(subscriber)
	publisher.RemoveSubscriber(subscriber)

	publisher.PublishSync(&Event{Event: "test_event"})

	assert.Equal(t, 0, subscriber.count())
}
