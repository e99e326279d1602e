package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		var payload map[string]any
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		got = append(got, payload["title"].(string))
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCreated, map[string]string{"title": "Planning"}))
	require.NoError(t, bus.PublishJSON(EventBookingCancelled, map[string]string{"title": "ignored"}))

	assert.Equal(t, []string{"Planning"}, got)
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := func(e *Event) error {
		calls++
		return nil
	}
	bus.Subscribe(EventBookingApproved, handler)
	bus.Subscribe(EventBookingApproved, handler)

	bus.Publish(&Event{Type: EventBookingApproved})
	assert.Equal(t, 2, calls)
}

func TestEventBus_NilSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, struct{}{}))
}
