package notify

import (
	"os"
	"testing"
	"time"

	"roombook/internal/events"
	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestNotifier_HandleEvent(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	notifier := NewNotifier(sender, []int64{111, 222}, &logger)

	bus := events.NewEventBus()
	notifier.SubscribeAll(bus)

	payload := events.BookingEventPayload{
		BookingID:  7,
		RoomID:     1,
		RoomName:   "Blue Room",
		Date:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "09:00",
		EndTime:    "10:00",
		Status:     models.StatusPending,
		Title:      "Planning",
		BookerName: "Alice",
	}
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, payload))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(111), sender.sent[0].ChatID)
	assert.Equal(t, int64(222), sender.sent[1].ChatID)

	text := sender.sent[0].Text
	assert.Contains(t, text, "Blue Room")
	assert.Contains(t, text, "10.06.2024")
	assert.Contains(t, text, "09:00 - 10:00")
	assert.Contains(t, text, "Planning")
	assert.Contains(t, text, "Alice")
	assert.Contains(t, text, "#7")
}

func TestNotifier_UnknownEventIgnored(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	notifier := NewNotifier(sender, []int64{111}, &logger)

	err := notifier.HandleEvent(&events.Event{Type: "something_else", Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifier_BadPayload(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	notifier := NewNotifier(sender, []int64{111}, &logger)

	err := notifier.HandleEvent(&events.Event{Type: events.EventBookingCreated, Payload: []byte(`not json`)})
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}
