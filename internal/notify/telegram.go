package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier пересылает события бронирований менеджерам в telegram.
type Notifier struct {
	sender         domain.TelegramSender
	managerChatIDs []int64
	logger         *zerolog.Logger
	retry          worker.RetryPolicy
}

func NewNotifier(sender domain.TelegramSender, managerChatIDs []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:         sender,
		managerChatIDs: managerChatIDs,
		logger:         logger,
		retry:          worker.DefaultNotifyPolicy(),
	}
}

// SubscribeAll wires the notifier to every booking event type on the bus.
func (n *Notifier) SubscribeAll(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingApproved,
		events.EventBookingRejected,
		events.EventBookingCancelled,
		events.EventBookingMoved,
	} {
		bus.Subscribe(eventType, n.HandleEvent)
	}
}

// HandleEvent formats the booking event and delivers it to all manager chats.
func (n *Notifier) HandleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("Failed to decode booking event")
		return err
	}

	text := n.formatMessage(event.Type, &payload)
	if text == "" {
		return nil
	}

	for _, chatID := range n.managerChatIDs {
		n.sendWithRetry(chatID, text)
	}
	return nil
}

func (n *Notifier) sendWithRetry(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)

	var err error
	for attempt := 1; attempt <= n.retry.MaxRetries; attempt++ {
		if _, err = n.sender.Send(msg); err == nil {
			return
		}
		time.Sleep(n.retry.NextDelay(attempt))
	}

	n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver telegram notification")
}

func (n *Notifier) formatMessage(eventType string, p *events.BookingEventPayload) string {
	var sb strings.Builder

	switch eventType {
	case events.EventBookingCreated:
		sb.WriteString("📅 Новая заявка на переговорную\n\n")
	case events.EventBookingApproved:
		sb.WriteString("✅ Бронь подтверждена\n\n")
	case events.EventBookingRejected:
		sb.WriteString("❌ Заявка отклонена\n\n")
	case events.EventBookingCancelled:
		sb.WriteString("🚫 Бронь отменена\n\n")
	case events.EventBookingMoved:
		sb.WriteString("🔀 Бронь перенесена\n\n")
	default:
		return ""
	}

	fmt.Fprintf(&sb, "Комната: %s\n", p.RoomName)
	fmt.Fprintf(&sb, "Дата: %s\n", p.Date.Format("02.01.2006"))
	fmt.Fprintf(&sb, "Время: %s - %s\n", p.StartTime, p.EndTime)
	if p.Title != "" {
		fmt.Fprintf(&sb, "Тема: %s\n", p.Title)
	}
	if p.BookerName != "" {
		fmt.Fprintf(&sb, "Кто: %s\n", p.BookerName)
	}
	if p.ChangedBy != "" {
		fmt.Fprintf(&sb, "Изменил: %s\n", p.ChangedBy)
	}
	fmt.Fprintf(&sb, "Заявка #%d", p.BookingID)

	return sb.String()
}
