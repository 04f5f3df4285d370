package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const EventBookingCreated = "booking.created"

// BookingCreated — событие о новом бронировании, отправляется после коммита.
type BookingCreated struct {
	BookingID  uuid.UUID   `json:"booking_id"`
	ClientID   uuid.UUID   `json:"client_id"`
	ProviderID uuid.UUID   `json:"provider_id"`
	ServiceID  *uuid.UUID  `json:"service_id,omitempty"`
	SlotIDs    []uuid.UUID `json:"slot_ids"`
	StartAt    time.Time   `json:"start_at"`
	EndAt      time.Time   `json:"end_at"`
	Price      string      `json:"price"`
	// Человекочитаемое время в зоне провайдера.
	Summary string `json:"summary"`
}

// Notifier доставляет события внешнему слою уведомлений.
// Ошибка доставки не влияет на результат бронирования.
type Notifier interface {
	BookingCreated(ctx context.Context, ev BookingCreated) error
}

// Noop ничего не отправляет.
type Noop struct{}

func (Noop) BookingCreated(context.Context, BookingCreated) error { return nil }

// LogNotifier пишет события в лог, когда брокера нет.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BookingCreated(_ context.Context, ev BookingCreated) error {
	n.logger.Info("booking created",
		zap.String("event", EventBookingCreated),
		zap.String("booking_id", ev.BookingID.String()),
		zap.String("provider_id", ev.ProviderID.String()),
		zap.String("client_id", ev.ClientID.String()),
		zap.Int("slots", len(ev.SlotIDs)),
		zap.String("when", ev.Summary),
	)
	return nil
}
