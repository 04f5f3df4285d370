package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/calendar"
	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/notify"
	"github.com/Leganyst/slotbooking/internal/repository"
	"github.com/Leganyst/slotbooking/internal/utils"
)

var errSlotSetChanged = errors.New("slot set changed under lock")

type ConfirmInput struct {
	UserID    uuid.UUID
	SlotIDs   []uuid.UUID
	ServiceID *uuid.UUID
	Notes     string
}

type ConfirmResult struct {
	Booking *model.Booking
	SlotIDs []uuid.UUID
}

// BookingService переводит слоты в booked и создаёт бронирование.
// Весь набор слотов блокируется одним SELECT ... FOR UPDATE до любых проверок,
// поэтому из двух конкурирующих подтверждений проходит ровно одно.
type BookingService struct {
	db        *gorm.DB
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	providers repository.ProviderRepository
	catalog   ServiceCatalog
	holds     *HoldService
	notifier  notify.Notifier
	clock     Clock
	logger    *zap.Logger
}

func NewBookingService(
	db *gorm.DB,
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	catalog ServiceCatalog,
	holds *HoldService,
	notifier notify.Notifier,
	clock Clock,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &BookingService{
		db:        db,
		slots:     slots,
		bookings:  bookings,
		providers: providers,
		catalog:   catalog,
		holds:     holds,
		notifier:  notifier,
		clock:     clock,
		logger:    logger.Named("bookings"),
	}
}

// Confirm бронирует слоты in.SlotIDs за пользователем.
func (s *BookingService) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	if in.UserID == uuid.Nil {
		return nil, invalidInput("user id is required")
	}
	ids := dedupeIDs(in.SlotIDs)
	if len(ids) == 0 {
		return nil, invalidInput("slot_ids must not be empty")
	}

	// Внешние вызовы до транзакции.
	pricing, serviceID := s.resolvePricing(ctx, in.ServiceID)
	if s.holds != nil {
		s.holds.reclaimBestEffort(ctx)
	}

	now := s.clock.now()
	var booking *model.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots := s.slots.WithTx(tx)

		locked, err := slots.LockByIDs(ctx, ids)
		if err != nil {
			return internal("lock slots", err)
		}
		if len(locked) != len(ids) {
			return slotNotFound(firstMissing(ids, locked))
		}

		providerID := locked[0].ProviderID
		start, end := locked[0].StartAt, locked[0].EndAt
		for i := range locked {
			slot := &locked[i]
			if slot.ProviderID != providerID {
				return &Error{
					Kind:    KindInvalidInput,
					SlotID:  slot.ID,
					Message: "all slots must belong to the same provider",
				}
			}
			if err := checkConfirmable(slot, in.UserID, now); err != nil {
				return err
			}
			if slot.StartAt.Before(start) {
				start = slot.StartAt
			}
			if slot.EndAt.After(end) {
				end = slot.EndAt
			}
		}

		slotIDs, err := json.Marshal(sortedIDs(ids))
		if err != nil {
			return internal("encode slot ids", err)
		}

		b := &model.Booking{
			ClientID:        in.UserID,
			ProviderID:      providerID,
			ServiceID:       serviceID,
			StartAt:         start,
			EndAt:           end,
			DurationMinutes: pricing.DurationMinutes,
			Price:           pricing.Price,
			SlotIDs:         datatypes.JSON(slotIDs),
			Status:          model.BookingStatusPending,
			Notes:           in.Notes,
		}
		if err := s.bookings.WithTx(tx).Create(ctx, b); err != nil {
			return internal("create booking", err)
		}

		n, err := slots.MarkBooked(ctx, ids, b.ID)
		if err != nil {
			return internal("mark slots booked", err)
		}
		if n != int64(len(ids)) {
			return internal("mark slots booked", errSlotSetChanged)
		}

		booking = b
		return nil
	})
	if err != nil {
		if e, ok := AsError(err); ok && e.Kind == KindConflict {
			s.logger.Info("confirm rejected",
				zap.String("user_id", in.UserID.String()),
				zap.String("slot_id", e.SlotID.String()),
				zap.String("reason", string(e.Reason)),
			)
		}
		return nil, wrapStorage("confirm", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("provider_id", booking.ProviderID.String()),
		zap.String("client_id", booking.ClientID.String()),
		zap.Int("slots", len(ids)),
	)

	// Уведомление только после коммита; его ошибка бронирование не отменяет.
	s.notifyCreated(ctx, booking, ids)

	return &ConfirmResult{Booking: booking, SlotIDs: ids}, nil
}

// checkConfirmable: свободный слот или удержанный этим же пользователем.
func checkConfirmable(slot *model.TimeSlot, userID uuid.UUID, now time.Time) error {
	switch slot.Status {
	case model.SlotStatusBooked:
		return conflict(slot.ID, ReasonAlreadyBooked)
	case model.SlotStatusHeld:
		if slot.HeldBy != nil && *slot.HeldBy == userID {
			break
		}
		if !holdExpired(slot, now) {
			return conflict(slot.ID, ReasonHeldByOther)
		}
	case model.SlotStatusAvailable:
	default:
		return conflict(slot.ID, ReasonNotAvailable)
	}
	if !slot.StartAt.After(now) {
		return conflict(slot.ID, ReasonSlotStarted)
	}
	return nil
}

func firstMissing(requested []uuid.UUID, found []model.TimeSlot) uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, s := range found {
		have[s.ID] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			return id
		}
	}
	return uuid.Nil
}

// resolvePricing — цена и длительность из каталога, при любой ошибке дефолты.
// Второй результат: serviceID, если услуга найдена.
func (s *BookingService) resolvePricing(ctx context.Context, serviceID *uuid.UUID) (CatalogEntry, *uuid.UUID) {
	entry := CatalogEntry{Price: decimal.Zero, DurationMinutes: defaultServiceDurationMin}
	if serviceID == nil || s.catalog == nil {
		return entry, nil
	}

	found, err := s.catalog.Lookup(ctx, *serviceID)
	if err != nil {
		s.logger.Warn("service lookup failed, using default pricing",
			zap.String("service_id", serviceID.String()),
			zap.Error(err),
		)
		return entry, nil
	}
	if found.DurationMinutes <= 0 {
		found.DurationMinutes = defaultServiceDurationMin
	}
	id := *serviceID
	return found, &id
}

func (s *BookingService) notifyCreated(ctx context.Context, b *model.Booking, ids []uuid.UUID) {
	var loc *time.Location
	if p, err := s.providers.GetByID(ctx, b.ProviderID); err == nil {
		loc = p.Location()
	}

	ev := notify.BookingCreated{
		BookingID:  b.ID,
		ClientID:   b.ClientID,
		ProviderID: b.ProviderID,
		ServiceID:  b.ServiceID,
		SlotIDs:    ids,
		StartAt:    b.StartAt,
		EndAt:      b.EndAt,
		Price:      b.Price.StringFixed(2),
		Summary:    utils.FormatSlotForUser(utils.TimeRange{Start: b.StartAt, End: b.EndAt}, loc),
	}
	if err := s.notifier.BookingCreated(ctx, ev); err != nil {
		s.logger.Warn("booking notification failed",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("booking "+id.String(), err)
	}
	return b, nil
}

// ListForClient отдаёт бронирования клиента с началом в [from, to) постранично.
func (s *BookingService) ListForClient(
	ctx context.Context,
	clientID uuid.UUID,
	from, to time.Time,
	page, pageSize int,
) (calendar.Page[model.Booking], error) {
	if clientID == uuid.Nil {
		return calendar.Page[model.Booking]{}, invalidInput("user id is required")
	}
	if !to.After(from) {
		return calendar.Page[model.Booking]{}, invalidInput("to must be after from")
	}

	// нормализуем так же, как Paginate, чтобы offset совпал с метаданными
	meta := calendar.Paginate([]model.Booking(nil), page, pageSize)
	offset := (meta.Page - 1) * meta.PageSize

	bookings, total, err := s.bookings.ListByClientAndRange(ctx, clientID, from, to, meta.PageSize, offset)
	if err != nil {
		return calendar.Page[model.Booking]{}, internal("list bookings", err)
	}
	return calendar.PageOf(bookings, meta.Page, meta.PageSize, int(total)), nil
}
