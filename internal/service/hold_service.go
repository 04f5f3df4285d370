package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
)

const defaultHoldTTL = 10 * time.Minute

// HoldResult — удержанные слоты и общий срок удержания.
type HoldResult struct {
	Slots     []model.TimeSlot
	ExpiresAt time.Time
}

// HoldService управляет временными удержаниями слотов.
// У пользователя одновременно только один набор удержаний: новый hold снимает предыдущий.
type HoldService struct {
	db      *gorm.DB
	slots   repository.SlotRepository
	holdTTL time.Duration
	clock   Clock
	logger  *zap.Logger
}

func NewHoldService(
	db *gorm.DB,
	slots repository.SlotRepository,
	holdTTL time.Duration,
	clock Clock,
	logger *zap.Logger,
) *HoldService {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &HoldService{
		db:      db,
		slots:   slots,
		holdTTL: holdTTL,
		clock:   clock,
		logger:  logger.Named("holds"),
	}
}

// Hold удерживает все слоты slotIDs за userID или ни одного.
func (s *HoldService) Hold(ctx context.Context, userID uuid.UUID, slotIDs []uuid.UUID) (*HoldResult, error) {
	if userID == uuid.Nil {
		return nil, invalidInput("user id is required")
	}
	ids := dedupeIDs(slotIDs)
	if len(ids) == 0 {
		return nil, invalidInput("slot_ids must not be empty")
	}

	s.reclaimBestEffort(ctx)

	now := s.clock.now()
	expiresAt := now.Add(s.holdTTL)
	held := make([]model.TimeSlot, 0, len(ids))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots := s.slots.WithTx(tx)

		if _, err := slots.ReleaseHolds(ctx, userID, nil); err != nil {
			return internal("release previous holds", err)
		}

		for _, id := range sortedIDs(ids) {
			slot, err := slots.LockByID(ctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return slotNotFound(id)
			}
			if err != nil {
				return internal("lock slot", err)
			}

			if err := checkHoldable(slot, userID, now); err != nil {
				return err
			}

			if err := slots.MarkHeld(ctx, id, userID, expiresAt); err != nil {
				return internal("hold slot", err)
			}

			slot.Status = model.SlotStatusHeld
			slot.HeldBy = &userID
			slot.HoldExpiresAt = &expiresAt
			held = append(held, *slot)
		}
		return nil
	})
	if err != nil {
		if e, ok := AsError(err); ok && e.Kind == KindConflict {
			s.logger.Info("hold rejected",
				zap.String("user_id", userID.String()),
				zap.String("slot_id", e.SlotID.String()),
				zap.String("reason", string(e.Reason)),
			)
		}
		return nil, wrapStorage("hold", err)
	}

	sort.Slice(held, func(i, j int) bool { return held[i].StartAt.Before(held[j].StartAt) })
	return &HoldResult{Slots: held, ExpiresAt: expiresAt}, nil
}

// checkHoldable — слот должен быть свободен и ещё не начаться.
// Истёкшее чужое удержание считается свободным.
func checkHoldable(slot *model.TimeSlot, userID uuid.UUID, now time.Time) error {
	switch slot.Status {
	case model.SlotStatusBooked:
		return conflict(slot.ID, ReasonAlreadyBooked)
	case model.SlotStatusHeld:
		if !holdExpired(slot, now) && (slot.HeldBy == nil || *slot.HeldBy != userID) {
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

func holdExpired(slot *model.TimeSlot, now time.Time) bool {
	return slot.HoldExpiresAt != nil && slot.HoldExpiresAt.Before(now)
}

// Release снимает удержания пользователя со слотов slotIDs (пусто: со всех).
// Повторный вызов и чужие/свободные слоты ошибкой не считаются.
func (s *HoldService) Release(ctx context.Context, userID uuid.UUID, slotIDs []uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, invalidInput("user id is required")
	}
	n, err := s.slots.ReleaseHolds(ctx, userID, dedupeIDs(slotIDs))
	if err != nil {
		return 0, internal("release holds", err)
	}
	return n, nil
}

// ReclaimExpired возвращает в available все истёкшие удержания.
func (s *HoldService) ReclaimExpired(ctx context.Context) (int64, error) {
	n, err := s.slots.ReclaimExpired(ctx, s.clock.now())
	if err != nil {
		return 0, internal("reclaim expired holds", err)
	}
	if n > 0 {
		s.logger.Info("expired holds reclaimed", zap.Int64("count", n))
	}
	return n, nil
}

// reclaimBestEffort — для путей чтения и записи: ошибка только логируется,
// следующий вызов всё равно подчистит.
func (s *HoldService) reclaimBestEffort(ctx context.Context) {
	if _, err := s.ReclaimExpired(ctx); err != nil {
		s.logger.Warn("reclaim expired holds failed", zap.Error(err))
	}
}
