package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/slotbooking/internal/model"
)

const insertBatchSize = 200

type SlotRepository interface {
	// Репозиторий поверх транзакции.
	WithTx(tx *gorm.DB) SlotRepository
	// Вставить слоты, пропуская уже существующие (provider_id, start_at). Возвращает число вставленных.
	InsertMissing(ctx context.Context, slots []model.TimeSlot) (int64, error)
	// Слоты провайдера с началом в [from, to) и одним из статусов (пусто: любые).
	ListByProviderRange(ctx context.Context, providerID uuid.UUID, from, to time.Time, statuses ...model.SlotStatus) ([]model.TimeSlot, error)
	// Найти слот по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
	// Заблокировать строку слота до конца транзакции.
	LockByID(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error)
	// Заблокировать набор слотов одним запросом, в порядке id.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]model.TimeSlot, error)
	// Удалить свободные слоты с началом в [from, to).
	DeleteAvailableInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error)
	// Удалить свободные слоты с началом в [from, to), чьих границ (start_at, end_at) нет в keep.
	DeleteAvailableExcept(ctx context.Context, providerID uuid.UUID, from, to time.Time, keep []model.TimeSlot) (int64, error)
	// Удалить все свободные слоты провайдера.
	DeleteAllAvailable(ctx context.Context, providerID uuid.UUID) (int64, error)
	// Перевести слот в held.
	MarkHeld(ctx context.Context, id, userID uuid.UUID, expiresAt time.Time) error
	// Снять удержания пользователя (ids пусто: все).
	ReleaseHolds(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	// Вернуть в available все удержания, истёкшие к now.
	ReclaimExpired(ctx context.Context, now time.Time) (int64, error)
	// Перевести слоты в booked.
	MarkBooked(ctx context.Context, ids []uuid.UUID, bookingID uuid.UUID) (int64, error)
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) WithTx(tx *gorm.DB) SlotRepository {
	return &GormSlotRepository{db: tx}
}

func (r *GormSlotRepository) InsertMissing(ctx context.Context, slots []model.TimeSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}, {Name: "start_at"}},
			DoNothing: true,
		}).
		CreateInBatches(slots, insertBatchSize)
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ListByProviderRange(
	ctx context.Context,
	providerID uuid.UUID,
	from, to time.Time,
	statuses ...model.SlotStatus,
) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	q := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("provider_id = ?", providerID).
		Where("start_at >= ? AND start_at < ?", from.UTC(), to.UTC())

	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	if err := q.Order("start_at ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) DeleteAvailableInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("provider_id = ? AND status = ?", providerID, model.SlotStatusAvailable).
		Where("start_at >= ? AND start_at < ?", from.UTC(), to.UTC()).
		Delete(&model.TimeSlot{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) DeleteAvailableExcept(
	ctx context.Context,
	providerID uuid.UUID,
	from, to time.Time,
	keep []model.TimeSlot,
) (int64, error) {
	var existing []model.TimeSlot
	err := r.db.WithContext(ctx).
		Select("id", "start_at", "end_at").
		Where("provider_id = ? AND status = ?", providerID, model.SlotStatusAvailable).
		Where("start_at >= ? AND start_at < ?", from.UTC(), to.UTC()).
		Find(&existing).Error
	if err != nil {
		return 0, err
	}

	want := make(map[slotBounds]struct{}, len(keep))
	for _, s := range keep {
		want[boundsOf(s)] = struct{}{}
	}

	// совпадение только по началу не годится: при смене длительности
	// старый слот перекрыл бы новые
	var stale []uuid.UUID
	for _, s := range existing {
		if _, ok := want[boundsOf(s)]; !ok {
			stale = append(stale, s.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", stale, model.SlotStatusAvailable).
		Delete(&model.TimeSlot{})
	return res.RowsAffected, res.Error
}

type slotBounds struct {
	start, end int64
}

func boundsOf(s model.TimeSlot) slotBounds {
	return slotBounds{start: s.StartAt.Unix(), end: s.EndAt.Unix()}
}

func (r *GormSlotRepository) DeleteAllAvailable(ctx context.Context, providerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("provider_id = ? AND status = ?", providerID, model.SlotStatusAvailable).
		Delete(&model.TimeSlot{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) MarkHeld(ctx context.Context, id, userID uuid.UUID, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          model.SlotStatusHeld,
			"held_by":         userID,
			"hold_expires_at": expiresAt.UTC(),
		}).Error
}

func (r *GormSlotRepository) ReleaseHolds(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("status = ? AND held_by = ?", model.SlotStatusHeld, userID)

	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}

	res := q.Updates(clearHold())
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("status = ? AND hold_expires_at < ?", model.SlotStatusHeld, now.UTC()).
		Updates(clearHold())
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) MarkBooked(ctx context.Context, ids []uuid.UUID, bookingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id IN ?", ids).
		Where("status <> ?", model.SlotStatusBooked).
		Updates(map[string]any{
			"status":          model.SlotStatusBooked,
			"booking_id":      bookingID,
			"held_by":         nil,
			"hold_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

func clearHold() map[string]any {
	return map[string]any{
		"status":          model.SlotStatusAvailable,
		"held_by":         nil,
		"hold_expires_at": nil,
	}
}
