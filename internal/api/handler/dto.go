package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/service"
)

// ── запросы ──

type CreateProviderRequest struct {
	DisplayName      string `json:"display_name" binding:"required"`
	Description      string `json:"description"`
	UTCOffsetMinutes int    `json:"utc_offset_minutes"`
}

type RuleRequest struct {
	DayOfWeek           int    `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	BufferMinutes       int    `json:"buffer_minutes"`
}

type ReplaceRulesRequest struct {
	ProviderID uuid.UUID     `json:"provider_id" binding:"required"`
	Rules      []RuleRequest `json:"rules"`
}

type UpsertOverrideRequest struct {
	ProviderID  uuid.UUID `json:"provider_id" binding:"required"`
	Date        string    `json:"date" binding:"required"`
	IsAvailable bool      `json:"is_available"`
	StartTime   *string   `json:"start_time"`
	EndTime     *string   `json:"end_time"`
	Reason      string    `json:"reason"`
}

type HoldRequest struct {
	SlotIDs []uuid.UUID `json:"slot_ids" binding:"required"`
}

type ReleaseRequest struct {
	SlotIDs []uuid.UUID `json:"slot_ids"`
}

type BookRequest struct {
	SlotIDs   []uuid.UUID `json:"slot_ids" binding:"required"`
	ServiceID *uuid.UUID  `json:"service_id"`
	Notes     string      `json:"notes"`
}

// ── ответы ──

type ProviderResponse struct {
	ID               uuid.UUID `json:"id"`
	DisplayName      string    `json:"display_name"`
	Description      string    `json:"description,omitempty"`
	UTCOffsetMinutes int       `json:"utc_offset_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

type RuleResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProviderID          uuid.UUID `json:"provider_id"`
	DayOfWeek           int       `json:"day_of_week"`
	StartTime           string    `json:"start_time"`
	EndTime             string    `json:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	BufferMinutes       int       `json:"buffer_minutes"`
	Active              bool      `json:"active"`
	Seeded              bool      `json:"seeded"`
}

type OverrideResponse struct {
	ID          uuid.UUID `json:"id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	Date        string    `json:"date"`
	IsAvailable bool      `json:"is_available"`
	StartTime   *string   `json:"start_time,omitempty"`
	EndTime     *string   `json:"end_time,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

type SlotResponse struct {
	ID            uuid.UUID  `json:"id"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

type HoldResponse struct {
	Slots         []SlotResponse `json:"slots"`
	HoldExpiresAt time.Time      `json:"hold_expires_at"`
}

type DayStatsResponse struct {
	Date      string            `json:"date"`
	Available int               `json:"available"`
	Held      int               `json:"held"`
	Booked    int               `json:"booked"`
	Override  *OverrideResponse `json:"override,omitempty"`
}

type CalendarResponse struct {
	ProviderID uuid.UUID          `json:"provider_id"`
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Days       []DayStatsResponse `json:"days"`
}

type BookingResponse struct {
	ID              uuid.UUID       `json:"id"`
	ClientID        uuid.UUID       `json:"client_id"`
	ProviderID      uuid.UUID       `json:"provider_id"`
	ServiceID       *uuid.UUID      `json:"service_id,omitempty"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           string          `json:"price"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	SlotIDs         json.RawMessage `json:"slot_ids"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ConfirmResponse struct {
	Booking BookingResponse `json:"booking"`
	SlotIDs []uuid.UUID     `json:"slot_ids"`
}

// ── конвертеры ──

func toProvider(p *model.Provider) ProviderResponse {
	return ProviderResponse{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Description:      p.Description,
		UTCOffsetMinutes: p.UTCOffsetMinutes,
		CreatedAt:        p.CreatedAt,
	}
}

func toRules(rules []model.AvailabilityRule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRule(&r))
	}
	return out
}

func toRule(r *model.AvailabilityRule) RuleResponse {
	return RuleResponse{
		ID:                  r.ID,
		ProviderID:          r.ProviderID,
		DayOfWeek:           r.DayOfWeek,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		SlotDurationMinutes: r.SlotDurationMinutes,
		BufferMinutes:       r.BufferMinutes,
		Active:              r.Active,
		Seeded:              r.Seeded,
	}
}

func toOverride(o *model.AvailabilityOverride) OverrideResponse {
	return OverrideResponse{
		ID:          o.ID,
		ProviderID:  o.ProviderID,
		Date:        o.Day().Format(dateLayout),
		IsAvailable: o.IsAvailable,
		StartTime:   o.StartTime,
		EndTime:     o.EndTime,
		Reason:      o.Reason,
	}
}

func toSlots(slots []model.TimeSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			ID:            s.ID,
			Start:         s.StartAt,
			End:           s.EndAt,
			Status:        string(s.Status),
			HoldExpiresAt: s.HoldExpiresAt,
		})
	}
	return out
}

func toCalendar(cal *service.MonthCalendar) CalendarResponse {
	out := CalendarResponse{
		ProviderID: cal.ProviderID,
		Year:       cal.Year,
		Month:      int(cal.Month),
		Days:       make([]DayStatsResponse, 0, len(cal.Days)),
	}
	for _, d := range cal.Days {
		day := DayStatsResponse{
			Date:      d.Date,
			Available: d.AvailableCount,
			Held:      d.HeldCount,
			Booked:    d.BookedCount,
		}
		if d.Override != nil {
			ov := toOverride(d.Override)
			day.Override = &ov
		}
		out.Days = append(out.Days, day)
	}
	return out
}

func toBooking(b *model.Booking) BookingResponse {
	slotIDs := json.RawMessage(b.SlotIDs)
	if len(slotIDs) == 0 {
		slotIDs = json.RawMessage("[]")
	}
	return BookingResponse{
		ID:              b.ID,
		ClientID:        b.ClientID,
		ProviderID:      b.ProviderID,
		ServiceID:       b.ServiceID,
		StartAt:         b.StartAt,
		EndAt:           b.EndAt,
		DurationMinutes: b.DurationMinutes,
		Price:           b.Price.StringFixed(2),
		Status:          string(b.Status),
		Notes:           b.Notes,
		SlotIDs:         slotIDs,
		CreatedAt:       b.CreatedAt,
	}
}
