package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
)

func TestConfirm_ConcurrentSameSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	slot := env.slotAt(t, at(monday, 9, 0))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID}})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case IsKind(err, KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, succeeded, conflicts)
	}

	var bookings int64
	if err := env.db.Model(&model.Booking{}).Count(&bookings).Error; err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if bookings != 1 {
		t.Fatalf("expected 1 booking row, got %d", bookings)
	}
	if env.notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", env.notifier.count())
	}
}

func TestConfirm_MultipleSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	a := env.slotAt(t, at(monday, 9, 0))
	b := env.slotAt(t, at(monday, 10, 0))
	user := uuid.New()

	if _, err := env.svc.Holds.Hold(ctx, user, []uuid.UUID{a.ID, b.ID}); err != nil {
		t.Fatalf("hold: %v", err)
	}

	out, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: user, SlotIDs: []uuid.UUID{b.ID, a.ID, b.ID}, Notes: "first visit"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	bk := out.Booking
	if !bk.StartAt.Equal(at(monday, 9, 0)) || !bk.EndAt.Equal(at(monday, 11, 0)) {
		t.Fatalf("expected 09:00-11:00, got %s-%s", bk.StartAt, bk.EndAt)
	}
	if bk.Status != model.BookingStatusPending {
		t.Fatalf("expected pending booking, got %s", bk.Status)
	}
	if len(out.SlotIDs) != 2 {
		t.Fatalf("expected duplicates removed, got %d ids", len(out.SlotIDs))
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(bk.SlotIDs, &ids); err != nil {
		t.Fatalf("decode slot ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 slot ids stored, got %d", len(ids))
	}

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		got := env.getSlot(t, id)
		if got.Status != model.SlotStatusBooked || got.BookingID == nil || *got.BookingID != bk.ID {
			t.Fatalf("expected slot booked by %s, got %+v", bk.ID, got)
		}
		if got.HeldBy != nil || got.HoldExpiresAt != nil {
			t.Fatalf("expected hold fields cleared")
		}
	}

	ev := env.notifier.events[0]
	if ev.BookingID != bk.ID || ev.Summary != "Понедельник, 06.01.2025, 09:00–11:00" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestConfirm_Pricing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	duration := int64(90)
	svc := &model.Service{Name: "Consultation", Price: decimal.RequireFromString("1500.00"), DefaultDurationMin: &duration, IsActive: true}
	if err := repository.NewGormServiceRepository(env.db).Create(ctx, svc); err != nil {
		t.Fatalf("create service: %v", err)
	}

	out, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{
		UserID:    uuid.New(),
		SlotIDs:   []uuid.UUID{env.slotAt(t, at(monday, 9, 0)).ID},
		ServiceID: &svc.ID,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !out.Booking.Price.Equal(decimal.RequireFromString("1500")) || out.Booking.DurationMinutes != 90 {
		t.Fatalf("expected 1500/90, got %s/%d", out.Booking.Price, out.Booking.DurationMinutes)
	}
	if out.Booking.ServiceID == nil || *out.Booking.ServiceID != svc.ID {
		t.Fatalf("expected service id stored")
	}

	unknown := uuid.New()
	out, err = env.svc.Bookings.Confirm(ctx, ConfirmInput{
		UserID:    uuid.New(),
		SlotIDs:   []uuid.UUID{env.slotAt(t, at(monday, 10, 0)).ID},
		ServiceID: &unknown,
	})
	if err != nil {
		t.Fatalf("confirm with unknown service: %v", err)
	}
	if !out.Booking.Price.IsZero() || out.Booking.DurationMinutes != 60 || out.Booking.ServiceID != nil {
		t.Fatalf("expected default pricing, got %s/%d", out.Booking.Price, out.Booking.DurationMinutes)
	}
}

func TestConfirm_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	_, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New()})
	expectKind(t, err, KindInvalidInput)

	slot := env.slotAt(t, at(monday, 9, 0))
	missing := uuid.New()
	_, err = env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID, missing}})
	if e := expectKind(t, err, KindNotFound); e.SlotID != missing {
		t.Fatalf("expected missing slot in error, got %s", e.SlotID)
	}
	if got := env.getSlot(t, slot.ID); got.Status != model.SlotStatusAvailable {
		t.Fatalf("expected slot untouched after failed confirm, got %s", got.Status)
	}

	other, err := env.svc.Providers.Create(ctx, CreateProviderInput{DisplayName: "Other"})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if _, err := env.svc.Materializer.Materialize(ctx, other.ID); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	otherSlots, err := env.svc.Query.DaySlots(ctx, other.ID, monday, false)
	if err != nil || len(otherSlots) == 0 {
		t.Fatalf("expected slots for other provider, got %d (%v)", len(otherSlots), err)
	}
	_, err = env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID, otherSlots[0].ID}})
	expectKind(t, err, KindInvalidInput)

	env.clock.Set(at(monday, 9, 30))
	_, err = env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID}})
	expectConflict(t, err, ReasonSlotStarted, slot.ID)
}

func TestConfirm_AlreadyBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	slot := env.slotAt(t, at(monday, 9, 0))
	if _, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID}}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{slot.ID}})
	expectConflict(t, err, ReasonAlreadyBooked, slot.ID)
}

func TestConfirm_NotifierFailureDoesNotFail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)
	env.notifier.err = errors.New("broker down")

	if _, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: uuid.New(), SlotIDs: []uuid.UUID{env.slotAt(t, at(monday, 9, 0)).ID}}); err != nil {
		t.Fatalf("expected confirm to succeed, got %v", err)
	}
}

func TestBookings_ListForClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.materialize(t)

	user := uuid.New()
	for _, h := range []int{9, 10, 11} {
		if _, err := env.svc.Bookings.Confirm(ctx, ConfirmInput{UserID: user, SlotIDs: []uuid.UUID{env.slotAt(t, at(monday, h, 0)).ID}}); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	page, err := env.svc.Bookings.ListForClient(ctx, user, monday, monday.Add(24*time.Hour), 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || !page.HasNext || page.TotalPages != 2 {
		t.Fatalf("unexpected first page: total=%d items=%d next=%v pages=%d", page.Total, len(page.Items), page.HasNext, page.TotalPages)
	}

	page, err = env.svc.Bookings.ListForClient(ctx, user, monday, monday.Add(24*time.Hour), 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.HasNext || !page.Items[0].StartAt.Equal(at(monday, 11, 0)) {
		t.Fatalf("unexpected second page: %+v", page)
	}

	got, err := env.svc.Bookings.Get(ctx, page.Items[0].ID)
	if err != nil || got.ClientID != user {
		t.Fatalf("get booking: %v", err)
	}
	_, err = env.svc.Bookings.Get(ctx, uuid.New())
	expectKind(t, err, KindNotFound)
}
