package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/config"
	"github.com/Leganyst/slotbooking/internal/db"
	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/notify"
	"github.com/Leganyst/slotbooking/internal/repository"
)

// Воскресенье, 5 января 2025, 12:00 UTC. Ближайший понедельник 6 января.
var testNow = time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC)

var (
	monday    = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	tuesday   = monday.AddDate(0, 0, 1)
	wednesday = monday.AddDate(0, 0, 2)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordingNotifier запоминает события; err возвращается из BookingCreated.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.BookingCreated
	err    error
}

func (n *recordingNotifier) BookingCreated(_ context.Context, ev notify.BookingCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type testEnv struct {
	db       *gorm.DB
	svc      *Services
	clock    *fakeClock
	notifier *recordingNotifier
	provider *model.Provider
}

func testSchedule() config.ScheduleConfig {
	return config.ScheduleConfig{
		HorizonDays: 14,
		HoldMinutes: 10,
		Default: config.DefaultTemplate{
			Days:        []int{1, 2, 3, 4, 5},
			Start:       "09:00",
			End:         "17:00",
			SlotMinutes: 60,
		},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gormDB, err := db.NewGormDB(&config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "slots.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, openTestDB(t), testSchedule())
}

// newTestEnvWith собирает сервисы поверх существующей БД (и создаёт провайдера UTC+0).
func newTestEnvWith(t *testing.T, gormDB *gorm.DB, cfg config.ScheduleConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       gormDB,
		clock:    &fakeClock{t: testNow},
		notifier: &recordingNotifier{},
	}
	env.svc = New(gormDB, cfg, env.notifier, env.clock.Now, zap.NewNop())

	p, err := env.svc.Providers.Create(context.Background(), CreateProviderInput{DisplayName: "Dr. Test"})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	env.provider = p
	return env
}

// slotsOn — все слоты провайдера за сутки day (UTC) с указанными статусами.
func (e *testEnv) slotsOn(t *testing.T, day time.Time, statuses ...model.SlotStatus) []model.TimeSlot {
	t.Helper()
	slots, err := repository.NewGormSlotRepository(e.db).
		ListByProviderRange(context.Background(), e.provider.ID, day, day.AddDate(0, 0, 1), statuses...)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	return slots
}

func (e *testEnv) slotAt(t *testing.T, at time.Time) model.TimeSlot {
	t.Helper()
	for _, s := range e.slotsOn(t, time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)) {
		if s.StartAt.Equal(at) {
			return s
		}
	}
	t.Fatalf("no slot at %s", at)
	return model.TimeSlot{}
}

func (e *testEnv) getSlot(t *testing.T, id uuid.UUID) *model.TimeSlot {
	t.Helper()
	s, err := repository.NewGormSlotRepository(e.db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	return s
}

func (e *testEnv) materialize(t *testing.T) int64 {
	t.Helper()
	n, err := e.svc.Materializer.Materialize(context.Background(), e.provider.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	return n
}

func expectKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	e, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error of kind %s, got %v", kind, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, e.Kind, err)
	}
	return e
}

func expectConflict(t *testing.T, err error, reason ConflictReason, slotID uuid.UUID) {
	t.Helper()
	e := expectKind(t, err, KindConflict)
	if e.Reason != reason {
		t.Fatalf("expected reason %s, got %s", reason, e.Reason)
	}
	if e.SlotID != slotID {
		t.Fatalf("expected slot %s in error, got %s", slotID, e.SlotID)
	}
}

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}
