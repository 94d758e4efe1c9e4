package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	mem "github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/memory"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

// fakeTimer y fakeTimers permiten disparar timers a mano, sin tiempo real.

type fakeTimer struct {
	fn      func()
	delay   time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) factory(d time.Duration, fn func()) timerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn, delay: d}
	f.timers = append(f.timers, t)
	return t
}

// fire dispara el timer armado número i (en orden de armado) si sigue vivo.
func (f *fakeTimers) fire(i int) {
	f.mu.Lock()
	t := f.timers[i]
	f.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	t.fn()
}

func (f *fakeTimers) armed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recordingHandler struct {
	mu    sync.Mutex
	due   []doses.Key
	grace []doses.Key
}

func (h *recordingHandler) DoseDue(key doses.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.due = append(h.due, key)
}

func (h *recordingHandler) GraceElapsed(key doses.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.grace = append(h.grace, key)
}

var schedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*Scheduler, *fakeTimers, *recordingHandler, doses.Repository) {
	t.Helper()

	store := mem.NewDosesRepo()
	handler := &recordingHandler{}
	ft := &fakeTimers{}

	s := NewScheduler(logger.Noop(), store, handler)
	s.now = func() time.Time { return schedNow }
	s.newTimer = ft.factory
	return s, ft, handler, store
}

func testMedicine(times ...string) medicines.Medicine {
	return medicines.Medicine{
		ID:        "med-1",
		UserID:    "user-1",
		Name:      "Metformin",
		Dosage:    "500mg",
		Times:     times,
		StartDate: schedNow.AddDate(0, 0, -1),
		Active:    true,
	}
}

func TestScheduleMedicine_MaterializesHorizon(t *testing.T) {
	s, _, _, store := newTestScheduler(t)
	m := testMedicine("08:00", "14:00", "20:00")

	armed, err := s.ScheduleMedicine(context.Background(), m, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Hoy a las 10:00 quedan 14:00 y 20:00; los 6 días siguientes completos.
	want := 2 + 6*3
	if armed != want {
		t.Fatalf("expected %d timers armed, got %d", want, armed)
	}
	if s.ActiveTimers() != want {
		t.Fatalf("expected %d active timers, got %d", want, s.ActiveTimers())
	}

	all, err := store.Query(context.Background(), doses.Filter{MedicineID: m.ID})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != want {
		t.Fatalf("expected %d persisted doses, got %d", want, len(all))
	}

	horizonEnd := schedNow.AddDate(0, 0, 7)
	for _, d := range all {
		if !d.ScheduledTime.After(schedNow) {
			t.Fatalf("dose scheduled in the past: %v", d.ScheduledTime)
		}
		if !d.ScheduledTime.Before(horizonEnd) {
			t.Fatalf("dose beyond horizon: %v", d.ScheduledTime)
		}
		if d.Status != doses.StatusPending {
			t.Fatalf("new dose must be pending, got %s", d.Status)
		}
	}
}

func TestScheduleMedicine_Idempotent(t *testing.T) {
	s, _, _, store := newTestScheduler(t)
	m := testMedicine("08:00", "20:00")

	first, _ := s.ScheduleMedicine(context.Background(), m, 3)
	second, err := s.ScheduleMedicine(context.Background(), m, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("re-scheduling changed the set: %d vs %d", first, second)
	}
	if s.ActiveTimers() != first {
		t.Fatalf("duplicate timers after re-schedule: %d", s.ActiveTimers())
	}

	all, _ := store.Query(context.Background(), doses.Filter{MedicineID: m.ID})
	if len(all) != first {
		t.Fatalf("duplicate doses after re-schedule: %d", len(all))
	}
}

func TestScheduleMedicine_EndDateCapsHorizon(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	m := testMedicine("08:00", "14:00", "20:00")
	end := schedNow.AddDate(0, 0, 1)
	m.EndDate = &end

	armed, _ := s.ScheduleMedicine(context.Background(), m, 30)

	// Hoy: 14:00, 20:00. Mañana (endDate, inclusive): 3. Después nada.
	if armed != 5 {
		t.Fatalf("expected 5 timers with end date cap, got %d", armed)
	}
}

func TestScheduleMedicine_FutureStartBeyondHorizon(t *testing.T) {
	s, _, _, store := newTestScheduler(t)
	m := testMedicine("08:00")
	m.StartDate = schedNow.AddDate(0, 0, 10)

	// El horizonte se ancla en hoy: startDate fuera de [hoy, hoy+2) deja la
	// ventana vacía. El loop de extensión la alcanzará más adelante.
	armed, err := s.ScheduleMedicine(context.Background(), m, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if armed != 0 || s.ActiveTimers() != 0 {
		t.Fatalf("start beyond horizon must arm nothing: armed=%d active=%d", armed, s.ActiveTimers())
	}

	all, _ := store.Query(context.Background(), doses.Filter{MedicineID: m.ID})
	if len(all) != 0 {
		t.Fatalf("no doses must be persisted, got %d", len(all))
	}
}

func TestScheduleMedicine_FutureStartWithinHorizon(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	m := testMedicine("08:00")
	m.StartDate = schedNow.AddDate(0, 0, 2)

	// Ventana [hoy+2, hoy+4): dos días, una toma por día.
	armed, _ := s.ScheduleMedicine(context.Background(), m, 4)
	if armed != 2 {
		t.Fatalf("expected 2 timers inside the horizon tail, got %d", armed)
	}
}

func TestScheduleMedicine_SkipsMalformedTimes(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	m := testMedicine("14:00", "25:99", "not-a-time")

	armed, err := s.ScheduleMedicine(context.Background(), m, 2)
	if err != nil {
		t.Fatalf("malformed times must not abort scheduling: %v", err)
	}
	if armed != 2 {
		t.Fatalf("expected 2 timers (one per day, valid time only), got %d", armed)
	}
}

func TestScheduleMedicine_SkipsResolvedDoses(t *testing.T) {
	s, _, _, store := newTestScheduler(t)
	m := testMedicine("14:00")

	// La dosis de hoy ya está tomada: no se re-arma ni se pisa.
	key := doses.NewKey(m.ID, time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC))
	_ = store.Create(context.Background(), doses.ScheduledDose{
		MedicineID:    m.ID,
		UserID:        m.UserID,
		ScheduledTime: key.ScheduledTime(),
		Status:        doses.StatusTaken,
	})

	armed, _ := s.ScheduleMedicine(context.Background(), m, 1)
	if armed != 0 {
		t.Fatalf("resolved dose must not be re-armed, got %d timers", armed)
	}

	d, _ := store.Get(context.Background(), key)
	if d.Status != doses.StatusTaken {
		t.Fatalf("scheduling overwrote a resolved dose: %s", d.Status)
	}
}

func TestScheduleMedicine_InactiveCancels(t *testing.T) {
	s, ft, _, _ := newTestScheduler(t)
	m := testMedicine("14:00")

	_, _ = s.ScheduleMedicine(context.Background(), m, 2)
	if s.ActiveTimers() != 2 {
		t.Fatalf("setup: expected 2 timers, got %d", s.ActiveTimers())
	}

	m.Active = false
	armed, _ := s.ScheduleMedicine(context.Background(), m, 2)
	if armed != 0 || s.ActiveTimers() != 0 {
		t.Fatalf("inactive medicine must cancel timers: armed=%d active=%d", armed, s.ActiveTimers())
	}
	if ft.armed() != 0 {
		t.Fatalf("expected all underlying timers stopped, %d alive", ft.armed())
	}
}

func TestRescheduleMedicine_ReplacesTimerSet(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	m := testMedicine("14:00")

	_, _ = s.ScheduleMedicine(context.Background(), m, 2)

	m.Times = []string{"16:00"}
	armed, err := s.RescheduleMedicine(context.Background(), m, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if armed != 2 || s.ActiveTimers() != 2 {
		t.Fatalf("expected timer set replaced, armed=%d active=%d", armed, s.ActiveTimers())
	}
}

func TestCancelMedicine_OnlyTouchesThatMedicine(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)

	m1 := testMedicine("14:00")
	m2 := testMedicine("20:00")
	m2.ID = "med-2"

	_, _ = s.ScheduleMedicine(context.Background(), m1, 1)
	_, _ = s.ScheduleMedicine(context.Background(), m2, 1)

	removed := s.CancelMedicine(m1.ID)
	if removed != 1 {
		t.Fatalf("expected 1 timer removed, got %d", removed)
	}
	if s.ActiveTimers() != 1 {
		t.Fatalf("other medicine's timer must survive, active=%d", s.ActiveTimers())
	}
}

func TestTimerFire_InvokesHandlerAndClearsSlot(t *testing.T) {
	s, ft, handler, _ := newTestScheduler(t)
	m := testMedicine("14:00")

	_, _ = s.ScheduleMedicine(context.Background(), m, 1)
	ft.fire(0)

	if len(handler.due) != 1 {
		t.Fatalf("expected 1 due trigger, got %d", len(handler.due))
	}
	want := doses.NewKey(m.ID, time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC))
	if handler.due[0] != want {
		t.Fatalf("expected key %v, got %v", want, handler.due[0])
	}
	if s.ActiveTimers() != 0 {
		t.Fatalf("fired timer must leave the registry, active=%d", s.ActiveTimers())
	}
}

func TestArmSnoozeAndGrace_ShareDoseKey(t *testing.T) {
	s, ft, handler, _ := newTestScheduler(t)
	key := doses.NewKey("med-1", schedNow.Add(time.Hour))

	s.ArmGraceCheck(key, 15*time.Minute)
	s.ArmSnooze(key, 5*time.Minute)
	if s.ActiveTimers() != 2 {
		t.Fatalf("due and grace timers must coexist, active=%d", s.ActiveTimers())
	}

	s.CancelGrace(key)
	if s.ActiveTimers() != 1 {
		t.Fatalf("grace cancel must leave the due timer, active=%d", s.ActiveTimers())
	}

	ft.fire(1) // el snooze
	if len(handler.due) != 1 || handler.due[0] != key {
		t.Fatalf("snooze fire must report the same dose key")
	}
}
