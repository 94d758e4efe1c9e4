package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mem "github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/memory"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

type sendCall struct {
	channels     []string
	notification notify.Notification
}

// recordingDispatcher registra cada Send. Con fail=true todos los canales
// reportan falla, para probar que el contador sube igual.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []sendCall
	fail  bool
}

func (r *recordingDispatcher) Send(ctx context.Context, channels []string, n notify.Notification) []notify.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sendCall{channels: channels, notification: n})

	results := make([]notify.Result, 0, len(channels))
	for _, ch := range channels {
		if r.fail {
			results = append(results, notify.Result{Channel: ch, Err: errors.New("boom")})
		} else {
			results = append(results, notify.Result{Channel: ch, Success: true})
		}
	}
	return results
}

func (r *recordingDispatcher) byKind(kind notify.Kind) []sendCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []sendCall{}
	for _, c := range r.calls {
		if c.notification.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

var engineNow = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine     *Engine
	timers     *fakeTimers
	dispatcher *recordingDispatcher
	store      doses.Repository
	meds       medicines.Repository
	medicine   medicines.Medicine
	key        doses.Key
}

// newEngineFixture arma un engine sin arrancar (dispatch inline, sincrónico)
// con una medicina de una toma diaria a las 08:00 y un cuidador por email.
func newEngineFixture(t *testing.T, cfg Config) *engineFixture {
	t.Helper()

	store := mem.NewDosesRepo()
	meds := mem.NewMedicinesRepo()
	cgs := mem.NewCaregiversRepo()
	dispatcher := &recordingDispatcher{}
	ft := &fakeTimers{}

	m := medicines.Medicine{
		ID:            "med-1",
		UserID:        "user-1",
		Name:          "Metformin",
		Dosage:        "500mg",
		Times:         []string{"08:00"},
		StartDate:     engineNow.AddDate(0, 0, -1),
		SnoozeMinutes: 10,
		MaxReminders:  3,
		Active:        true,
		Critical:      true,
	}
	if err := meds.Create(context.Background(), m); err != nil {
		t.Fatalf("seed medicine: %v", err)
	}
	if err := cgs.Create(context.Background(), caregivers.Caregiver{
		ID:            "cg-1",
		UserID:        "user-1",
		Name:          "Ana",
		Email:         "ana@example.com",
		NotifyByEmail: true,
	}); err != nil {
		t.Fatalf("seed caregiver: %v", err)
	}

	e, err := NewEngine(logger.Noop(), cfg, Deps{
		Store:      store,
		Catalog:    meds,
		Caregivers: cgs,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.now = func() time.Time { return engineNow }
	e.sched.now = e.now
	e.sched.newTimer = ft.factory

	// Materializa solo la dosis de hoy.
	if armed, _ := e.sched.ScheduleMedicine(context.Background(), m, 1); armed != 1 {
		t.Fatalf("setup: expected 1 dose armed, got %d", armed)
	}

	return &engineFixture{
		engine:     e,
		timers:     ft,
		dispatcher: dispatcher,
		store:      store,
		meds:       meds,
		medicine:   m,
		key:        doses.NewKey(m.ID, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
	}
}

func (f *engineFixture) dose(t *testing.T) doses.ScheduledDose {
	t.Helper()
	d, err := f.store.Get(context.Background(), f.key)
	if err != nil {
		t.Fatalf("get dose: %v", err)
	}
	return d
}

func TestEngine_DueFireRemindsAndArmsGrace(t *testing.T) {
	f := newEngineFixture(t, Config{})

	var events []DoseRemindedEvent
	f.engine.OnDoseReminded(func(e DoseRemindedEvent) { events = append(events, e) })

	f.timers.fire(0)

	d := f.dose(t)
	if d.Status != doses.StatusReminded || d.RemindersSent != 1 {
		t.Fatalf("expected reminded with 1 reminder, got %s/%d", d.Status, d.RemindersSent)
	}

	reminders := f.dispatcher.byKind(notify.KindReminder)
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder dispatched, got %d", len(reminders))
	}
	if reminders[0].notification.Body == "" {
		t.Fatalf("reminder body must be rendered")
	}

	// Queda armado el chequeo de gracia.
	if f.engine.sched.ActiveTimers() != 1 {
		t.Fatalf("expected grace timer armed, active=%d", f.engine.sched.ActiveTimers())
	}
	if len(events) != 1 || events[0].Medicine.ID != f.medicine.ID {
		t.Fatalf("expected reminded event with medicine, got %v", events)
	}
}

func TestEngine_GraceElapsedMarksMissedAndEscalatesOnce(t *testing.T) {
	f := newEngineFixture(t, Config{})

	var missed []DoseMissedEvent
	f.engine.OnDoseMissed(func(e DoseMissedEvent) { missed = append(missed, e) })

	f.timers.fire(0) // recordatorio
	f.timers.fire(1) // ventana de gracia

	d := f.dose(t)
	if d.Status != doses.StatusMissed {
		t.Fatalf("expected missed, got %s", d.Status)
	}
	if !d.CaregiverNotified {
		t.Fatalf("expected caregiver notified flag")
	}

	escalations := f.dispatcher.byKind(notify.KindEscalation)
	if len(escalations) != 1 {
		t.Fatalf("expected 1 escalation, got %d", len(escalations))
	}
	if escalations[0].notification.Email != "ana@example.com" {
		t.Fatalf("escalation must target the caregiver, got %q", escalations[0].notification.Email)
	}
	if len(escalations[0].channels) != 1 || escalations[0].channels[0] != notify.ChannelEmail {
		t.Fatalf("caregiver prefers email only, got %v", escalations[0].channels)
	}

	// Un disparo residual del chequeo no re-escala.
	f.engine.GraceElapsed(f.key)
	if got := len(f.dispatcher.byKind(notify.KindEscalation)); got != 1 {
		t.Fatalf("escalation must happen exactly once, got %d", got)
	}
	if len(missed) != 1 || !missed[0].Escalated {
		t.Fatalf("expected single missed event with escalation, got %v", missed)
	}
}

func TestEngine_ConfirmDuringGraceWinsRace(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.timers.fire(0)

	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeTaken, nil, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// El chequeo de gracia quedó cancelado; un disparo residual no degrada.
	f.engine.GraceElapsed(f.key)

	d := f.dose(t)
	if d.Status != doses.StatusTaken {
		t.Fatalf("user confirmation must win the race, got %s", d.Status)
	}
	if d.CaregiverNotified {
		t.Fatalf("no escalation after a confirmed dose")
	}
	if len(f.dispatcher.byKind(notify.KindEscalation)) != 0 {
		t.Fatalf("no escalation dispatch expected")
	}
}

func TestEngine_ConfirmSkippedKeepsReason(t *testing.T) {
	f := newEngineFixture(t, Config{})

	var skipped []DoseSkippedEvent
	f.engine.OnDoseSkipped(func(e DoseSkippedEvent) { skipped = append(skipped, e) })

	d, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeSkipped, nil, "nausea")
	if err != nil {
		t.Fatalf("confirm skipped: %v", err)
	}
	if d.Status != doses.StatusSkipped || d.Notes != "nausea" {
		t.Fatalf("expected skipped with reason, got %s/%q", d.Status, d.Notes)
	}
	if len(skipped) != 1 || skipped[0].Reason != "nausea" {
		t.Fatalf("expected skipped event with reason, got %v", skipped)
	}
}

func TestEngine_DoubleConfirmIsTerminalError(t *testing.T) {
	f := newEngineFixture(t, Config{})

	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeTaken, nil, ""); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeSkipped, nil, ""); !errors.Is(err, doses.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
}

func TestEngine_SnoozeFlowAndLimit(t *testing.T) {
	f := newEngineFixture(t, Config{})
	ctx := context.Background()

	f.timers.fire(0) // primer recordatorio: reminders_sent=1

	// Primer snooze: cuenta y re-arma.
	d, err := f.engine.Snooze(ctx, f.key, 0)
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if d.RemindersSent != 2 {
		t.Fatalf("snooze must count a reminder, got %d", d.RemindersSent)
	}

	// El re-disparo no vuelve a contar (ya se contó al armar el snooze).
	f.timers.fire(2)
	if d = f.dose(t); d.RemindersSent != 2 {
		t.Fatalf("snoozed refire must not double count, got %d", d.RemindersSent)
	}
	if got := len(f.dispatcher.byKind(notify.KindReminder)); got != 2 {
		t.Fatalf("expected 2 reminder dispatches, got %d", got)
	}

	// Segundo snooze llega al tope de la medicina (max_reminders=3).
	if d, err = f.engine.Snooze(ctx, f.key, 0); err != nil {
		t.Fatalf("second snooze: %v", err)
	}
	if d.RemindersSent != 3 {
		t.Fatalf("expected 3 reminders counted, got %d", d.RemindersSent)
	}

	// El tercero rebota.
	if _, err = f.engine.Snooze(ctx, f.key, 0); !errors.Is(err, ErrReminderLimit) {
		t.Fatalf("expected ErrReminderLimit, got %v", err)
	}
}

func TestEngine_SnoozeRequiresReminded(t *testing.T) {
	f := newEngineFixture(t, Config{})

	if _, err := f.engine.Snooze(context.Background(), f.key, 5); !errors.Is(err, doses.ErrInvalidTransition) {
		t.Fatalf("snooze before reminder: expected ErrInvalidTransition, got %v", err)
	}
}

func TestEngine_FailedDispatchStillCountsReminder(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.dispatcher.fail = true

	f.timers.fire(0)

	d := f.dose(t)
	if d.Status != doses.StatusReminded || d.RemindersSent != 1 {
		t.Fatalf("failed delivery must still count the attempt, got %s/%d", d.Status, d.RemindersSent)
	}
}

func TestEngine_DueFireForInactiveMedicineIsNoop(t *testing.T) {
	f := newEngineFixture(t, Config{})

	m := f.medicine
	m.Active = false
	if err := f.meds.Update(context.Background(), m); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	f.timers.fire(0)

	d := f.dose(t)
	if d.Status != doses.StatusPending || d.RemindersSent != 0 {
		t.Fatalf("inactive medicine must not remind, got %s/%d", d.Status, d.RemindersSent)
	}
	if len(f.dispatcher.calls) != 0 {
		t.Fatalf("no dispatch expected, got %d", len(f.dispatcher.calls))
	}
}

func TestEngine_GraceFireForUnknownDoseIsSilent(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.engine.GraceElapsed(doses.NewKey("ghost", engineNow.Add(time.Hour)))
	f.engine.DoseDue(doses.NewKey("ghost", engineNow.Add(time.Hour)))

	if len(f.dispatcher.calls) != 0 {
		t.Fatalf("unknown dose must not dispatch, got %d", len(f.dispatcher.calls))
	}
}

func TestEngine_MedicineCanceledStopsTimers(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.engine.MedicineCanceled(context.Background(), f.medicine.ID)
	if f.engine.sched.ActiveTimers() != 0 {
		t.Fatalf("expected no timers after cancel, active=%d", f.engine.sched.ActiveTimers())
	}

	// La dosis pendiente sobrevive en el log.
	if d := f.dose(t); d.Status != doses.StatusPending {
		t.Fatalf("pending dose must survive cancel, got %s", d.Status)
	}
}

func TestEngine_ConfirmEmitsTakenEvent(t *testing.T) {
	f := newEngineFixture(t, Config{})

	var taken []DoseTakenEvent
	f.engine.OnDoseTaken(func(e DoseTakenEvent) { taken = append(taken, e) })

	at := engineNow.Add(2*time.Hour + 15*time.Minute) // 08:15, 15 min tarde
	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeTaken, &at, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if len(taken) != 1 {
		t.Fatalf("expected 1 taken event, got %d", len(taken))
	}
	if taken[0].Dose.DelayMinutes != 15 {
		t.Fatalf("expected 15 min delay, got %d", taken[0].Dose.DelayMinutes)
	}
}

func TestEngine_ReminderCarriesUserContact(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.engine.users = StaticContact{Phone: "+15550001111", Email: "me@example.com"}

	f.timers.fire(0)

	reminders := f.dispatcher.byKind(notify.KindReminder)
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder dispatched, got %d", len(reminders))
	}
	n := reminders[0].notification
	if n.Phone != "+15550001111" || n.Email != "me@example.com" {
		t.Fatalf("reminder must carry the user's contact, got phone=%q email=%q", n.Phone, n.Email)
	}
}

func TestEngine_DoseLocksDropWhenIdle(t *testing.T) {
	f := newEngineFixture(t, Config{})

	f.timers.fire(0)
	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeTaken, nil, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Disparo residual sobre la dosis ya terminal.
	f.engine.GraceElapsed(f.key)

	f.engine.lockMu.Lock()
	n := len(f.engine.doseLocks)
	f.engine.lockMu.Unlock()
	if n != 0 {
		t.Fatalf("idle dose locks must be discarded, %d left", n)
	}
}
