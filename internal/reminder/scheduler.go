package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

// TriggerHandler recibe los disparos de timers. El engine lo implementa; el
// scheduler no sabe nada de notificaciones ni de transiciones de estado.
type TriggerHandler interface {
	DoseDue(key doses.Key)
	GraceElapsed(key doses.Key)
}

// Scheduler materializa horarios recurrentes en dosis concretas y administra
// sus timers one-shot, con clave compuesta (medicina, horario).
type Scheduler struct {
	log     logger.Logger
	store   doses.Repository
	handler TriggerHandler

	now      func() time.Time
	newTimer timerFactory

	mu     sync.Mutex
	timers map[timerSlot]timerHandle
}

func NewScheduler(log logger.Logger, store doses.Repository, handler TriggerHandler) *Scheduler {
	return &Scheduler{
		log:      log,
		store:    store,
		handler:  handler,
		now:      time.Now,
		newTimer: stdTimerFactory,
		timers:   make(map[timerSlot]timerHandle),
	}
}

// ScheduleMedicine materializa el horizonte de la medicina: una dosis por
// (día, horario) dentro de [max(hoy, startDate), hoy+horizonDays), capado por
// endDate, solo timestamps futuros. El horizonte se ancla en hoy: una
// medicina cuyo startDate cae más allá no materializa nada hasta que el loop
// de extensión la alcance. Es idempotente: re-invocar reemplaza timers
// existentes en vez de duplicarlos. Un horario malformado se saltea con un
// log y no aborta el resto. Devuelve cuántos timers quedaron armados.
func (s *Scheduler) ScheduleMedicine(ctx context.Context, m medicines.Medicine, horizonDays int) (int, error) {
	if !m.Active {
		s.CancelMedicine(m.ID)
		return 0, nil
	}
	if horizonDays <= 0 {
		horizonDays = 1
	}

	now := s.now()
	today := dayOf(now)
	horizonEnd := today.AddDate(0, 0, horizonDays)

	start := today
	if sd := dayOf(m.StartDate); sd.After(start) {
		start = sd
	}

	armed := 0
	for date := start; date.Before(horizonEnd); date = date.AddDate(0, 0, 1) {
		if m.EndDate != nil && date.After(dayOf(*m.EndDate)) {
			break
		}

		for _, raw := range m.Times {
			tod, err := medicines.ParseTimeOfDay(raw)
			if err != nil {
				// Tolerancia a fallas parciales: este slot se pierde,
				// el resto del horario sigue.
				s.log.Warn("skipping malformed time of day", map[string]any{
					"medicine_id": m.ID,
					"time":        raw,
				})
				continue
			}

			ts := time.Date(date.Year(), date.Month(), date.Day(), tod.Hour, tod.Minute, 0, 0, now.Location())
			if !ts.After(now) {
				continue
			}

			key := doses.NewKey(m.ID, ts)
			if !s.ensureDose(ctx, m, key, now) {
				continue
			}

			s.arm(timerSlot{Key: key, Kind: timerDue}, ts.Sub(now), func() {
				s.handler.DoseDue(key)
			})
			armed++
		}
	}

	s.log.Info("medicine scheduled", map[string]any{
		"medicine_id": m.ID,
		"user_id":     m.UserID,
		"armed":       armed,
	})
	return armed, nil
}

// ensureDose crea la ScheduledDose si no existe. Reporta si corresponde
// armar (o re-armar) el timer: una dosis ya resuelta no se vuelve a armar.
func (s *Scheduler) ensureDose(ctx context.Context, m medicines.Medicine, key doses.Key, now time.Time) bool {
	d := doses.ScheduledDose{
		MedicineID:    m.ID,
		UserID:        m.UserID,
		ScheduledTime: key.ScheduledTime(),
		Status:        doses.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.Create(ctx, d)
	switch {
	case err == nil:
		return true
	case errors.Is(err, doses.ErrAlreadyExists):
		existing, gerr := s.store.Get(ctx, key)
		if gerr != nil {
			return false
		}
		return existing.Status == doses.StatusPending
	default:
		// Falla de persistencia: se pierde esta instancia, no todo el
		// horario.
		s.log.Error("dose create failed", map[string]any{
			"dose": key.String(),
			"err":  err.Error(),
		})
		return false
	}
}

// RescheduleMedicine cancela y vuelve a materializar. El set de dosis
// resultante es el mismo que daría ScheduleMedicine sobre una medicina
// nunca agendada.
func (s *Scheduler) RescheduleMedicine(ctx context.Context, m medicines.Medicine, horizonDays int) (int, error) {
	s.CancelMedicine(m.ID)
	return s.ScheduleMedicine(ctx, m, horizonDays)
}

// CancelMedicine frena todo timer aún no disparado de la medicina (due y
// grace). Dosis ya disparadas o terminales no se tocan. Devuelve cuántos
// timers removió.
func (s *Scheduler) CancelMedicine(medicineID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for slot, t := range s.timers {
		if slot.Key.MedicineID != medicineID {
			continue
		}
		t.Stop()
		delete(s.timers, slot)
		removed++
	}
	return removed
}

// ArmSnooze re-arma el recordatorio de una dosis existente para now+delay.
// Reusa la misma clave: no crea una dosis nueva.
func (s *Scheduler) ArmSnooze(key doses.Key, delay time.Duration) {
	s.arm(timerSlot{Key: key, Kind: timerDue}, delay, func() {
		s.handler.DoseDue(key)
	})
}

// ArmGraceCheck arma el chequeo de dosis perdida para now+grace.
func (s *Scheduler) ArmGraceCheck(key doses.Key, grace time.Duration) {
	s.arm(timerSlot{Key: key, Kind: timerGrace}, grace, func() {
		s.handler.GraceElapsed(key)
	})
}

// CancelGrace frena el chequeo de gracia pendiente de la dosis, si lo hay.
// Un disparo residual igual es inofensivo: el engine re-chequea el estado.
func (s *Scheduler) CancelGrace(key doses.Key) {
	s.cancelSlot(timerSlot{Key: key, Kind: timerGrace})
}

// CancelDose frena ambos timers de una dosis resuelta.
func (s *Scheduler) CancelDose(key doses.Key) {
	s.cancelSlot(timerSlot{Key: key, Kind: timerDue})
	s.cancelSlot(timerSlot{Key: key, Kind: timerGrace})
}

// StopAll frena todos los timers. Lo usa el engine al apagarse.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for slot, t := range s.timers {
		t.Stop()
		delete(s.timers, slot)
	}
}

// ActiveTimers devuelve cuántos timers hay armados.
func (s *Scheduler) ActiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// arm reemplaza el timer del slot si ya existía (idempotencia) y arma uno
// nuevo. fn corre en su propio goroutine cuando el timer vence.
func (s *Scheduler) arm(slot timerSlot, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[slot]; ok {
		old.Stop()
	}

	s.timers[slot] = s.newTimer(d, func() {
		s.clear(slot)
		fn()
	})
}

func (s *Scheduler) cancelSlot(slot timerSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[slot]; ok {
		t.Stop()
		delete(s.timers, slot)
	}
}

// clear saca el slot del registry cuando el timer ya disparó.
func (s *Scheduler) clear(slot timerSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, slot)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
