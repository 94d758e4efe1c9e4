package reminder

import (
	"sync"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
)

// Eventos tipados del engine: cada suscriptor recibe un payload con tipo
// chequeado en compilación. Los handlers corren sincrónicos tras persistir la
// transición; deben ser rápidos o despachar a su propio goroutine.

type DoseRemindedEvent struct {
	Dose     doses.ScheduledDose
	Medicine medicines.Medicine
}

type DoseTakenEvent struct {
	Dose doses.ScheduledDose
}

type DoseSkippedEvent struct {
	Dose   doses.ScheduledDose
	Reason string
}

type DoseMissedEvent struct {
	Dose doses.ScheduledDose
	// Escalated indica si esta invocación disparó la escalación (true solo
	// la primera vez).
	Escalated bool
}

type eventBus struct {
	mu       sync.RWMutex
	reminded []func(DoseRemindedEvent)
	taken    []func(DoseTakenEvent)
	skipped  []func(DoseSkippedEvent)
	missed   []func(DoseMissedEvent)
}

func (b *eventBus) emitReminded(e DoseRemindedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.reminded {
		fn(e)
	}
}

func (b *eventBus) emitTaken(e DoseTakenEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.taken {
		fn(e)
	}
}

func (b *eventBus) emitSkipped(e DoseSkippedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.skipped {
		fn(e)
	}
}

func (b *eventBus) emitMissed(e DoseMissedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.missed {
		fn(e)
	}
}

// OnDoseReminded registra un suscriptor para recordatorios disparados.
func (e *Engine) OnDoseReminded(fn func(DoseRemindedEvent)) {
	e.events.mu.Lock()
	defer e.events.mu.Unlock()
	e.events.reminded = append(e.events.reminded, fn)
}

// OnDoseTaken registra un suscriptor para dosis confirmadas como tomadas.
func (e *Engine) OnDoseTaken(fn func(DoseTakenEvent)) {
	e.events.mu.Lock()
	defer e.events.mu.Unlock()
	e.events.taken = append(e.events.taken, fn)
}

// OnDoseSkipped registra un suscriptor para dosis salteadas.
func (e *Engine) OnDoseSkipped(fn func(DoseSkippedEvent)) {
	e.events.mu.Lock()
	defer e.events.mu.Unlock()
	e.events.skipped = append(e.events.skipped, fn)
}

// OnDoseMissed registra un suscriptor para dosis perdidas.
func (e *Engine) OnDoseMissed(fn func(DoseMissedEvent)) {
	e.events.mu.Lock()
	defer e.events.mu.Unlock()
	e.events.missed = append(e.events.missed, fn)
}
