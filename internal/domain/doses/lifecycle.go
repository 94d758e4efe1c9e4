package doses

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrTerminalStatus: la dosis ya se resolvió; cualquier transición
	// posterior es un no-op para el caller.
	ErrTerminalStatus = errors.New("dose already in terminal status")

	// ErrInvalidTransition: la transición no está definida para el estado
	// actual (p.ej. snooze sobre una dosis que todavía no fue recordada).
	ErrInvalidTransition = errors.New("invalid dose transition")
)

// Las transiciones son funciones puras: reciben la dosis por valor y
// devuelven la copia mutada. El chequeo read-check-write contra el estado
// actual vive acá; la serialización por dosis (lock por clave) es
// responsabilidad del engine.

// Remind aplica el disparo del timer: Pending pasa a Reminded y cuenta el
// recordatorio. Una dosis ya Reminded re-dispara por snooze; ese recordatorio
// se contó al armar el snooze, así que no se vuelve a contar.
func Remind(d ScheduledDose, now time.Time) (ScheduledDose, error) {
	if d.Status.Terminal() {
		return d, ErrTerminalStatus
	}
	if d.Status == StatusPending {
		d.RemindersSent++
	}
	d.Status = StatusReminded
	d.LastReminderTime = &now
	d.UpdatedAt = now
	return d, nil
}

// ConfirmTaken resuelve la dosis como tomada. Vale también desde Pending:
// el usuario puede adelantarse al recordatorio.
func ConfirmTaken(d ScheduledDose, actual time.Time) (ScheduledDose, error) {
	if d.Status.Terminal() {
		return d, ErrTerminalStatus
	}
	d.Status = StatusTaken
	d.ActualTime = &actual
	d.DelayMinutes = delayMinutes(d.ScheduledTime, actual)
	d.UpdatedAt = actual
	return d, nil
}

// ConfirmSkipped resuelve la dosis como salteada; la razón queda en Notes.
func ConfirmSkipped(d ScheduledDose, now time.Time, reason string) (ScheduledDose, error) {
	if d.Status.Terminal() {
		return d, ErrTerminalStatus
	}
	d.Status = StatusSkipped
	d.Notes = reason
	d.UpdatedAt = now
	return d, nil
}

// Snooze difiere un recordatorio ya entregado. Cuenta como un recordatorio
// más; el timer nuevo lo arma el scheduler con la misma clave.
func Snooze(d ScheduledDose, now time.Time) (ScheduledDose, error) {
	if d.Status.Terminal() {
		return d, ErrTerminalStatus
	}
	if d.Status != StatusReminded {
		return d, ErrInvalidTransition
	}
	d.RemindersSent++
	d.UpdatedAt = now
	return d, nil
}

// MarkMissed aplica el vencimiento de la ventana de gracia. Solo procede si
// la dosis sigue sin resolverse; si el usuario confirmó en el medio, el
// caller recibe ErrTerminalStatus y no pasa nada.
func MarkMissed(d ScheduledDose, now time.Time) (ScheduledDose, error) {
	if d.Status.Terminal() {
		return d, ErrTerminalStatus
	}
	d.Status = StatusMissed
	d.UpdatedAt = now
	return d, nil
}

// NotifyCaregiver marca la escalación como enviada. Devuelve false si ya se
// había notificado antes: la bandera sube una sola vez por dosis.
func NotifyCaregiver(d ScheduledDose, now time.Time) (ScheduledDose, bool) {
	if d.CaregiverNotified {
		return d, false
	}
	d.CaregiverNotified = true
	d.CaregiverNotifiedAt = &now
	d.UpdatedAt = now
	return d, true
}

func delayMinutes(scheduled, actual time.Time) int {
	m := int(math.Round(actual.Sub(scheduled).Minutes()))
	if m < 0 {
		return 0
	}
	return m
}
