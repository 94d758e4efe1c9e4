package reminder

import (
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
)

// timerHandle es lo mínimo que el registry necesita de un timer armado.
type timerHandle interface {
	Stop() bool
}

// timerFactory arma un timer one-shot. Se inyecta en tests para disparar
// manualmente sin esperar tiempo real.
type timerFactory func(d time.Duration, fn func()) timerHandle

func stdTimerFactory(d time.Duration, fn func()) timerHandle {
	return time.AfterFunc(d, fn)
}

// timerKind distingue el timer del recordatorio del chequeo de ventana de
// gracia; ambos conviven para la misma dosis.
type timerKind uint8

const (
	timerDue timerKind = iota
	timerGrace
)

func (k timerKind) String() string {
	if k == timerGrace {
		return "grace"
	}
	return "due"
}

// timerSlot es la clave del registry: dosis + tipo de timer.
type timerSlot struct {
	Key  doses.Key
	Kind timerKind
}
