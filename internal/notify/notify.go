package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

// Kind clasifica la notificación; los canales pueden ajustar formato según
// el tipo de evento.
// @Enum reminder, escalation, report
type Kind string

const (
	KindReminder   Kind = "reminder"
	KindEscalation Kind = "escalation"
	KindReport     Kind = "report"
)

// Notification es el payload agnóstico de canal. Cada canal usa los campos
// que le sirven: voice lee Body, SMS necesita Phone, email necesita Email.
type Notification struct {
	Kind   Kind
	UserID string

	Phone string
	Email string

	Subject  string
	Body     string
	HTMLBody string
}

// Channel es un medio de entrega concreto. Send es I/O potencialmente
// bloqueante; el engine lo ejecuta en su worker pool, nunca en el goroutine
// del timer.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Result es el resultado por canal de un dispatch.
type Result struct {
	Channel string
	Success bool
	Err     error
}

var ErrUnknownChannel = errors.New("unknown notification channel")

// Dispatcher reparte una notificación entre canales heterogéneos. La falla
// de un canal no corta los demás y no hay retry automático: el resultado
// por canal queda en manos del caller.
type Dispatcher struct {
	log      logger.Logger
	channels map[string]Channel
}

func NewDispatcher(log logger.Logger, channels ...Channel) *Dispatcher {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Dispatcher{
		log:      log,
		channels: byName,
	}
}

// Register agrega o reemplaza un canal.
func (d *Dispatcher) Register(c Channel) {
	d.channels[c.Name()] = c
}

// Send entrega n por cada canal nombrado y devuelve un Result por canal, en
// el mismo orden. Un canal desconocido produce un Result con error.
func (d *Dispatcher) Send(ctx context.Context, channelNames []string, n Notification) []Result {
	results := make([]Result, 0, len(channelNames))

	for _, name := range channelNames {
		ch, ok := d.channels[name]
		if !ok {
			results = append(results, Result{
				Channel: name,
				Err:     fmt.Errorf("%w: %s", ErrUnknownChannel, name),
			})
			continue
		}

		if err := ch.Send(ctx, n); err != nil {
			d.log.Warn("notification send failed", map[string]any{
				"channel": name,
				"kind":    string(n.Kind),
				"user_id": n.UserID,
				"err":     err.Error(),
			})
			results = append(results, Result{Channel: name, Err: err})
			continue
		}

		results = append(results, Result{Channel: name, Success: true})
	}

	return results
}

// AnySuccess reporta si al menos un canal entregó.
func AnySuccess(results []Result) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}
