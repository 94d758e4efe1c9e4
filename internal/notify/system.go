package notify

import (
	"context"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

const ChannelSystem = "system"

// SystemChannel emite la notificación local del dispositivo. La entrega real
// al sistema operativo queda detrás de Notifier; el default escribe al log,
// suficiente para deployments headless.
type SystemChannel struct {
	notifier Notifier
}

// Notifier abstrae la API de notificaciones del sistema operativo.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

func NewSystemChannel(n Notifier) *SystemChannel {
	return &SystemChannel{notifier: n}
}

func (c *SystemChannel) Name() string { return ChannelSystem }

func (c *SystemChannel) Send(ctx context.Context, n Notification) error {
	return c.notifier.Notify(ctx, n.Subject, n.Body)
}

// LogNotifier es el Notifier por defecto.
type LogNotifier struct {
	Log logger.Logger
}

func (l LogNotifier) Notify(ctx context.Context, title, body string) error {
	l.Log.Info("system notification", map[string]any{
		"title": title,
		"body":  body,
	})
	return nil
}
