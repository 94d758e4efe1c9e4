package reminder

import (
	"context"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
)

// reportLoop manda el reporte de adherencia con la cadencia configurada
// (semanal por defecto).
func (e *Engine) reportLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.sendReports(e.ctx)
		}
	}
}

// sendReports agrega la última semana de cada usuario con medicinas activas
// y se la manda por email al usuario y a los cuidadores que optaron por
// recibirla.
func (e *Engine) sendReports(ctx context.Context) {
	active, err := e.catalog.ListActive(ctx, "")
	if err != nil {
		e.log.Error("report skipped, catalog unavailable", map[string]any{
			"err": err.Error(),
		})
		return
	}

	seen := make(map[string]bool)
	for _, m := range active {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		e.sendUserReport(ctx, m.UserID)
	}
}

func (e *Engine) sendUserReport(ctx context.Context, userID string) {
	now := e.now()
	sum, err := e.adherence.Summarize(ctx, userID, now.AddDate(0, 0, -7), now)
	if err != nil {
		e.log.Error("adherence summary failed", map[string]any{
			"user_id": userID,
			"err":     err.Error(),
		})
		return
	}
	if sum.Taken+sum.Missed+sum.Skipped == 0 {
		// Semana sin dosis resueltas: no hay nada que reportar.
		return
	}

	subject := e.templates.renderReportSubject(sum)
	body := e.templates.renderReport(sum)

	if e.users != nil {
		if contact, cerr := e.users.Contact(ctx, userID); cerr == nil && contact.Email != "" {
			e.dispatcher.Send(ctx, []string{notify.ChannelEmail}, notify.Notification{
				Kind:    notify.KindReport,
				UserID:  userID,
				Email:   contact.Email,
				Subject: subject,
				Body:    body,
			})
		}
	}

	if e.caregivers == nil {
		return
	}
	list, err := e.caregivers.ListByUser(ctx, userID)
	if err != nil {
		return
	}
	for _, cg := range list {
		if !cg.NotifyByEmail || cg.Email == "" {
			continue
		}
		e.dispatcher.Send(ctx, []string{notify.ChannelEmail}, notify.Notification{
			Kind:    notify.KindReport,
			UserID:  userID,
			Email:   cg.Email,
			Subject: subject,
			Body:    body,
		})
	}
}
