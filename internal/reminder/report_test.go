package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
)

func TestSendReports_EmailsCaregiversWithWeeklySummary(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.engine.adherence = doses.NewService(f.store)

	// La dosis de hoy 08:00 se toma; el corte del reporte corre después.
	if _, err := f.engine.Confirm(context.Background(), f.key, doses.OutcomeTaken, nil, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.engine.now = func() time.Time { return engineNow.Add(6 * time.Hour) }

	f.engine.sendReports(context.Background())

	reports := f.dispatcher.byKind(notify.KindReport)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report (caregiver email), got %d", len(reports))
	}

	r := reports[0]
	if r.notification.Email != "ana@example.com" {
		t.Fatalf("report must go to the caregiver, got %q", r.notification.Email)
	}
	if len(r.channels) != 1 || r.channels[0] != notify.ChannelEmail {
		t.Fatalf("reports go by email, got %v", r.channels)
	}
	if !strings.Contains(r.notification.Body, "1 taken") {
		t.Fatalf("report body must summarize the week, got %q", r.notification.Body)
	}
}

func TestSendReports_SkipsWeeksWithNothingResolved(t *testing.T) {
	f := newEngineFixture(t, Config{})
	f.engine.adherence = doses.NewService(f.store)

	// Dosis pendiente, nada resuelto: no hay reporte.
	f.engine.sendReports(context.Background())

	if got := len(f.dispatcher.byKind(notify.KindReport)); got != 0 {
		t.Fatalf("expected no report for an empty week, got %d", got)
	}
}
