package doses_test

import (
	"context"
	"testing"
	"time"

	mem "github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/memory"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
)

var svcNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedDose(t *testing.T, repo doses.Repository, medID string, at time.Time, status doses.Status, delay int) {
	t.Helper()
	err := repo.Create(context.Background(), doses.ScheduledDose{
		MedicineID:    medID,
		UserID:        "user-1",
		ScheduledTime: at,
		Status:        status,
		DelayMinutes:  delay,
	})
	if err != nil {
		t.Fatalf("seed dose: %v", err)
	}
}

func TestUpcoming_OnlyUnresolvedWithinWindow(t *testing.T) {
	repo := mem.NewDosesRepo()
	svc := doses.NewServiceWithClock(repo, func() time.Time { return svcNow })

	seedDose(t, repo, "m1", svcNow.Add(2*time.Hour), doses.StatusPending, 0)
	seedDose(t, repo, "m2", svcNow.Add(4*time.Hour), doses.StatusReminded, 0)
	seedDose(t, repo, "m3", svcNow.Add(6*time.Hour), doses.StatusTaken, 0)   // resuelta
	seedDose(t, repo, "m4", svcNow.Add(30*time.Hour), doses.StatusPending, 0) // fuera de ventana
	seedDose(t, repo, "m5", svcNow.Add(-time.Hour), doses.StatusPending, 0)  // pasada

	out, err := svc.Upcoming(context.Background(), "user-1", 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 upcoming doses, got %d", len(out))
	}
	if !out[0].ScheduledTime.Before(out[1].ScheduledTime) {
		t.Fatalf("upcoming must be sorted by schedule")
	}
}

func TestHistory_NewestFirstAndFiltered(t *testing.T) {
	repo := mem.NewDosesRepo()
	svc := doses.NewServiceWithClock(repo, func() time.Time { return svcNow })

	seedDose(t, repo, "m1", svcNow.Add(-3*time.Hour), doses.StatusTaken, 5)
	seedDose(t, repo, "m1", svcNow.Add(-2*time.Hour), doses.StatusMissed, 0)
	seedDose(t, repo, "m2", svcNow.Add(-time.Hour), doses.StatusSkipped, 0)

	out, err := svc.History(context.Background(), "user-1", doses.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}
	if !out[0].ScheduledTime.After(out[1].ScheduledTime) {
		t.Fatalf("history must be newest first")
	}

	onlyMissed, _ := svc.History(context.Background(), "user-1", doses.Filter{
		Statuses: []doses.Status{doses.StatusMissed},
	})
	if len(onlyMissed) != 1 || onlyMissed[0].Status != doses.StatusMissed {
		t.Fatalf("status filter not applied: %v", onlyMissed)
	}
}

func TestHistory_LimitKeepsNewest(t *testing.T) {
	repo := mem.NewDosesRepo()
	svc := doses.NewServiceWithClock(repo, func() time.Time { return svcNow })

	for i := 1; i <= 5; i++ {
		seedDose(t, repo, "m1", svcNow.Add(-time.Duration(i)*time.Hour), doses.StatusTaken, 0)
	}

	out, err := svc.History(context.Background(), "user-1", doses.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	// Limit recorta a las más recientes, no a un subconjunto arbitrario.
	if !out[0].ScheduledTime.Equal(svcNow.Add(-time.Hour)) ||
		!out[1].ScheduledTime.Equal(svcNow.Add(-2*time.Hour)) {
		t.Fatalf("limit must keep the newest doses, got %v and %v",
			out[0].ScheduledTime, out[1].ScheduledTime)
	}
}

func TestSummarize_Metrics(t *testing.T) {
	repo := mem.NewDosesRepo()
	svc := doses.NewServiceWithClock(repo, func() time.Time { return svcNow })

	seedDose(t, repo, "m1", svcNow.Add(-30*time.Hour), doses.StatusTaken, 10)
	seedDose(t, repo, "m1", svcNow.Add(-20*time.Hour), doses.StatusTaken, 20)
	seedDose(t, repo, "m1", svcNow.Add(-10*time.Hour), doses.StatusMissed, 0)
	seedDose(t, repo, "m1", svcNow.Add(-5*time.Hour), doses.StatusSkipped, 0)
	seedDose(t, repo, "m1", svcNow.Add(-time.Hour), doses.StatusPending, 0)

	sum, err := svc.Summarize(context.Background(), "user-1", svcNow.AddDate(0, 0, -7), svcNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.Total != 5 || sum.Taken != 2 || sum.Missed != 1 || sum.Skipped != 1 || sum.Pending != 1 {
		t.Fatalf("wrong counts: %+v", sum)
	}
	// 2 tomadas de 4 resueltas
	if sum.AdherenceRate != 0.5 {
		t.Fatalf("expected 0.5 adherence, got %v", sum.AdherenceRate)
	}
	if sum.AvgDelayMinutes != 15 {
		t.Fatalf("expected 15 min average delay, got %v", sum.AvgDelayMinutes)
	}
}

func TestSummarize_EmptyWindow(t *testing.T) {
	svc := doses.NewServiceWithClock(mem.NewDosesRepo(), func() time.Time { return svcNow })

	sum, err := svc.Summarize(context.Background(), "user-1", svcNow.AddDate(0, 0, -7), svcNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Total != 0 || sum.AdherenceRate != 0 {
		t.Fatalf("empty window must produce zero metrics, got %+v", sum)
	}
}
