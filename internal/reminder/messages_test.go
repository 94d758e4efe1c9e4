package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
)

func fixtureDoseAndMedicine() (doses.ScheduledDose, medicines.Medicine) {
	d := doses.ScheduledDose{
		MedicineID:    "med-1",
		UserID:        "user-1",
		ScheduledTime: time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC),
		Status:        doses.StatusPending,
	}
	m := medicines.Medicine{
		ID:           "med-1",
		Name:         "Metformin",
		Dosage:       "500mg",
		Instructions: "Take with food",
		Critical:     true,
	}
	return d, m
}

func TestDefaultTemplates_Reminder(t *testing.T) {
	set, err := NewTemplateSet(TemplateStrings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, m := fixtureDoseAndMedicine()
	body := set.renderReminder(d, m)

	for _, want := range []string{"Metformin", "500mg", "8:30 PM", "Take with food"} {
		if !strings.Contains(body, want) {
			t.Fatalf("reminder missing %q: %s", want, body)
		}
	}
}

func TestDefaultTemplates_EscalationMentionsCritical(t *testing.T) {
	set, _ := NewTemplateSet(TemplateStrings{})
	d, m := fixtureDoseAndMedicine()

	body := set.renderEscalation(d, m)
	if !strings.Contains(body, "critical") {
		t.Fatalf("critical medicine must be flagged: %s", body)
	}

	m.Critical = false
	body = set.renderEscalation(d, m)
	if strings.Contains(body, "critical") {
		t.Fatalf("non-critical medicine must not be flagged: %s", body)
	}
}

func TestNewTemplateSet_CustomOverride(t *testing.T) {
	set, err := NewTemplateSet(TemplateStrings{
		Reminder: "Hora de {{.Medicine}} ({{.Dosage}})",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, m := fixtureDoseAndMedicine()
	if got := set.renderReminder(d, m); got != "Hora de Metformin (500mg)" {
		t.Fatalf("custom template not applied: %s", got)
	}

	// Los campos no seteados caen al default.
	if subj := set.renderEscalationSubject(d, m); !strings.Contains(subj, "Metformin") {
		t.Fatalf("default escalation subject expected, got %s", subj)
	}
}

func TestNewTemplateSet_RejectsBrokenTemplate(t *testing.T) {
	if _, err := NewTemplateSet(TemplateStrings{Reminder: "{{.Broken"}); err == nil {
		t.Fatalf("expected parse error for broken template")
	}
}

func TestRenderReport_RatePercentage(t *testing.T) {
	set, _ := NewTemplateSet(TemplateStrings{})

	body := set.renderReport(doses.Summary{
		To:              time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		Taken:           5,
		Missed:          1,
		Skipped:         0,
		AdherenceRate:   5.0 / 6.0,
		AvgDelayMinutes: 4.2,
	})

	for _, want := range []string{"5 taken", "1 missed", "83%", "4 min"} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q: %s", want, body)
		}
	}
}
