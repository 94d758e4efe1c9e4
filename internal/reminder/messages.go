package reminder

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
)

// TemplateStrings son los textos crudos de los mensajes. Vienen del YAML de
// configuración; un campo vacío cae al default.
type TemplateStrings struct {
	Reminder          string
	EscalationSubject string
	Escalation        string
	ReportSubject     string
	Report            string
}

// DefaultTemplates son los textos que se usan sin YAML de configuración.
func DefaultTemplates() TemplateStrings {
	return TemplateStrings{
		Reminder:          "Medicine reminder: it's time to take your {{.Medicine}} ({{.Dosage}}), scheduled for {{.Time}}.{{if .Instructions}} {{.Instructions}}{{end}}",
		EscalationSubject: "Missed dose alert - {{.Medicine}}",
		Escalation:        "MISSED DOSE ALERT: the dose of {{.Medicine}} ({{.Dosage}}) scheduled for {{.Time}} was not confirmed.{{if .Critical}} This medicine is marked as critical.{{end}} Please check on the patient.",
		ReportSubject:     "Weekly adherence report",
		Report:            "Adherence report for the week ending {{.To}}: {{.Taken}} taken, {{.Missed}} missed, {{.Skipped}} skipped out of {{.Resolved}} doses ({{.Rate}}% adherence, average delay {{.AvgDelay}} min).",
	}
}

// TemplateSet son los templates ya compilados.
type TemplateSet struct {
	reminder          *template.Template
	escalationSubject *template.Template
	escalation        *template.Template
	reportSubject     *template.Template
	report            *template.Template
}

// NewTemplateSet compila los textos; los vacíos usan el default.
func NewTemplateSet(ts TemplateStrings) (*TemplateSet, error) {
	def := DefaultTemplates()
	pick := func(s, fallback string) string {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}

	var set TemplateSet
	var err error

	if set.reminder, err = template.New("reminder").Parse(pick(ts.Reminder, def.Reminder)); err != nil {
		return nil, fmt.Errorf("reminder template: %w", err)
	}
	if set.escalationSubject, err = template.New("escalation_subject").Parse(pick(ts.EscalationSubject, def.EscalationSubject)); err != nil {
		return nil, fmt.Errorf("escalation subject template: %w", err)
	}
	if set.escalation, err = template.New("escalation").Parse(pick(ts.Escalation, def.Escalation)); err != nil {
		return nil, fmt.Errorf("escalation template: %w", err)
	}
	if set.reportSubject, err = template.New("report_subject").Parse(pick(ts.ReportSubject, def.ReportSubject)); err != nil {
		return nil, fmt.Errorf("report subject template: %w", err)
	}
	if set.report, err = template.New("report").Parse(pick(ts.Report, def.Report)); err != nil {
		return nil, fmt.Errorf("report template: %w", err)
	}
	return &set, nil
}

type doseMessageData struct {
	Medicine     string
	Dosage       string
	Time         string
	Instructions string
	Critical     bool
}

func newDoseMessageData(d doses.ScheduledDose, m medicines.Medicine) doseMessageData {
	return doseMessageData{
		Medicine:     m.Name,
		Dosage:       m.Dosage,
		Time:         d.ScheduledTime.Format("3:04 PM"),
		Instructions: m.Instructions,
		Critical:     m.Critical,
	}
}

func (s *TemplateSet) renderReminder(d doses.ScheduledDose, m medicines.Medicine) string {
	return render(s.reminder, newDoseMessageData(d, m))
}

func (s *TemplateSet) renderEscalationSubject(d doses.ScheduledDose, m medicines.Medicine) string {
	return render(s.escalationSubject, newDoseMessageData(d, m))
}

func (s *TemplateSet) renderEscalation(d doses.ScheduledDose, m medicines.Medicine) string {
	data := newDoseMessageData(d, m)
	data.Time = d.ScheduledTime.Format("3:04 PM on January 2, 2006")
	return render(s.escalation, data)
}

type reportMessageData struct {
	To       string
	Taken    int
	Missed   int
	Skipped  int
	Resolved int
	Rate     int
	AvgDelay int
}

func (s *TemplateSet) renderReportSubject(sum doses.Summary) string {
	return render(s.reportSubject, reportData(sum))
}

func (s *TemplateSet) renderReport(sum doses.Summary) string {
	return render(s.report, reportData(sum))
}

func reportData(sum doses.Summary) reportMessageData {
	return reportMessageData{
		To:       sum.To.Format("January 2, 2006"),
		Taken:    sum.Taken,
		Missed:   sum.Missed,
		Skipped:  sum.Skipped,
		Resolved: sum.Taken + sum.Missed + sum.Skipped,
		Rate:     int(sum.AdherenceRate*100 + 0.5),
		AvgDelay: int(sum.AvgDelayMinutes + 0.5),
	}
}

func render(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		// Un template roto no debe voltear un dispatch; degradamos a un
		// mensaje genérico.
		return fmt.Sprintf("medicine reminder (%s)", time.Now().Format(time.RFC3339))
	}
	return b.String()
}
