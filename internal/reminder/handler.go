package reminder

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/middleware"
)

// RegisterRoutes publica el ciclo de vida de dosis y las consultas de
// adherencia. doseKey viaja como "medicineID@RFC3339" en el path.
func RegisterRoutes(r chi.Router, engine *Engine, dosesSvc *doses.Service) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/upcoming", upcomingDosesHandler(dosesSvc))
		dr.Get("/history", doseHistoryHandler(dosesSvc))
		dr.Post("/{doseKey}/confirm", confirmDoseHandler(engine, dosesSvc))
		dr.Post("/{doseKey}/snooze", snoozeDoseHandler(engine, dosesSvc))
	})
	r.Get("/adherence", adherenceHandler(dosesSvc))
}

type confirmDoseRequest struct {
	Outcome    string `json:"outcome"`               // taken | skipped
	ActualTime string `json:"actual_time,omitempty"` // RFC3339, solo para taken
	Reason     string `json:"reason,omitempty"`      // solo para skipped
}

type snoozeDoseRequest struct {
	Minutes int `json:"minutes"` // 0 = usar el snooze de la medicina
}

type doseResponse struct {
	Key                 string     `json:"key"`
	MedicineID          string     `json:"medicine_id"`
	UserID              string     `json:"user_id"`
	ScheduledTime       time.Time  `json:"scheduled_time"`
	Status              string     `json:"status"`
	RemindersSent       int        `json:"reminders_sent"`
	LastReminderTime    *time.Time `json:"last_reminder_time,omitempty"`
	ActualTime          *time.Time `json:"actual_time,omitempty"`
	DelayMinutes        int        `json:"delay_minutes"`
	Notes               string     `json:"notes,omitempty"`
	CaregiverNotified   bool       `json:"caregiver_notified"`
	CaregiverNotifiedAt *time.Time `json:"caregiver_notified_at,omitempty"`
}

type adherenceResponse struct {
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Total           int       `json:"total"`
	Taken           int       `json:"taken"`
	Missed          int       `json:"missed"`
	Skipped         int       `json:"skipped"`
	Pending         int       `json:"pending"`
	AdherenceRate   float64   `json:"adherence_rate"`
	AvgDelayMinutes float64   `json:"avg_delay_minutes"`
}

func confirmDoseHandler(engine *Engine, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := ownedDoseKey(w, r, dosesSvc)
		if !ok {
			return
		}

		var req confirmDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		outcome := doses.Outcome(strings.ToLower(strings.TrimSpace(req.Outcome)))
		if outcome != doses.OutcomeTaken && outcome != doses.OutcomeSkipped {
			http.Error(w, "outcome must be taken or skipped", http.StatusBadRequest)
			return
		}

		var actual *time.Time
		if strings.TrimSpace(req.ActualTime) != "" {
			t, err := time.Parse(time.RFC3339, req.ActualTime)
			if err != nil {
				http.Error(w, "actual_time must be RFC3339", http.StatusBadRequest)
				return
			}
			actual = &t
		}

		d, err := engine.Confirm(r.Context(), key, outcome, actual, req.Reason)
		if err != nil {
			writeDoseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func snoozeDoseHandler(engine *Engine, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := ownedDoseKey(w, r, dosesSvc)
		if !ok {
			return
		}

		var req snoozeDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := engine.Snooze(r.Context(), key, req.Minutes)
		if err != nil {
			writeDoseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func upcomingDosesHandler(dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		hours := 24
		if v := r.URL.Query().Get("hours"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				http.Error(w, "hours must be a positive integer", http.StatusBadRequest)
				return
			}
			hours = parsed
		}

		items, err := dosesSvc.Upcoming(r.Context(), claims.UserID, hours)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponses(items))
	}
}

func doseHistoryHandler(dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		filter := doses.Filter{MedicineID: q.Get("medicine_id")}

		if v := q.Get("status"); v != "" {
			st := doses.Status(v)
			if !st.Valid() {
				http.Error(w, "unknown status", http.StatusBadRequest)
				return
			}
			filter.Statuses = []doses.Status{st}
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "to must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.To = &t
		}
		if v := q.Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			filter.Limit = parsed
		}

		items, err := dosesSvc.History(r.Context(), claims.UserID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponses(items))
	}
}

func adherenceHandler(dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				http.Error(w, "days must be a positive integer", http.StatusBadRequest)
				return
			}
			days = parsed
		}

		to := time.Now()
		from := to.AddDate(0, 0, -days)

		sum, err := dosesSvc.Summarize(r.Context(), claims.UserID, from, to)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, adherenceResponse{
			From:            sum.From,
			To:              sum.To,
			Total:           sum.Total,
			Taken:           sum.Taken,
			Missed:          sum.Missed,
			Skipped:         sum.Skipped,
			Pending:         sum.Pending,
			AdherenceRate:   sum.AdherenceRate,
			AvgDelayMinutes: sum.AvgDelayMinutes,
		})
	}
}

// ownedDoseKey parsea el doseKey del path y verifica que la dosis pertenezca
// al usuario autenticado. Dosis ajena responde 404, igual que inexistente.
func ownedDoseKey(w http.ResponseWriter, r *http.Request, dosesSvc *doses.Service) (doses.Key, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return doses.Key{}, false
	}

	key, err := doses.ParseKey(chi.URLParam(r, "doseKey"))
	if err != nil {
		http.Error(w, "dose key must be medicineID@RFC3339", http.StatusBadRequest)
		return doses.Key{}, false
	}

	d, err := dosesSvc.Get(r.Context(), key)
	if err != nil || d.UserID != claims.UserID {
		http.Error(w, "not found", http.StatusNotFound)
		return doses.Key{}, false
	}
	return key, true
}

func writeDoseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, doses.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, doses.ErrTerminalStatus), errors.Is(err, doses.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrReminderLimit):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toDoseResponse(d doses.ScheduledDose) doseResponse {
	return doseResponse{
		Key:                 d.Key().String(),
		MedicineID:          d.MedicineID,
		UserID:              d.UserID,
		ScheduledTime:       d.ScheduledTime,
		Status:              string(d.Status),
		RemindersSent:       d.RemindersSent,
		LastReminderTime:    d.LastReminderTime,
		ActualTime:          d.ActualTime,
		DelayMinutes:        d.DelayMinutes,
		Notes:               d.Notes,
		CaregiverNotified:   d.CaregiverNotified,
		CaregiverNotifiedAt: d.CaregiverNotifiedAt,
	}
}

func toDoseResponses(items []doses.ScheduledDose) []doseResponse {
	out := make([]doseResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDoseResponse(d))
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
