package caregivers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/caregivers", func(cr chi.Router) {
		cr.Post("/", createCaregiverHandler(svc))
		cr.Get("/", listCaregiversHandler(svc))
		cr.Delete("/{caregiverID}", deleteCaregiverHandler(svc))
	})
}

type createCaregiverRequest struct {
	Name          string `json:"name"`
	Relationship  string `json:"relationship"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	NotifyByEmail bool   `json:"notify_by_email"`
	NotifyBySMS   bool   `json:"notify_by_sms"`
}

type caregiverResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Relationship  string    `json:"relationship"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	NotifyByEmail bool      `json:"notify_by_email"`
	NotifyBySMS   bool      `json:"notify_by_sms"`
	CreatedAt     time.Time `json:"created_at"`
}

func createCaregiverHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createCaregiverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:          req.Name,
			Relationship:  req.Relationship,
			Email:         req.Email,
			Phone:         req.Phone,
			NotifyByEmail: req.NotifyByEmail,
			NotifyBySMS:   req.NotifyBySMS,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toCaregiverResponse(c))
	}
}

func listCaregiversHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]caregiverResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCaregiverResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteCaregiverHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "caregiverID")
		c, err := svc.repo.GetByID(r.Context(), id)
		if err != nil || c.UserID != claims.UserID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toCaregiverResponse(c Caregiver) caregiverResponse {
	return caregiverResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		Name:          c.Name,
		Relationship:  c.Relationship,
		Email:         c.Email,
		Phone:         c.Phone,
		NotifyByEmail: c.NotifyByEmail,
		NotifyBySMS:   c.NotifyBySMS,
		CreatedAt:     c.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
