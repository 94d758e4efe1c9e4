package medicines

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
	r.Route("/medicines", func(mr chi.Router) {
		mr.Post("/", createMedicineHandler(svc))
		mr.Get("/", listMedicinesHandler(svc))
		mr.Get("/{medicineID}", getMedicineHandler(svc))
		mr.Patch("/{medicineID}", updateMedicineHandler(svc))

		// DELETE desactiva, no borra: el historial de adherencia se conserva.
		mr.Delete("/{medicineID}", deactivateMedicineHandler(svc))
	})
}

type createMedicineRequest struct {
	Name             string   `json:"name"`
	Dosage           string   `json:"dosage"`
	Form             string   `json:"form"`
	Instructions     string   `json:"instructions"`
	FoodInstructions string   `json:"food_instructions"`
	Times            []string `json:"times"`      // HH:MM, 24h
	StartDate        string   `json:"start_date"` // YYYY-MM-DD
	EndDate          string   `json:"end_date"`   // YYYY-MM-DD opcional
	SnoozeMinutes    int      `json:"snooze_minutes"`
	MaxReminders     int      `json:"max_reminders"`
	Critical         bool     `json:"critical"`
}

type updateMedicineRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name          *string  `json:"name"`
	Dosage        *string  `json:"dosage"`
	Instructions  *string  `json:"instructions"`
	Times         []string `json:"times"`
	EndDate       *string  `json:"end_date"` // YYYY-MM-DD
	SnoozeMinutes *int     `json:"snooze_minutes"`
	MaxReminders  *int     `json:"max_reminders"`
	Critical      *bool    `json:"critical"`
}

type medicineResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"name"`
	Dosage           string     `json:"dosage"`
	Form             string     `json:"form"`
	Instructions     string     `json:"instructions"`
	FoodInstructions string     `json:"food_instructions"`
	Times            []string   `json:"times"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	SnoozeMinutes    int        `json:"snooze_minutes"`
	MaxReminders     int        `json:"max_reminders"`
	Active           bool       `json:"active"`
	Critical         bool       `json:"critical"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func createMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		start, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
		if err != nil {
			http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		var end *time.Time
		if strings.TrimSpace(req.EndDate) != "" {
			t, err := time.Parse("2006-01-02", req.EndDate)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:             req.Name,
			Dosage:           req.Dosage,
			Form:             req.Form,
			Instructions:     req.Instructions,
			FoodInstructions: req.FoodInstructions,
			Times:            req.Times,
			StartDate:        start,
			EndDate:          end,
			SnoozeMinutes:    req.SnoozeMinutes,
			MaxReminders:     req.MaxReminders,
			Critical:         req.Critical,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicineResponse(m))
	}
}

func listMedicinesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var (
			items []Medicine
			err   error
		)
		if r.URL.Query().Get("active") == "true" {
			items, err = svc.ListActive(r.Context(), claims.UserID)
		} else {
			items, err = svc.ListByUser(r.Context(), claims.UserID)
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicineResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicineResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicineID"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if m.UserID != claims.UserID {
			// No filtramos "existe pero no es tuyo": mismo 404.
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func updateMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "medicineID")
		current, err := svc.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if current.UserID != claims.UserID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req updateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:          req.Name,
			Dosage:        req.Dosage,
			Instructions:  req.Instructions,
			Times:         req.Times,
			SnoozeMinutes: req.SnoozeMinutes,
			MaxReminders:  req.MaxReminders,
			Critical:      req.Critical,
		}
		if req.EndDate != nil {
			t, err := time.Parse("2006-01-02", *req.EndDate)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.EndDate = &t
		}

		m, err := svc.Update(r.Context(), id, in)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func deactivateMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "medicineID")
		current, err := svc.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if current.UserID != claims.UserID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		m, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func toMedicineResponse(m Medicine) medicineResponse {
	return medicineResponse{
		ID:               m.ID,
		UserID:           m.UserID,
		Name:             m.Name,
		Dosage:           m.Dosage,
		Form:             m.Form,
		Instructions:     m.Instructions,
		FoodInstructions: m.FoodInstructions,
		Times:            m.Times,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		SnoozeMinutes:    m.SnoozeMinutes,
		MaxReminders:     m.MaxReminders,
		Active:           m.Active,
		Critical:         m.Critical,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
