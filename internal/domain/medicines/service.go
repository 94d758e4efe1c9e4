package medicines

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

// Listener recibe los cambios de catálogo que afectan al scheduling. El
// reminder engine lo implementa; nil deshabilita las notificaciones (tests).
type Listener interface {
	MedicineScheduled(ctx context.Context, m Medicine)
	MedicineCanceled(ctx context.Context, medicineID string)
}

type Service struct {
	repo     Repository
	listener Listener
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SetListener engancha el engine después de construir ambos (evita el ciclo
// de dependencias en el wiring).
func (s *Service) SetListener(l Listener) {
	s.listener = l
}

type CreateInput struct {
	Name             string
	Dosage           string
	Form             string
	Instructions     string
	FoodInstructions string
	Times            []string
	StartDate        time.Time
	EndDate          *time.Time
	SnoozeMinutes    int
	MaxReminders     int
	Critical         bool
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Medicine, error) {
	if strings.TrimSpace(userID) == "" {
		return Medicine{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Medicine{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return Medicine{}, ErrInvalidInput
	}
	if len(in.Times) == 0 {
		return Medicine{}, ErrInvalidInput
	}
	if in.StartDate.IsZero() {
		return Medicine{}, ErrInvalidInput
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return Medicine{}, ErrInvalidInput
	}

	now := s.now()
	m := Medicine{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             strings.TrimSpace(in.Name),
		Dosage:           strings.TrimSpace(in.Dosage),
		Form:             strings.TrimSpace(in.Form),
		Instructions:     strings.TrimSpace(in.Instructions),
		FoodInstructions: strings.TrimSpace(in.FoodInstructions),
		Times:            normalizeTimes(in.Times),
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		SnoozeMinutes:    in.SnoozeMinutes,
		MaxReminders:     in.MaxReminders,
		Active:           true,
		Critical:         in.Critical,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medicine{}, err
	}

	if s.listener != nil {
		s.listener.MedicineScheduled(ctx, m)
	}
	return m, nil
}

type UpdateInput struct {
	Name          *string
	Dosage        *string
	Instructions  *string
	Times         []string
	EndDate       *time.Time
	SnoozeMinutes *int
	MaxReminders  *int
	Critical      *bool
}

// Update modifica la medicina y re-agenda sus recordatorios.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Medicine, error) {
	m, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medicine{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Medicine{}, ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Dosage != nil {
		m.Dosage = strings.TrimSpace(*in.Dosage)
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if len(in.Times) > 0 {
		m.Times = normalizeTimes(in.Times)
	}
	if in.EndDate != nil {
		m.EndDate = in.EndDate
	}
	if in.SnoozeMinutes != nil {
		m.SnoozeMinutes = *in.SnoozeMinutes
	}
	if in.MaxReminders != nil {
		m.MaxReminders = *in.MaxReminders
	}
	if in.Critical != nil {
		m.Critical = *in.Critical
	}
	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		return Medicine{}, err
	}

	if s.listener != nil && m.Active {
		s.listener.MedicineScheduled(ctx, m)
	}
	return m, nil
}

// Deactivate apaga la medicina y cancela sus timers pendientes. Las dosis ya
// resueltas no se tocan.
func (s *Service) Deactivate(ctx context.Context, id string) (Medicine, error) {
	m, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medicine{}, err
	}

	if m.Active {
		m.Active = false
		m.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, m); err != nil {
			return Medicine{}, err
		}
	}

	if s.listener != nil {
		s.listener.MedicineCanceled(ctx, m.ID)
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medicine, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Medicine, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListActive(ctx context.Context, userID string) ([]Medicine, error) {
	return s.repo.ListActive(ctx, userID)
}

// normalizeTimes recorta espacios, deduplica y ordena. Entradas malformadas
// se conservan: el scheduler las saltea logueando, no es trabajo del catálogo
// rechazarlas.
func normalizeTimes(times []string) []string {
	seen := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
