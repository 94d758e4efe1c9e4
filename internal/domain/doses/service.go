package doses

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return NewServiceWithClock(repo, time.Now)
}

// NewServiceWithClock inyecta el reloj; lo usan los tests.
func NewServiceWithClock(repo Repository, now func() time.Time) *Service {
	return &Service{
		repo: repo,
		now:  now,
	}
}

// Get devuelve una dosis por su clave compuesta.
func (s *Service) Get(ctx context.Context, key Key) (ScheduledDose, error) {
	if key.MedicineID == "" {
		return ScheduledDose{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, key)
}

// Upcoming lista las dosis pendientes del usuario dentro de las próximas
// `hours` horas, ordenadas por horario.
func (s *Service) Upcoming(ctx context.Context, userID string, hours int) ([]ScheduledDose, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	if hours <= 0 {
		hours = 24
	}

	now := s.now()
	to := now.Add(time.Duration(hours) * time.Hour)

	out, err := s.repo.Query(ctx, Filter{
		UserID:   userID,
		Statuses: []Status{StatusPending, StatusReminded},
		From:     &now,
		To:       &to,
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out, nil
}

// History devuelve el log de adherencia del usuario con filtros opcionales.
func (s *Service) History(ctx context.Context, userID string, filter Filter) ([]ScheduledDose, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	filter.UserID = userID

	out, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Más reciente primero, como el historial clínico.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.After(out[j].ScheduledTime)
	})
	return out, nil
}

// Summary son las métricas de adherencia de un período.
type Summary struct {
	From, To time.Time

	Total   int
	Taken   int
	Missed  int
	Skipped int
	Pending int

	// AdherenceRate = taken / (taken+missed+skipped), en [0,1].
	AdherenceRate float64

	// AvgDelayMinutes promedia el atraso de las dosis tomadas.
	AvgDelayMinutes float64
}

// Summarize agrega las dosis resueltas del usuario entre from y to.
func (s *Service) Summarize(ctx context.Context, userID string, from, to time.Time) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, ErrInvalidInput
	}

	all, err := s.repo.Query(ctx, Filter{
		UserID: userID,
		From:   &from,
		To:     &to,
	})
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{From: from, To: to}
	delayTotal := 0

	for _, d := range all {
		sum.Total++
		switch d.Status {
		case StatusTaken:
			sum.Taken++
			delayTotal += d.DelayMinutes
		case StatusMissed:
			sum.Missed++
		case StatusSkipped:
			sum.Skipped++
		default:
			sum.Pending++
		}
	}

	if resolved := sum.Taken + sum.Missed + sum.Skipped; resolved > 0 {
		sum.AdherenceRate = float64(sum.Taken) / float64(resolved)
	}
	if sum.Taken > 0 {
		sum.AvgDelayMinutes = float64(delayTotal) / float64(sum.Taken)
	}
	return sum, nil
}
