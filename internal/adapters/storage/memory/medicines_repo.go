package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
)

type medicinesRepo struct {
	mu   sync.RWMutex
	byID map[string]medicines.Medicine
}

func NewMedicinesRepo() medicines.Repository {
	return &medicinesRepo{
		byID: make(map[string]medicines.Medicine),
	}
}

func (r *medicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errors.New("medicine id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medicine already exists")
	}

	r.byID[m.ID] = m
	return nil
}

func (r *medicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; !ok {
		return medicines.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, nil
}

func (r *medicinesRepo) ListByUser(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sortMedicines(out)
	return out, nil
}

func (r *medicinesRepo) ListActive(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if !m.Active {
			continue
		}
		if userID != "" && m.UserID != userID {
			continue
		}
		out = append(out, m)
	}
	sortMedicines(out)
	return out, nil
}

// Orden estable por creación (útil en tests).
func sortMedicines(ms []medicines.Medicine) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}
