package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
)

type caregiversRepo struct {
	mu   sync.RWMutex
	byID map[string]caregivers.Caregiver
}

func NewCaregiversRepo() caregivers.Repository {
	return &caregiversRepo{
		byID: make(map[string]caregivers.Caregiver),
	}
}

func (r *caregiversRepo) Create(ctx context.Context, c caregivers.Caregiver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("caregiver id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("caregiver already exists")
	}

	r.byID[c.ID] = c
	return nil
}

func (r *caregiversRepo) GetByID(ctx context.Context, id string) (caregivers.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return caregivers.Caregiver{}, caregivers.ErrNotFound
	}
	return c, nil
}

func (r *caregiversRepo) ListByUser(ctx context.Context, userID string) ([]caregivers.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregivers.Caregiver, 0)
	for _, c := range r.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *caregiversRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return caregivers.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
