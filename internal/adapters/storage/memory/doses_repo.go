package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
)

type dosesRepo struct {
	mu    sync.RWMutex
	byKey map[doses.Key]doses.ScheduledDose
}

func NewDosesRepo() doses.Repository {
	return &dosesRepo{
		byKey: make(map[doses.Key]doses.ScheduledDose),
	}
}

func (r *dosesRepo) Create(ctx context.Context, d doses.ScheduledDose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := d.Key()
	if key.MedicineID == "" {
		return doses.ErrNotFound
	}
	if _, exists := r.byKey[key]; exists {
		return doses.ErrAlreadyExists
	}

	r.byKey[key] = d
	return nil
}

func (r *dosesRepo) Get(ctx context.Context, key doses.Key) (doses.ScheduledDose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byKey[key]
	if !ok {
		return doses.ScheduledDose{}, doses.ErrNotFound
	}
	return d, nil
}

func (r *dosesRepo) Update(ctx context.Context, d doses.ScheduledDose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := d.Key()
	if _, ok := r.byKey[key]; !ok {
		return doses.ErrNotFound
	}
	r.byKey[key] = d
	return nil
}

func (r *dosesRepo) Query(ctx context.Context, filter doses.Filter) ([]doses.ScheduledDose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.ScheduledDose, 0)

	for _, d := range r.byKey {
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		if filter.MedicineID != "" && d.MedicineID != filter.MedicineID {
			continue
		}

		if len(filter.Statuses) > 0 {
			ok := false
			for _, st := range filter.Statuses {
				if d.Status == st {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}

		if filter.From != nil && d.ScheduledTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.ScheduledTime.After(*filter.To) {
			continue
		}

		out = append(out, d)
	}

	// Mismo contrato que los adapters SQL: descendente, Limit = las N más
	// recientes.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.After(out[j].ScheduledTime)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}
