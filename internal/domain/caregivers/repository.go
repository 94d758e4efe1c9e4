package caregivers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("caregiver not found")

type Repository interface {
	Create(ctx context.Context, c Caregiver) error
	GetByID(ctx context.Context, id string) (Caregiver, error)
	ListByUser(ctx context.Context, userID string) ([]Caregiver, error)
	Delete(ctx context.Context, id string) error
}
