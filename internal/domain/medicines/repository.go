package medicines

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("medicine not found")

type Repository interface {
	Create(ctx context.Context, m Medicine) error
	Update(ctx context.Context, m Medicine) error
	GetByID(ctx context.Context, id string) (Medicine, error)
	ListByUser(ctx context.Context, userID string) ([]Medicine, error)

	// ListActive devuelve las medicinas activas; con userID vacío, las de
	// todos los usuarios (lo usa el loop de extensión de horizonte).
	ListActive(ctx context.Context, userID string) ([]Medicine, error)
}
