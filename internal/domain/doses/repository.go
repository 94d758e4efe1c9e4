package doses

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("dose not found")
	ErrAlreadyExists = errors.New("dose already exists")
)

// Repository es el registro durable de dosis (adherence store). El core lo
// consume por interfaz; los adapters viven en internal/adapters/storage.
type Repository interface {
	Create(ctx context.Context, d ScheduledDose) error
	Get(ctx context.Context, key Key) (ScheduledDose, error)
	Update(ctx context.Context, d ScheduledDose) error
	Query(ctx context.Context, filter Filter) ([]ScheduledDose, error)
}

// Filter acota Query. Campos en cero se ignoran. Los resultados vienen
// ordenados por scheduled_time descendente; Limit recorta a las N dosis más
// recientes.
type Filter struct {
	UserID     string
	MedicineID string
	Statuses   []Status
	From       *time.Time
	To         *time.Time
	Limit      int
}
