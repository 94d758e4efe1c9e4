package caregivers

import "time"

// Caregiver es un contacto que recibe escalaciones y reportes de adherencia
// de un usuario.
type Caregiver struct {
	ID     string
	UserID string

	Name         string
	Relationship string // ej. "daughter", "nurse"

	Email string
	Phone string

	// Preferencias de notificación por canal.
	NotifyByEmail bool
	NotifyBySMS   bool

	CreatedAt time.Time
}
