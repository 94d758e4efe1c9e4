package medicines

import "time"

// Medicine es la definición recurrente: qué tomar, a qué horas y entre qué
// fechas. El core la lee; solo el toggle activo/inactivo dispara cancelación
// de timers.
type Medicine struct {
	ID     string
	UserID string

	Name   string
	Dosage string // ej. "500mg", "2 tablets"
	Form   string // ej. "tablet", "liquid"

	Instructions     string
	FoodInstructions string // "with_food", "without_food", ""

	// Times son los horarios del día en formato HH:MM, ordenados.
	Times []string

	StartDate time.Time
	EndDate   *time.Time

	// SnoozeMinutes es el diferimiento por defecto al posponer un
	// recordatorio. MaxReminders acota recordatorios+snoozes por dosis;
	// 0 = sin tope.
	SnoozeMinutes int
	MaxReminders  int

	Active bool
	// Critical marca medicinas de adherencia estricta; la escalación a
	// cuidadores las destaca.
	Critical bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
