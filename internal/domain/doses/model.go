package doses

import "time"

// ScheduledDose es una instancia concreta de una medicina que debe tomarse en
// un horario puntual. La crea el scheduler al materializar el horizonte y solo
// la muta el engine; una vez en estado terminal queda inmutable.
type ScheduledDose struct {
	MedicineID string
	UserID     string

	// ScheduledTime nunca cambia después de la creación.
	ScheduledTime time.Time

	Status Status

	// RemindersSent es monótono: +1 por cada recordatorio disparado o snooze
	// armado, nunca decrece.
	RemindersSent    int
	LastReminderTime *time.Time

	// ActualTime y DelayMinutes solo se setean al confirmar como taken.
	ActualTime   *time.Time
	DelayMinutes int

	// Notes guarda la razón cuando el usuario saltea la dosis.
	Notes string

	// CaregiverNotified pasa de false a true a lo sumo una vez.
	CaregiverNotified   bool
	CaregiverNotifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key devuelve la clave compuesta de la dosis.
func (d ScheduledDose) Key() Key {
	return NewKey(d.MedicineID, d.ScheduledTime)
}
