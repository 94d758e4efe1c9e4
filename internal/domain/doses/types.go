package doses

// Status es el estado de una dosis dentro de su ciclo de vida.
// Pending y Reminded son estados vivos; Taken, Missed y Skipped son terminales.
// @Enum pending, reminded, taken, missed, skipped
type Status string

const (
	StatusPending  Status = "pending"
	StatusReminded Status = "reminded"
	StatusTaken    Status = "taken"
	StatusMissed   Status = "missed"
	StatusSkipped  Status = "skipped"
)

// Terminal indica si el estado ya no admite transiciones.
func (s Status) Terminal() bool {
	switch s {
	case StatusTaken, StatusMissed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Valid reporta si s es uno de los estados conocidos.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReminded, StatusTaken, StatusMissed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Outcome es el resultado que reporta el usuario al confirmar una dosis.
// @Enum taken, skipped
type Outcome string

const (
	OutcomeTaken   Outcome = "taken"
	OutcomeSkipped Outcome = "skipped"
)
