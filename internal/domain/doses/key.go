package doses

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("invalid dose key")

// Key identifica una dosis de forma única: la medicina más su horario
// programado. Se usa directamente como clave de mapa en el scheduler; la
// forma string existe solo para el borde (API y storage).
type Key struct {
	MedicineID    string
	ScheduledUnix int64
}

// NewKey construye la clave compuesta. El horario se trunca a minutos: dos
// timestamps dentro del mismo minuto son la misma dosis.
func NewKey(medicineID string, scheduledTime time.Time) Key {
	return Key{
		MedicineID:    strings.TrimSpace(medicineID),
		ScheduledUnix: scheduledTime.Truncate(time.Minute).Unix(),
	}
}

// ScheduledTime devuelve el horario programado en UTC.
func (k Key) ScheduledTime() time.Time {
	return time.Unix(k.ScheduledUnix, 0).UTC()
}

// String serializa la clave como "medicineID@RFC3339".
func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.MedicineID, k.ScheduledTime().Format(time.RFC3339))
}

// ParseKey es la inversa de String.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, "@")
	if i <= 0 || i == len(s)-1 {
		return Key{}, ErrInvalidKey
	}

	t, err := time.Parse(time.RFC3339, s[i+1:])
	if err != nil {
		return Key{}, ErrInvalidKey
	}
	return NewKey(s[:i], t), nil
}
