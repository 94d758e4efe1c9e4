package medicines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay es un horario del día ya validado.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parsea "HH:MM". El scheduler tolera entradas malformadas
// (las saltea y sigue), por eso el error es un sentinel y no un abort.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}

	return TimeOfDay{Hour: h, Minute: m}, nil
}
