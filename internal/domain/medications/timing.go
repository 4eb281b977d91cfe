package medications

import (
	"fmt"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
)

// TimeOfDay es un slot de toma dentro del día.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On devuelve el instante del slot en el día calendario de `day` (en loc).
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// ParseTimeOfDay acepta "H:MM" o "HH:MM" en formato 24h.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	raw := strings.TrimSpace(s)
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return TimeOfDay{}, apperr.Newf(apperr.ErrConfiguration, "invalid timing %q: expected HH:MM", s)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// ParseTiming valida y normaliza la lista completa. Conserva el orden y
// descarta duplicados.
func ParseTiming(timing []string) ([]TimeOfDay, error) {
	if len(timing) == 0 {
		return nil, apperr.New(apperr.ErrConfiguration, "timing must have at least one entry")
	}
	out := make([]TimeOfDay, 0, len(timing))
	seen := map[TimeOfDay]struct{}{}
	for _, s := range timing {
		t, err := ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func normalizeTiming(timing []string) ([]string, error) {
	slots, err := ParseTiming(timing)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(slots))
	for _, t := range slots {
		out = append(out, t.String())
	}
	return out, nil
}
