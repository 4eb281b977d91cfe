// Package clock provee el "ahora" y la zona horaria de referencia a los
// servicios. Nada del dominio lee el reloj de pared directamente.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type system struct {
	loc *time.Location
}

// New devuelve un reloj de sistema que reporta la hora en loc (UTC si nil).
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return system{loc: loc}
}

func (s system) Now() time.Time           { return time.Now().In(s.loc) }
func (s system) Location() *time.Location { return s.loc }

// Fixed es un reloj manual para tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// StartOfDay trunca t a la medianoche de su día en loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

const DateLayout = "2006-01-02"

// DateKey formatea el día calendario de t en loc como YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// CalendarDay devuelve la medianoche en loc del día calendario que t ya
// representa (año, mes y día de t sin convertir de zona). Sirve para fechas
// sin hora, como las columnas DATE, que llegan como medianoche UTC.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
