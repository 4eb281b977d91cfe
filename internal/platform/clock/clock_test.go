package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDayAndDateKey_UseReferenceZone(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	// 02:30 UTC del 11 es todavía el 10 en Bogotá
	at := time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-10", DateKey(at, bogota))
	assert.Equal(t, "2026-03-11", DateKey(at, time.UTC))

	sod := StartOfDay(at, bogota)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, bogota), sod)
}

func TestFixed(t *testing.T) {
	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, time.UTC, c.Location())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestNew_DefaultsToUTC(t *testing.T) {
	c := New(nil)
	assert.Equal(t, time.UTC, c.Location())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestCalendarDay_KeepsDateAcrossZones(t *testing.T) {
	art := time.FixedZone("ART", -3*60*60)

	// un DATE leído de la base llega como medianoche UTC
	stored := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, art), CalendarDay(stored, art))
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, art), StartOfDay(stored, art))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), CalendarDay(stored, nil))
}
