package medications

import (
	"errors"
	"testing"
	"time"

	"care-connect/internal/domain/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: TimeOfDay{8, 0}},
		{in: "8:05", want: TimeOfDay{8, 5}},
		{in: " 23:59 ", want: TimeOfDay{23, 59}},
		{in: "24:00", wantErr: true},
		{in: "8am", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			assert.True(t, errors.Is(err, apperr.ErrConfiguration), "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseTiming_DedupesAndKeepsOrder(t *testing.T) {
	got, err := normalizeTiming([]string{"20:00", "8:00", "20:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"20:00", "08:00"}, got)

	_, err = ParseTiming(nil)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestTimeOfDay_OnUsesLocationCalendarDay(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	// 01:00 UTC del 2 de marzo todavía es 1 de marzo en ART.
	day := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	got := TimeOfDay{Hour: 8}.On(day, loc)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, loc), got)
}
