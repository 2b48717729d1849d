package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeIntervalContains(t *testing.T) {
	day := func(hour, minute int) time.Time {
		return time.Date(2024, 5, 16, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		interval TimeInterval
		at       time.Time
		expected bool
	}{
		{
			name:     "inside plain interval",
			interval: TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
			at:       day(11, 30),
			expected: true,
		},
		{
			name:     "start is inclusive",
			interval: TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
			at:       day(11, 0),
			expected: true,
		},
		{
			name:     "end is exclusive",
			interval: TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
			at:       day(12, 0),
			expected: false,
		},
		{
			name:     "wrapping interval before midnight",
			interval: TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
			at:       day(22, 0),
			expected: true,
		},
		{
			name:     "wrapping interval after midnight",
			interval: TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
			at:       day(3, 0),
			expected: true,
		},
		{
			name:     "wrapping interval daytime",
			interval: TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
			at:       day(12, 0),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.interval.Contains(tt.at))
		})
	}
}

func TestTimeIntervalDuration(t *testing.T) {
	plain := TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour}
	assert.Equal(t, time.Hour, plain.Duration())

	wrapping := TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour}
	assert.Equal(t, 12*time.Hour, wrapping.Duration())
}

func TestTimeIntervalEndOn(t *testing.T) {
	offShift := TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour}

	// Inside the evening part: the end is tomorrow morning.
	evening := time.Date(2024, 5, 16, 21, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 17, 7, 0, 0, 0, time.UTC), offShift.EndOn(evening))

	// Inside the morning part: the end is this morning.
	morning := time.Date(2024, 5, 17, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 17, 7, 0, 0, 0, time.UTC), offShift.EndOn(morning))
}

func TestTimeIntervalOverlaps(t *testing.T) {
	breakIv := TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour}
	toolbox := TimeInterval{Start: 7 * time.Hour, End: 8 * time.Hour}
	offShift := TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour}

	assert.False(t, breakIv.Overlaps(toolbox))
	assert.False(t, breakIv.Overlaps(offShift))
	assert.False(t, toolbox.Overlaps(offShift))

	lateToolbox := TimeInterval{Start: 6 * time.Hour, End: 8 * time.Hour}
	assert.True(t, lateToolbox.Overlaps(offShift))
}

func TestNewPeriods(t *testing.T) {
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	periods := NewPeriods(3, start)

	require.Len(t, periods, 3)
	assert.Equal(t, 0, periods[0].ID)
	assert.Equal(t, start, periods[0].Start)
	assert.Equal(t, start.Add(PeriodLength), periods[0].End)
	assert.Equal(t, periods[0].End, periods[1].Start)
	assert.True(t, periods[0].Before(periods[1]))
}

func TestDateToPeriod(t *testing.T) {
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	periods := NewPeriods(3, start)

	assert.Equal(t, 0, DateToPeriod(periods, start.Add(24*time.Hour)).ID)
	assert.Equal(t, 1, DateToPeriod(periods, start.Add(15*24*time.Hour)).ID)

	// Dates before the horizon fall back to the first period.
	assert.Equal(t, 0, DateToPeriod(periods, start.Add(-48*time.Hour)).ID)

	// Dates beyond the horizon clamp to the last period.
	assert.Equal(t, 2, DateToPeriod(periods, start.Add(200*24*time.Hour)).ID)
}

func TestWorkerValidate(t *testing.T) {
	worker := Worker{
		ID:        NewWorkerID(AssetDF, 1),
		Asset:     AssetDF,
		Resources: []Resource{MtnMech},
		Availability: Availability{
			Start:  time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
			Finish: time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC),
		},
		Break:    TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
		OffShift: TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
		Toolbox:  TimeInterval{Start: 7 * time.Hour, End: 8 * time.Hour},
	}
	assert.NoError(t, worker.Validate())
	assert.Equal(t, AssetDF, worker.ID.AssetOf())

	overlapping := worker
	overlapping.Toolbox = TimeInterval{Start: 11*time.Hour + 30*time.Minute, End: 13 * time.Hour}
	assert.Error(t, overlapping.Validate())

	noCrafts := worker
	noCrafts.Resources = nil
	assert.Error(t, noCrafts.Validate())
}
