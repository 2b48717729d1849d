package types

import (
	"fmt"
	"time"
)

// PeriodLength is the length of a strategic scheduling bucket.
const PeriodLength = 14 * 24 * time.Hour

// Period is a two-week half-open interval [Start, End). Periods are
// totally ordered by ID; the strategic horizon is a prefix of the
// published period list.
type Period struct {
	ID    int       `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriods builds n consecutive two-week periods starting at start.
func NewPeriods(n int, start time.Time) []Period {
	periods := make([]Period, n)
	for i := 0; i < n; i++ {
		periods[i] = Period{
			ID:    i,
			Start: start.Add(time.Duration(i) * PeriodLength),
			End:   start.Add(time.Duration(i+1) * PeriodLength),
		}
	}
	return periods
}

// ContainsDate reports whether t falls inside the period.
func (p Period) ContainsDate(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Before orders periods by id.
func (p Period) Before(other Period) bool {
	return p.ID < other.ID
}

// String renders the period for logs and API responses.
func (p Period) String() string {
	return fmt.Sprintf("P%03d[%s..%s)", p.ID,
		p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// DateToPeriod finds the period containing date. Dates before the horizon
// map to the first period; work orders do not age out of the plan.
func DateToPeriod(periods []Period, date time.Time) Period {
	for _, p := range periods {
		if p.ContainsDate(date) {
			return p
		}
	}
	if len(periods) > 0 && !date.Before(periods[len(periods)-1].End) {
		return periods[len(periods)-1]
	}
	return periods[0]
}

// PeriodsBetween returns the signed number of periods from a to b.
func PeriodsBetween(a, b Period) int {
	return b.ID - a.ID
}

// Day is one tactical scheduling slot: an index plus a calendar date at
// midnight UTC. The tactical horizon is a prefix of days aligned to the
// first strategic period.
type Day struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
}

// NewDays builds n consecutive days starting at start's calendar date.
func NewDays(n int, start time.Time) []Day {
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]Day, n)
	for i := 0; i < n; i++ {
		days[i] = Day{Index: i, Date: midnight.Add(time.Duration(i) * 24 * time.Hour)}
	}
	return days
}

// TimeInterval is a recurring daily interval [Start, End) expressed as
// time-of-day offsets from midnight. End at or before Start wraps past
// midnight, as in an off-shift of 19:00..07:00.
type TimeInterval struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// NewTimeInterval validates the offsets and builds the interval.
func NewTimeInterval(start, end time.Duration) (TimeInterval, error) {
	day := 24 * time.Hour
	if start < 0 || start >= day || end < 0 || end > day {
		return TimeInterval{}, fmt.Errorf("time interval offsets out of range: start=%s end=%s", start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Wraps reports whether the interval crosses midnight.
func (iv TimeInterval) Wraps() bool {
	return iv.End <= iv.Start
}

// Duration returns the length of the interval, wrap-aware.
func (iv TimeInterval) Duration() time.Duration {
	if iv.Wraps() {
		return 24*time.Hour - iv.Start + iv.End
	}
	return iv.End - iv.Start
}

// TimeOfDay returns t's offset from its UTC midnight.
func TimeOfDay(t time.Time) time.Duration {
	u := t.UTC()
	return time.Duration(u.Hour())*time.Hour +
		time.Duration(u.Minute())*time.Minute +
		time.Duration(u.Second())*time.Second +
		time.Duration(u.Nanosecond())
}

// Contains reports whether t's time of day falls inside the interval.
func (iv TimeInterval) Contains(t time.Time) bool {
	tod := TimeOfDay(t)
	if iv.Wraps() {
		return tod >= iv.Start || tod < iv.End
	}
	return tod >= iv.Start && tod < iv.End
}

// UntilStart is the naive delta from t's time of day to the interval
// start. Negative once the start has passed on t's calendar day.
func (iv TimeInterval) UntilStart(t time.Time) time.Duration {
	return iv.Start - TimeOfDay(t)
}

// EndOn resolves the interval's end to an absolute timestamp for a moment
// t inside the interval. When the end-of-interval time of day has already
// passed, the end lies on the next calendar day.
func (iv TimeInterval) EndOn(t time.Time) time.Time {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	end := midnight.Add(iv.End)
	if iv.End < TimeOfDay(t) {
		end = end.Add(24 * time.Hour)
	}
	return end
}

// Overlaps reports whether the two daily intervals intersect.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	for _, a := range iv.segments() {
		for _, b := range other.segments() {
			if a[0] < b[1] && b[0] < a[1] {
				return true
			}
		}
	}
	return false
}

// segments splits the interval into linear [start, end) pieces within a
// single day, two pieces when it wraps midnight.
func (iv TimeInterval) segments() [][2]time.Duration {
	day := 24 * time.Hour
	if iv.Wraps() {
		return [][2]time.Duration{{iv.Start, day}, {0, iv.End}}
	}
	return [][2]time.Duration{{iv.Start, iv.End}}
}

// Availability is the calendar window during which a worker may be
// scheduled.
type Availability struct {
	Start  time.Time `json:"start"`
	Finish time.Time `json:"finish"`
}

// Duration returns the length of the availability window.
func (a Availability) Duration() time.Duration {
	return a.Finish.Sub(a.Start)
}

// Contains reports whether t falls inside the window.
func (a Availability) Contains(t time.Time) bool {
	return !t.Before(a.Start) && t.Before(a.Finish)
}
