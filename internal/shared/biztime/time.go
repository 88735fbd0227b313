// Package biztime holds the business timezone (Asia/Shanghai by default).
// "Today", upstream dates and schedule hours are all business-timezone
// concepts; storage stays in UTC.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultTimezone = "Asia/Shanghai"

	// DateLayout is the YYYY-MM-DD form used by the upstream API and the exchange_rates table.
	DateLayout = "2006-01-02"
)

var (
	bizLocation *time.Location
	locMu       sync.RWMutex
)

// Init sets the business timezone. An empty tz selects Asia/Shanghai.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return err
	}
	locMu.Lock()
	bizLocation = loc
	locMu.Unlock()
	return nil
}

func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone, initializing the default on first use.
func Location() *time.Location {
	locMu.RLock()
	loc := bizLocation
	locMu.RUnlock()
	if loc != nil {
		return loc
	}
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
	}
	return Location()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// DateOf returns the business-timezone calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}

// Today returns the current business date as YYYY-MM-DD.
func Today() string {
	return DateOf(time.Now())
}

// ParseDate parses YYYY-MM-DD as midnight in the business timezone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay returns business-timezone midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	b := t.In(Location())
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, Location())
}

// FormatInBizTimezone formats t in the business timezone.
func FormatInBizTimezone(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

// Days lists every calendar date from..to inclusive as YYYY-MM-DD.
// It returns nil when from is after to.
func Days(from, to time.Time) []string {
	start, end := StartOfDay(from), StartOfDay(to)
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}
