package market

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
)

// A-share holidays by year, compact YYYYMMDD. Weekend days of a holiday
// stretch are listed too; the calendar excludes weekends regardless.
var holidaysByYear = map[int]map[string]struct{}{
	2024: toSet([]string{
		// New Year
		"20240101",
		// Spring Festival
		"20240210", "20240212", "20240213", "20240214", "20240215", "20240216",
		"20240217",
		// Qingming
		"20240404", "20240405", "20240406",
		// Labour Day
		"20240501", "20240502", "20240503", "20240504", "20240505",
		// Dragon Boat
		"20240610",
		// Mid-Autumn
		"20240915", "20240916", "20240917",
		// National Day
		"20241001", "20241002", "20241003", "20241004", "20241005",
		"20241006", "20241007",
	}),
}

func toSet(dates []string) map[string]struct{} {
	s := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// HolidaysForYear returns the configured holiday set for year. Years
// without data log a warning and return an empty set, so calendars degrade
// to weekday-only.
func HolidaysForYear(year int, log zerolog.Logger) map[string]struct{} {
	if holidays, ok := holidaysByYear[year]; ok {
		return holidays
	}
	log.Warn().Int("year", year).Msg("No holiday data configured, calendar falls back to weekdays only")
	return map[string]struct{}{}
}

// TradingCalendar is the ordered list of trading days in a date range.
type TradingCalendar struct {
	days []time.Time
}

// ParseCompactDate parses "YYYYMMDD" or "YYYY-MM-DD" in the A-share
// timezone.
func ParseCompactDate(s string) (time.Time, error) {
	layout := "20060102"
	if len(s) == 10 {
		layout = "2006-01-02"
	}
	t, err := time.ParseInLocation(layout, s, clock.ChinaTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// CompactDate formats t as "YYYYMMDD".
func CompactDate(t time.Time) string {
	return t.Format("20060102")
}

// BuildTradingCalendar enumerates trading days in [start, end] (compact
// dates, inclusive), excluding weekends and, when filterHolidays is set,
// the configured holiday dates.
func BuildTradingCalendar(startDate, endDate string, filterHolidays bool, log zerolog.Logger) (*TradingCalendar, error) {
	start, err := ParseCompactDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseCompactDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("calendar range %s..%s: end before start", startDate, endDate)
	}

	holidays := make(map[int]map[string]struct{})
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if filterHolidays {
			year := d.Year()
			if _, ok := holidays[year]; !ok {
				holidays[year] = HolidaysForYear(year, log)
			}
			if _, isHoliday := holidays[year][CompactDate(d)]; isHoliday {
				continue
			}
		}
		days = append(days, d)
	}

	return &TradingCalendar{days: days}, nil
}

// Days returns the trading days in order.
func (c *TradingCalendar) Days() []time.Time {
	return c.days
}

// Len returns the number of trading days.
func (c *TradingCalendar) Len() int {
	return len(c.days)
}

// Day returns the trading day at index i.
func (c *TradingCalendar) Day(i int) time.Time {
	return c.days[i]
}

// Contains reports whether date (compact) is a trading day in the range.
func (c *TradingCalendar) Contains(date string) bool {
	for _, d := range c.days {
		if CompactDate(d) == date {
			return true
		}
	}
	return false
}
