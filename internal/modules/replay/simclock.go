package replay

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/market"
)

// A-share session boundaries, minutes from midnight.
const (
	morningOpen   = 9*60 + 30
	morningClose  = 11*60 + 30
	afternoonOpen = 13 * 60
	dayClose      = 15 * 60
)

// SimulationClock is a stateful cursor over the trading calendar. Daily
// granularity steps whole trading days; intraday granularities step within
// the 09:30-11:30 / 13:00-15:00 sessions, jump the lunch break, and roll to
// the next trading day's open past the close.
type SimulationClock struct {
	calendar    *market.TradingCalendar
	granularity Granularity
	index       int
	current     time.Time
}

// NewSimulationClock builds the calendar for [startDate, endDate] (compact
// dates) and positions the cursor at the first trading day (09:30 when
// intraday).
func NewSimulationClock(startDate, endDate string, granularity Granularity, filterHolidays bool, log zerolog.Logger) (*SimulationClock, error) {
	if !granularity.valid() {
		return nil, fmt.Errorf("unknown granularity %q", granularity)
	}
	calendar, err := market.BuildTradingCalendar(startDate, endDate, filterHolidays, log)
	if err != nil {
		return nil, err
	}
	if calendar.Len() == 0 {
		return nil, fmt.Errorf("no trading days in %s..%s", startDate, endDate)
	}

	c := &SimulationClock{calendar: calendar, granularity: granularity}
	c.Reset()

	log.Info().
		Str("start", startDate).
		Str("end", endDate).
		Str("granularity", string(granularity)).
		Int("trading_days", calendar.Len()).
		Msg("Simulation clock initialized")
	return c, nil
}

// Current returns the cursor instant.
func (c *SimulationClock) Current() time.Time { return c.current }

// Calendar returns the underlying trading calendar.
func (c *SimulationClock) Calendar() *market.TradingCalendar { return c.calendar }

// Now implements clock.Clock so the chain's time rules follow the simulated
// instant. loc is ignored; the cursor is already market-local.
func (c *SimulationClock) Now(_ *time.Location) time.Time {
	return c.current
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sessionOpen(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, clock.ChinaTZ)
}

// Advance moves the cursor n steps forward and returns the new instant.
func (c *SimulationClock) Advance(n int) time.Time {
	if c.granularity.IsDaily() {
		c.index = min(c.index+n, c.calendar.Len()-1)
		c.current = c.calendar.Day(c.index)
		return c.current
	}
	c.advanceMinutes(n)
	return c.current
}

func (c *SimulationClock) advanceMinutes(steps int) {
	next := c.current.Add(time.Duration(c.granularity.Minutes()*steps) * time.Minute)

	// Crossing midnight or the afternoon close rolls to the next trading
	// day's open.
	if next.Day() != c.current.Day() || minutesOfDay(next) > dayClose {
		c.index = min(c.index+1, c.calendar.Len()-1)
		c.current = sessionOpen(c.calendar.Day(c.index))
		return
	}

	// A step out of the morning session lands at the afternoon open.
	if minutesOfDay(c.current) < afternoonOpen && minutesOfDay(next) >= morningClose {
		day := c.current
		c.current = time.Date(day.Year(), day.Month(), day.Day(), 13, 0, 0, 0, clock.ChinaTZ)
		return
	}

	c.current = next
}

// HasNext reports whether another tick exists: daily, more calendar entries;
// intraday, either more days or time left before today's close.
func (c *SimulationClock) HasNext() bool {
	if c.granularity.IsDaily() {
		return c.index < c.calendar.Len()-1
	}
	if c.index < c.calendar.Len()-1 {
		return true
	}
	return minutesOfDay(c.current) < dayClose
}

// IsTradingTime reports whether the cursor is inside a trading session.
// Daily granularity is always coarse-true.
func (c *SimulationClock) IsTradingTime() bool {
	if c.granularity.IsDaily() {
		return true
	}
	m := minutesOfDay(c.current)
	return (m >= morningOpen && m < morningClose) || (m >= afternoonOpen && m < dayClose)
}

// TimeToClose returns seconds to the end of the current half-session (11:30
// in the morning, 15:00 in the afternoon), or -1 outside both.
func (c *SimulationClock) TimeToClose() int {
	if !c.IsTradingTime() {
		return -1
	}
	closeMinutes := dayClose
	if minutesOfDay(c.current) < morningClose {
		closeMinutes = morningClose
	}
	closeAt := time.Date(c.current.Year(), c.current.Month(), c.current.Day(),
		closeMinutes/60, closeMinutes%60, 0, 0, clock.ChinaTZ)
	return int(closeAt.Sub(c.current).Seconds())
}

// Reset restores the cursor to the first trading day.
func (c *SimulationClock) Reset() {
	c.index = 0
	if c.granularity.IsDaily() {
		c.current = c.calendar.Day(0)
		return
	}
	c.current = sessionOpen(c.calendar.Day(0))
}

// Progress returns a best-effort completion fraction for UIs.
func (c *SimulationClock) Progress() float64 {
	total := c.calendar.Len()
	if total == 0 {
		return 0
	}
	if c.granularity.IsDaily() {
		return float64(c.index) / float64(total)
	}

	// Four trading hours per day.
	elapsed := minutesOfDay(c.current) - morningOpen
	if minutesOfDay(c.current) >= afternoonOpen {
		elapsed -= afternoonOpen - morningClose
	}
	dayProgress := float64(elapsed) / 240
	if dayProgress < 0 {
		dayProgress = 0
	}
	if dayProgress > 1 {
		dayProgress = 1
	}
	return (float64(c.index) + dayProgress) / float64(total)
}

// CurrentDate returns the cursor date as "YYYY-MM-DD".
func (c *SimulationClock) CurrentDate() string {
	return c.current.Format("2006-01-02")
}

// CurrentDateTime returns the cursor instant as "YYYY-MM-DD HH:MM:SS".
func (c *SimulationClock) CurrentDateTime() string {
	return c.current.Format("2006-01-02 15:04:05")
}
