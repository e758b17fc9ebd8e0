package schedule

import (
	"errors"
	"fmt"
	"time"
)

// StorageKey is the well-known key settings are persisted under.
const StorageKey = "usagi-clock-alarm-settings"

var ErrMalformedSettings = errors.New("malformed alarm settings")

// Settings configures when the alarm fires.
type Settings struct {
	PeriodAlarmEnabled    bool `json:"periodAlarmEnabled" yaml:"period_alarm_enabled"`
	WholeHourAlarmEnabled bool `json:"wholeHourAlarmEnabled" yaml:"whole_hour_alarm_enabled"`
	StartHour             int  `json:"startHour" yaml:"start_hour"`
	StartMinute           int  `json:"startMinute" yaml:"start_minute"`
	EndHour               int  `json:"endHour" yaml:"end_hour"`
	EndMinute             int  `json:"endMinute" yaml:"end_minute"`
}

// DefaultSettings: whole-hour alarm on, period alarm off, full-day range.
func DefaultSettings() Settings {
	return Settings{
		WholeHourAlarmEnabled: true,
		EndHour:               23,
		EndMinute:             59,
	}
}

func (s Settings) Validate() error {
	for _, f := range []struct {
		name string
		v    int
		max  int
	}{
		{"startHour", s.StartHour, 23},
		{"startMinute", s.StartMinute, 59},
		{"endHour", s.EndHour, 23},
		{"endMinute", s.EndMinute, 59},
	} {
		if f.v < 0 || f.v > f.max {
			return fmt.Errorf("%w: %s=%d out of range [0,%d]", ErrMalformedSettings, f.name, f.v, f.max)
		}
	}
	return nil
}

func (s Settings) startMinutes() int { return s.StartHour*60 + s.StartMinute }
func (s Settings) endMinutes() int   { return s.EndHour*60 + s.EndMinute }

// IsWithinPeriod reports whether now falls in the configured period. The
// window is half-open, [start, end), and wraps midnight when start > end.
func IsWithinPeriod(s Settings, now time.Time) bool {
	if !s.PeriodAlarmEnabled {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	start, end := s.startMinutes(), s.endMinutes()
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// ShouldTrigger reports whether the alarm condition holds at now.
func ShouldTrigger(s Settings, now time.Time) bool {
	if IsWithinPeriod(s, now) {
		return true
	}
	return s.WholeHourAlarmEnabled && now.Minute() == 0
}

// Evaluator binds settings to a Clock.
type Evaluator struct {
	Clock Clock
}

func (e Evaluator) ShouldTrigger(s Settings) bool {
	c := e.Clock
	if c == nil {
		c = RealClock{}
	}
	return ShouldTrigger(s, c.Now())
}
