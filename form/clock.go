package form

import (
	"fmt"
	"strings"
	"time"
)

// SecondsPerDay is the length of one clock cycle.
const SecondsPerDay = 24 * 60 * 60

// Clock is a time of day expressed as seconds since midnight.
type Clock int

var clockLayouts = []string{"15:04:05", "15:04"}

// NewClock builds a Clock from its components.
func NewClock(hour, minute, second int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d:%02d", hour, minute, second)
	}
	return Clock(hour*3600 + minute*60 + second), nil
}

// ParseClock accepts HH:MM:SS or HH:MM.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second())
		}
		lastErr = err
	}
	return 0, fmt.Errorf("unable to parse time of day %q: %w", s, lastErr)
}

// Seconds returns the seconds since midnight.
func (c Clock) Seconds() int {
	return int(c)
}

// Add moves the clock by d. The result is a time of day, so it wraps at
// midnight in both directions.
func (c Clock) Add(d time.Duration) Clock {
	secs := (int(c) + int(d/time.Second)) % SecondsPerDay
	if secs < 0 {
		secs += SecondsPerDay
	}
	return Clock(secs)
}

func (c Clock) String() string {
	secs := int(c)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
