package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if !clockPattern.MatchString(value) {
		return 0, fmt.Errorf("%w: time %q must be HH:MM or HH:MM:SS", ErrInvalidInput, value)
	}
	layout := "15:04"
	if len(value) == len("15:04:05") {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q: %v", ErrInvalidInput, value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// ValidateSchedule checks that start precedes end when both are present.
func ValidateSchedule(start, end *string) error {
	s, e := normalizeClock(start), normalizeClock(end)
	if s == nil || e == nil {
		return nil
	}
	from, err := ParseClock(*s)
	if err != nil {
		return ErrInvalidSchedule
	}
	to, err := ParseClock(*e)
	if err != nil {
		return ErrInvalidSchedule
	}
	if from >= to {
		return ErrInvalidSchedule
	}
	return nil
}

// normalizeClock treats empty strings as absent.
func normalizeClock(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
