package utils

import (
	"fmt"
	"math"
	"time"
)

// DateKeyLayout is the calendar-date key format used throughout the engine.
const DateKeyLayout = "2006-01-02"

// DateKey returns the calendar-date key for the provided time in its location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey returns the midnight time for a date key or an error.
func ParseDateKey(key string) (time.Time, error) {
	if key == "" {
		return time.Time{}, fmt.Errorf("empty date key")
	}
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key: %w", err)
	}
	return t, nil
}

// AddDays shifts a date key by n calendar days. Invalid keys are returned unchanged.
func AddDays(key string, n int) string {
	t, err := ParseDateKey(key)
	if err != nil {
		return key
	}
	return DateKey(t.AddDate(0, 0, n))
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// DecimalHour converts a wall-clock time into a decimal hour in [0,24).
func DecimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// NormalizeHour wraps a decimal hour into [0,24).
func NormalizeHour(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

// ClockString renders a decimal hour as HH:MM, wrapping values outside [0,24).
func ClockString(h float64) string {
	h = NormalizeHour(h)
	hours := int(h)
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours = (hours + 1) % 24
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
