package dimmer

import (
	"fmt"
	"time"

	"kioskd/internal/state"
)

// Schedule is a day/night brightness plan in minutes past midnight.
// Transitions ramp linearly from the previous level to the new one,
// starting at the boundary time.
type Schedule struct {
	DayStart          int
	NightStart        int
	DayBrightness     int
	NightBrightness   int
	TransitionMinutes int
}

const minutesPerDay = 24 * 60

// ParseSchedule converts settings into a Schedule, validating the
// HH:MM boundary times.
func ParseSchedule(ds state.DimmingSettings) (Schedule, error) {
	day, err := parseClock(ds.DayStart)
	if err != nil {
		return Schedule{}, fmt.Errorf("day_start: %w", err)
	}
	night, err := parseClock(ds.NightStart)
	if err != nil {
		return Schedule{}, fmt.Errorf("night_start: %w", err)
	}
	return Schedule{
		DayStart:          day,
		NightStart:        night,
		DayBrightness:     clampPercent(ds.DayBrightness),
		NightBrightness:   clampPercent(ds.NightBrightness),
		TransitionMinutes: ds.TransitionMinutes,
	}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// TargetPercent returns the scheduled brightness for the given wall-clock
// time. Within TransitionMinutes after a boundary the value ramps linearly
// from the old level to the new one; elsewhere it is flat.
func (s Schedule) TargetPercent(now time.Time) int {
	minute := now.Hour()*60 + now.Minute()

	if inWindow(minute, s.DayStart, s.TransitionMinutes) {
		return ramp(s.NightBrightness, s.DayBrightness, progress(minute, s.DayStart, s.TransitionMinutes))
	}
	if inWindow(minute, s.NightStart, s.TransitionMinutes) {
		return ramp(s.DayBrightness, s.NightBrightness, progress(minute, s.NightStart, s.TransitionMinutes))
	}
	if between(minute, s.DayStart, s.NightStart) {
		return s.DayBrightness
	}
	return s.NightBrightness
}

// inWindow reports whether minute falls within [start, start+length),
// wrapping at midnight.
func inWindow(minute, start, length int) bool {
	if length <= 0 {
		return false
	}
	diff := (minute - start + minutesPerDay) % minutesPerDay
	return diff < length
}

func progress(minute, start, length int) float64 {
	diff := (minute - start + minutesPerDay) % minutesPerDay
	return float64(diff) / float64(length)
}

func ramp(from, to int, p float64) int {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return int(float64(from) + (float64(to)-float64(from))*p + 0.5)
}

// between reports whether minute falls within [start, end), wrapping at
// midnight when end precedes start.
func between(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func clampPercent(p int) int {
	if p < minBrightness {
		return minBrightness
	}
	if p > 100 {
		return 100
	}
	return p
}
