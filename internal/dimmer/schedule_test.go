package dimmer

import (
	"testing"
	"time"

	"kioskd/internal/state"
)

func defaultSchedule() Schedule {
	return Schedule{
		DayStart:          7 * 60,
		NightStart:        21 * 60,
		DayBrightness:     100,
		NightBrightness:   30,
		TransitionMinutes: 30,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.Local)
}

func TestTargetPercentDefaultSchedule(t *testing.T) {
	s := defaultSchedule()

	tests := []struct {
		hour, minute int
		want         int
	}{
		{6, 45, 30},   // before dawn: night level
		{7, 0, 30},    // morning ramp starts from night level
		{7, 15, 65},   // halfway up
		{7, 29, 98},   // nearly there
		{7, 30, 100},  // ramp done
		{12, 0, 100},  // midday
		{20, 59, 100}, // last daytime minute
		{21, 0, 100},  // evening ramp starts from day level
		{21, 15, 65},  // halfway down
		{21, 30, 30},  // ramp done
		{3, 0, 30},    // small hours
	}
	for _, tt := range tests {
		got := s.TargetPercent(at(tt.hour, tt.minute))
		if got != tt.want {
			t.Errorf("TargetPercent(%02d:%02d) = %d, want %d", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestTargetPercentMidnightWrap(t *testing.T) {
	// Night shift display: bright overnight, dim during the day.
	s := Schedule{
		DayStart:          22 * 60,
		NightStart:        6 * 60,
		DayBrightness:     90,
		NightBrightness:   20,
		TransitionMinutes: 20,
	}

	tests := []struct {
		hour, minute int
		want         int
	}{
		{21, 30, 20}, // before the wrapped day window
		{22, 10, 55}, // mid-ramp up
		{23, 0, 90},  // inside the window, past midnight boundary side
		{1, 0, 90},   // wrapped past midnight
		{6, 10, 55},  // mid-ramp down
		{12, 0, 20},  // daytime is "night" here
	}
	for _, tt := range tests {
		got := s.TargetPercent(at(tt.hour, tt.minute))
		if got != tt.want {
			t.Errorf("TargetPercent(%02d:%02d) = %d, want %d", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestTargetPercentZeroTransition(t *testing.T) {
	s := defaultSchedule()
	s.TransitionMinutes = 0

	if got := s.TargetPercent(at(7, 0)); got != 100 {
		t.Errorf("TargetPercent(07:00) = %d, want immediate 100", got)
	}
	if got := s.TargetPercent(at(21, 0)); got != 30 {
		t.Errorf("TargetPercent(21:00) = %d, want immediate 30", got)
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule(state.DimmingSettings{
		DayStart:          "07:00",
		NightStart:        "21:30",
		DayBrightness:     100,
		NightBrightness:   5, // below the floor
		TransitionMinutes: 15,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sched.DayStart != 7*60 || sched.NightStart != 21*60+30 {
		t.Errorf("boundaries = %d/%d, want 420/1290", sched.DayStart, sched.NightStart)
	}
	if sched.NightBrightness != minBrightness {
		t.Errorf("NightBrightness = %d, want floored to %d", sched.NightBrightness, minBrightness)
	}

	if _, err := ParseSchedule(state.DimmingSettings{DayStart: "7am", NightStart: "21:00"}); err == nil {
		t.Error("malformed day_start accepted")
	}
	if _, err := ParseSchedule(state.DimmingSettings{DayStart: "07:00", NightStart: ""}); err == nil {
		t.Error("empty night_start accepted")
	}
}
