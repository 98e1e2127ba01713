package timectrl

import "time"

// NightServiceEnd is the hour at which the overnight window closes.
const NightServiceEnd = 5

// InNightServiceWindow reports whether t falls in the reduced overnight
// service window: Saturday and Sunday mornings before 05:00, evaluated in
// t's location. Only night-service connections run then.
func InNightServiceWindow(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return t.Hour() < NightServiceEnd
	}
	return false
}

type clockWindow struct {
	fromHour, fromMinute int
	toHour, toMinute     int
}

func (w clockWindow) contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	from := w.fromHour*60 + w.fromMinute
	to := w.toHour*60 + w.toMinute
	if minutes == to {
		return t.Second() == 0 && t.Nanosecond() == 0
	}
	return minutes >= from && minutes < to
}

var peakWindows = []clockWindow{
	{6, 30, 9, 30},
	{16, 0, 19, 0},
}

// IsPeak reports whether peak fares apply at t: weekdays 06:30–09:30 and
// 16:00–19:00 inclusive, evaluated in t's location.
func IsPeak(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	for _, w := range peakWindows {
		if w.contains(t) {
			return true
		}
	}
	return false
}
