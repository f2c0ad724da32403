package scheduler

import (
	"fmt"
	"time"
)

// QuietWindow is a daily local-time window during which scheduled
// ingestion is suppressed. Bounds are inclusive at minute granularity,
// so 00:00-04:59 suppresses everything before 05:00. Windows may wrap
// past midnight, e.g. 23:00-04:59. The zero value suppresses nothing.
type QuietWindow struct {
	start int // minutes from midnight
	end   int
	loc   *time.Location
	set   bool
}

// NewQuietWindow builds a window from "HH:MM" bounds and an IANA
// timezone name. An empty timezone means the process-local zone.
func NewQuietWindow(start, end, timezone string) (QuietWindow, error) {
	s, err := parseMinuteOfDay(start)
	if err != nil {
		return QuietWindow{}, err
	}
	e, err := parseMinuteOfDay(end)
	if err != nil {
		return QuietWindow{}, err
	}
	loc := time.Local
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return QuietWindow{}, fmt.Errorf("invalid quiet hours timezone %q: %w", timezone, err)
		}
	}
	return QuietWindow{start: s, end: e, loc: loc, set: true}, nil
}

func parseMinuteOfDay(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid quiet hours bound %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether t falls inside the window.
func (w QuietWindow) Contains(t time.Time) bool {
	if !w.set {
		return false
	}
	lt := t.In(w.loc)
	m := lt.Hour()*60 + lt.Minute()
	if w.start <= w.end {
		return m >= w.start && m <= w.end
	}
	return m >= w.start || m <= w.end
}

func (w QuietWindow) String() string {
	if !w.set {
		return "disabled"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d %s",
		w.start/60, w.start%60, w.end/60, w.end%60, w.loc)
}
