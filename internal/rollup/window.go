package rollup

import (
	"fmt"
	"time"
)

type WindowKind string

const (
	WindowToday     WindowKind = "today"
	WindowYesterday WindowKind = "yesterday"
	WindowLast3     WindowKind = "3d"
	WindowLast7     WindowKind = "7d"
	WindowCustom    WindowKind = "custom"
)

// Window is a calendar-day range. Named windows anchor on the current day:
// "last N days" spans now−(N−1) through now, so 3d and 7d include the open
// day. Custom ranges are inclusive on both ends.
type Window struct {
	Kind WindowKind
	From time.Time
	To   time.Time
}

func ParseWindow(kind, from, to string) (Window, error) {
	switch WindowKind(kind) {
	case "", WindowToday:
		return Window{Kind: WindowToday}, nil
	case WindowYesterday, WindowLast3, WindowLast7:
		return Window{Kind: WindowKind(kind)}, nil
	case WindowCustom:
		f, err := time.Parse("2006-01-02", from)
		if err != nil {
			return Window{}, fmt.Errorf("bad from date %q", from)
		}
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return Window{}, fmt.Errorf("bad to date %q", to)
		}
		if t.Before(f) {
			return Window{}, fmt.Errorf("window end before start")
		}
		return Window{Kind: WindowCustom, From: f, To: t}, nil
	default:
		return Window{}, fmt.Errorf("unknown window %q", kind)
	}
}

func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	d := dayStart(now)
	switch w.Kind {
	case WindowToday:
		return d, d
	case WindowYesterday:
		y := d.AddDate(0, 0, -1)
		return y, y
	case WindowLast3:
		return d.AddDate(0, 0, -2), d
	case WindowLast7:
		return d.AddDate(0, 0, -6), d
	default:
		return dayStart(w.From), dayStart(w.To)
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
