// Package timing provides the monotonic deadline arithmetic used by the
// event loop. A Deadline is either a point in time or Infinite, and all
// arithmetic saturates at Infinite rather than overflowing.
package timing

import "time"

// Deadline is an absolute monotonic instant, or Infinite.
type Deadline struct {
	at       time.Time
	infinite bool
}

// Infinite is later than every finite deadline.
var Infinite = Deadline{infinite: true}

// At returns the deadline for t. The monotonic reading carried by t (as
// returned by time.Now) is what comparisons use.
func At(t time.Time) Deadline {
	return Deadline{at: t}
}

// IsInfinite reports whether d is the Infinite sentinel.
func (d Deadline) IsInfinite() bool {
	return d.infinite
}

// Time returns the instant d refers to. It is the zero time for Infinite.
func (d Deadline) Time() time.Time {
	return d.at
}

// Cmp returns -1, 0 or +1 depending on whether d is before, equal to or
// after e. Two Infinite deadlines compare equal.
func (d Deadline) Cmp(e Deadline) int {
	switch {
	case d.infinite && e.infinite:
		return 0
	case d.infinite:
		return 1
	case e.infinite:
		return -1
	case d.at.Before(e.at):
		return -1
	case d.at.After(e.at):
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly earlier than e.
func (d Deadline) Before(e Deadline) bool {
	return d.Cmp(e) < 0
}

// Reached reports whether now is at or past d.
func (d Deadline) Reached(now Deadline) bool {
	return now.Cmp(d) >= 0
}

// Add returns d moved forward by dur. Infinite stays Infinite.
func (d Deadline) Add(dur time.Duration) Deadline {
	if d.infinite {
		return Infinite
	}
	return Deadline{at: d.at.Add(dur)}
}

// Until returns how long remains from now until d, saturating at zero for
// deadlines already passed. For Infinite it returns ok == false.
func (d Deadline) Until(now Deadline) (remaining time.Duration, ok bool) {
	if d.infinite {
		return 0, false
	}
	if now.infinite {
		return 0, true
	}
	if remaining = d.at.Sub(now.at); remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Min returns the earliest of the given deadlines, or Infinite when none are
// given.
func Min(ds ...Deadline) Deadline {
	m := Infinite
	for _, d := range ds {
		if d.Before(m) {
			m = d
		}
	}
	return m
}

func (d Deadline) String() string {
	if d.infinite {
		return "inf"
	}
	return d.at.String()
}
