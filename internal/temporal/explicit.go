package temporal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dmyPattern     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dmPattern      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ErrInvalidClock is returned by ParseClock for anything that is not a valid
// 24-hour HH:MM value.
var ErrInvalidClock = errors.New("invalid clock value")

// TimeOfDay is a 24-hour wall-clock value.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// DefaultTimeOfDay is used when a phrase carries no usable time.
var DefaultTimeOfDay = TimeOfDay{Hour: 19, Minute: 0}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// ParseClock parses "H:MM" or "HH:MM".
func ParseClock(s string) (TimeOfDay, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	t := TimeOfDay{Hour: h, Minute: min}
	if !t.valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t, nil
}

// ParseExplicitDate recognizes fully numeric dates:
//
//   - YYYY-MM-DD and DD/MM/YYYY are taken literally;
//   - DD/MM is placed in the anchor's year, or the next year when that day
//     is already behind the anchor.
//
// Calendrically impossible values (32/13, 31/04) are reported as no match.
func ParseExplicitDate(term string, anchor Date) (Date, bool) {
	d, _, ok := parseExplicit(normalize(term), anchor)
	return d, ok
}

// parseExplicit also reports whether term had an explicit numeric shape, so
// the resolver can log impossible dates distinctly from non-dates.
func parseExplicit(term string, anchor Date) (Date, bool, bool) {
	if m := isoDatePattern.FindStringSubmatch(term); m != nil {
		d, ok := dateFromParts(m[1], m[2], m[3])
		return d, true, ok
	}
	if m := dmyPattern.FindStringSubmatch(term); m != nil {
		d, ok := dateFromParts(m[3], m[2], m[1])
		return d, true, ok
	}
	if m := dmPattern.FindStringSubmatch(term); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		d, ok := NewDate(anchor.Year, time.Month(month), day)
		if !ok {
			// 29/02 may exist next year even when it does not this year.
			if next, nextOK := NewDate(anchor.Year+1, time.Month(month), day); nextOK && month == 2 && day == 29 {
				return next, true, true
			}
			return Date{}, true, false
		}
		if d.Before(anchor) {
			next, nextOK := NewDate(anchor.Year+1, time.Month(month), day)
			return next, true, nextOK
		}
		return d, true, true
	}
	return Date{}, false, false
}

func dateFromParts(year, month, day string) (Date, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Date{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return Date{}, false
	}
	return NewDate(y, time.Month(m), d)
}
