package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"homeassist/internal/model"
	"homeassist/internal/temporal"
)

// quartzWeekdays maps Quartz day-of-week 1..7 (Sunday first) to rrule days.
var quartzWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RuleFor converts an event's Quartz schedule into an RRULE starting at the
// event's resolved date. One-off and indeterminate events have no rule and
// return nil without error.
func RuleFor(ev model.Event, loc *time.Location) (*rrule.RRule, error) {
	opt, err := ruleOption(ev, loc)
	if err != nil || opt == nil {
		return nil, err
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("ics: build rule for %s: %w", ev.ID, err)
	}
	return r, nil
}

// RuleString returns the RFC 5545 RRULE value (without DTSTART) for ev, or ""
// when ev does not repeat.
func RuleString(ev model.Event, loc *time.Location) (string, error) {
	opt, err := ruleOption(ev, loc)
	if err != nil || opt == nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// ruleOption understands the three shapes the schedule generator emits:
//
//	0 M H ? * * *      daily
//	0 M H ? * 2,6 *    weekly on the listed days
//	0 M H N|L * ? *    monthly on day N or the last day
func ruleOption(ev model.Event, loc *time.Location) (*rrule.ROption, error) {
	if ev.RepeatType != temporal.Recurring || ev.Schedule == "" {
		return nil, nil
	}
	if ev.Date.IsZero() {
		return nil, fmt.Errorf("ics: event %s repeats but has no start date", ev.ID)
	}
	if loc == nil {
		loc = time.Local
	}

	f := strings.Fields(ev.Schedule)
	if len(f) != 7 {
		return nil, fmt.Errorf("ics: schedule %q: want 7 fields, got %d", ev.Schedule, len(f))
	}
	minute, err := strconv.Atoi(f[1])
	if err != nil {
		return nil, fmt.Errorf("ics: schedule %q: minute: %w", ev.Schedule, err)
	}
	hour, err := strconv.Atoi(f[2])
	if err != nil {
		return nil, fmt.Errorf("ics: schedule %q: hour: %w", ev.Schedule, err)
	}

	opt := rrule.ROption{Dtstart: ev.Date.Time(hour, minute, loc)}
	dom, dow := f[3], f[5]

	switch {
	case dom == "?" && dow == "*":
		opt.Freq = rrule.DAILY
	case dom == "?":
		opt.Freq = rrule.WEEKLY
		for _, part := range strings.Split(dow, ",") {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 || n > 7 {
				return nil, fmt.Errorf("ics: schedule %q: bad day-of-week %q", ev.Schedule, part)
			}
			opt.Byweekday = append(opt.Byweekday, quartzWeekdays[n-1])
		}
	case dow == "?":
		opt.Freq = rrule.MONTHLY
		if dom == "L" {
			opt.Bymonthday = []int{-1}
			break
		}
		n, err := strconv.Atoi(dom)
		if err != nil || n < 1 || n > 31 {
			return nil, fmt.Errorf("ics: schedule %q: bad day-of-month %q", ev.Schedule, dom)
		}
		opt.Bymonthday = []int{n}
	default:
		return nil, fmt.Errorf("ics: unsupported schedule %q", ev.Schedule)
	}
	return &opt, nil
}
