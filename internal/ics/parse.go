package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "homeassist/internal/log"
)

// ImportedEvent is a VEVENT reduced to the arguments the event service
// accepts when a user creates an event by hand.
type ImportedEvent struct {
	UID         string
	Title       string
	Description string

	// DateDescription is the DTSTART date as YYYY-MM-DD in the import zone.
	DateDescription string
	// Time is HH:MM, or "" for all-day events.
	Time   string
	AllDay bool

	// RepeatHint restates the RRULE as a phrase ("hàng tuần vào thứ 6") so
	// recurrence and schedule can be derived the same way as for typed
	// events. Empty for one-off events.
	RepeatHint string
}

// ParseICS parses a single ICS payload into a list of ImportedEvent.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling to
//     construct proper time.Time values, then converts them to loc.
//   - It detects all-day events by inspecting the DTSTART value format.
//   - It keeps only the RRULE frequency, weekdays and month day.
func ParseICS(body []byte, loc *time.Location) ([]ImportedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]ImportedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ImportedEvent, error) {
	var out ImportedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if out.Title == "" {
		return out, fmt.Errorf("event %s: missing SUMMARY", out.UID)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}

	allDay := false
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				allDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			allDay = true
		}
	}
	out.AllDay = allDay

	var start time.Time
	var err error
	if allDay {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
	}
	if !allDay {
		start = start.In(loc)
		out.Time = start.Format("15:04")
	}
	out.DateDescription = start.Format("2006-01-02")

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		hint, herr := repeatHint(rruleProp.Value, start)
		if herr != nil {
			appLog.Warn("ics rrule not understood, importing as one-off", "uid", out.UID, "rrule", rruleProp.Value, "err", herr)
		}
		out.RepeatHint = hint
	}

	return out, nil
}

var viWeekdayNames = map[rrule.Weekday]string{
	rrule.MO: "thứ 2",
	rrule.TU: "thứ 3",
	rrule.WE: "thứ 4",
	rrule.TH: "thứ 5",
	rrule.FR: "thứ 6",
	rrule.SA: "thứ 7",
	rrule.SU: "chủ nhật",
}

// goWeekdays maps time.Weekday (Sunday=0) to rrule days.
var goWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

func repeatHint(raw string, start time.Time) (string, error) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return "", err
	}

	switch opt.Freq {
	case rrule.DAILY:
		return "hàng ngày", nil
	case rrule.WEEKLY:
		days := opt.Byweekday
		if len(days) == 0 {
			days = []rrule.Weekday{goWeekdays[start.Weekday()]}
		}
		names := make([]string, 0, len(days))
		for _, d := range days {
			// Strip any BYDAY ordinal ("1MO") before the lookup.
			if name, ok := viWeekdayNames[goWeekdays[(d.Day()+1)%7]]; ok {
				names = append(names, name)
			}
		}
		return "hàng tuần vào " + strings.Join(names, ", "), nil
	case rrule.MONTHLY:
		day := start.Day()
		if len(opt.Bymonthday) > 0 {
			day = opt.Bymonthday[0]
		}
		if day < 0 {
			return "ngày cuối cùng hàng tháng", nil
		}
		return fmt.Sprintf("ngày %d hàng tháng", day), nil
	case rrule.YEARLY:
		return "hàng năm", nil
	}
	return "", fmt.Errorf("unsupported frequency %v", opt.Freq)
}
