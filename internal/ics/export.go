package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "homeassist/internal/log"
	"homeassist/internal/model"
)

const (
	productID = "-//homeassist//family calendar//VI"
	uidDomain = "@homeassist"

	// DefaultEventDuration is the DTEND offset for exported events, which
	// carry only a start time.
	DefaultEventDuration = time.Hour

	participantsProperty ical.ComponentProperty = "X-HOMEASSIST-PARTICIPANTS"
)

// Export renders events as an iCalendar feed. Recurring events carry an
// RRULE derived from their schedule; indeterminate ones are exported as their
// first occurrence only. Events without a date are skipped.
func Export(events []model.Event, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Lịch gia đình")
	cal.SetXWRTimezone(loc.String())

	exported := 0
	for _, ev := range events {
		if ev.Date.IsZero() {
			continue
		}
		rule, err := RuleString(ev, loc)
		if err != nil {
			appLog.Error("ics export: skipping event with bad schedule", err, "id", ev.ID, "cron", ev.Schedule)
			continue
		}

		start := ev.Start(loc)
		ve := cal.AddEvent(ev.ID + uidDomain)
		ve.SetDtStampTime(now)
		if !ev.CreatedOn.IsZero() {
			ve.SetCreatedTime(ev.CreatedOn)
		}
		if !ev.LastUpdated.IsZero() {
			ve.SetModifiedAt(ev.LastUpdated)
		}
		ve.SetStartAt(start)
		ve.SetEndAt(start.Add(DefaultEventDuration))
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.Category)
		}
		if len(ev.Participants) > 0 {
			ve.SetProperty(participantsProperty, strings.Join(ev.Participants, ","))
		}
		if rule != "" {
			ve.AddRrule(rule)
		}
		exported++
	}

	appLog.Debug("ics export completed", "event_count", exported)
	return cal.Serialize()
}
