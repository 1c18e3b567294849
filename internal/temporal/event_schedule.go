package temporal

import appLog "homeassist/internal/log"

// EventSchedule is the combined outcome for one calendar event.
type EventSchedule struct {
	// Date is zero when the phrase could not be resolved.
	Date Date `json:"date"`
	// Time is the effective HH:MM after extraction and defaulting.
	Time       string  `json:"time"`
	Recurrence Verdict `json:"repeat_type"`
	// Expression is the Quartz schedule, or "" when none could be built.
	Expression string `json:"cron_expression"`
}

func (s EventSchedule) Resolved() bool {
	return !s.Date.IsZero()
}

// Indeterminate reports a recurring event whose schedule shape is unknown.
func (s EventSchedule) Indeterminate() bool {
	return s.Recurrence == Recurring && s.Expression == ""
}

// ResolveEventSchedule uses the default resolver.
func ResolveEventSchedule(anchor Date, dateDescription, clock, description, title string) EventSchedule {
	return defaultResolver.ResolveEventSchedule(anchor, dateDescription, clock, description, title)
}

// ResolveEventSchedule extracts a clock time from dateDescription (it
// overrides clock), resolves the remaining phrase to a date, classifies
// recurrence from title and description and builds the schedule expression.
//
// An unresolvable phrase yields a zero Date, Once and an empty expression;
// callers should ask the user to clarify.
func (r *Resolver) ResolveEventSchedule(anchor Date, dateDescription, clock, description, title string) EventSchedule {
	cleaned, tod, found := ExtractTimeOfDay(dateDescription)
	if found {
		clock = tod.String()
	}
	effective := clockOrDefault(clock)

	date, ok := r.Resolve(cleaned, anchor)
	if !ok {
		appLog.Warn("event date unresolved", "date_description", dateDescription)
		return EventSchedule{Time: effective.String(), Recurrence: Once}
	}

	verdict := ClassifyRecurrence(title, description)
	out := EventSchedule{
		Date:       date,
		Time:       effective.String(),
		Recurrence: verdict,
		Expression: GenerateSchedule(date, effective.String(), verdict, title, description),
	}
	appLog.Info("event schedule resolved",
		"date_description", dateDescription,
		"date", out.Date,
		"time", out.Time,
		"repeat_type", out.Recurrence,
		"cron", out.Expression,
	)
	return out
}
