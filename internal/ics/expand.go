package ics

import (
	"errors"
	"sort"
	"time"

	appLog "homeassist/internal/log"
	"homeassist/internal/model"
	"homeassist/internal/temporal"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap against very long windows. If
	// zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents records event IDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences turns stored events into concrete occurrences within the
// given window, sorted by start time:
//
//   - one-off events contribute their single start if it is in range;
//   - recurring events are expanded through their RRULE;
//   - recurring events without a schedule contribute only their first date.
func ExpandOccurrences(events []model.Event, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	all := make([]model.Occurrence, 0)
	for _, ev := range events {
		occ, hitCap := expandEvent(ev, cfg)
		all = append(all, occ...)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.ID)
			appLog.Error("expand: truncated occurrences for event due to cap",
				errors.New("max occurrences reached"),
				"id", ev.ID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].EventID < all[j].EventID
		}
		return all[i].Start.Before(all[j].Start)
	})
	result.Occurrences = all
	return result, nil
}

func expandEvent(ev model.Event, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.Date.IsZero() {
		return nil, false
	}
	if ev.RepeatType != temporal.Recurring || ev.Schedule == "" {
		return expandSingleEvent(ev, cfg), false
	}
	return expandRecurringEvent(ev, cfg)
}

func expandSingleEvent(ev model.Event, cfg ExpandConfig) []model.Occurrence {
	start := ev.Start(cfg.DisplayLocation)
	if start.Before(cfg.RangeStart) || start.After(cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(ev, start, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev model.Event, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := RuleFor(ev, cfg.DisplayLocation)
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "id", ev.ID, "cron", ev.Schedule)
		return nil, false
	}

	times := r.Between(cfg.RangeStart, cfg.RangeEnd, true)
	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(times))
	for _, t := range times {
		out = append(out, makeOccurrence(ev, t, cfg.DisplayLocation))
	}
	return out, hitCap
}

// makeOccurrence converts an event and a specific start time into a
// model.Occurrence normalized into displayLoc.
func makeOccurrence(ev model.Event, start time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	return model.Occurrence{
		EventID:      ev.ID,
		InstanceKey:  ev.ID + "@" + startLocal.Format(time.RFC3339),
		Title:        ev.Title,
		Description:  ev.Description,
		Category:     ev.Category,
		Participants: ev.Participants,
		Recurring:    ev.RepeatType == temporal.Recurring,
		Start:        startLocal,
	}
}
