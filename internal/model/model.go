package model

import (
	"time"

	"homeassist/internal/temporal"
)

// Event is a stored family calendar entry. Date and Time hold the resolved
// first occurrence; Schedule holds the Quartz expression derived from them.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Date temporal.Date `json:"date"`
	// Time is "HH:MM" in the configured zone.
	Time string `json:"time"`

	Participants []string `json:"participants,omitempty"`

	RepeatType temporal.Verdict `json:"repeat_type"`
	// Schedule is empty for recurring events whose shape could not be decided.
	Schedule string `json:"cron_expression"`
	Category string `json:"category"`

	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Start returns the first occurrence instant in loc, or the zero time when
// the event has no date.
func (e Event) Start(loc *time.Location) time.Time {
	if e.Date.IsZero() {
		return time.Time{}
	}
	tod, err := temporal.ParseClock(e.Time)
	if err != nil {
		tod = temporal.DefaultTimeOfDay
	}
	return e.Date.Time(tod.Hour, tod.Minute, loc)
}

// Indeterminate reports a recurring event without a usable schedule.
func (e Event) Indeterminate() bool {
	return e.RepeatType == temporal.Recurring && e.Schedule == ""
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	EventID string `json:"event_id"`

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category"`
	Participants []string `json:"participants,omitempty"`

	Recurring bool `json:"recurring"`

	// Start is in the configured display timezone.
	Start time.Time `json:"start"`
}
