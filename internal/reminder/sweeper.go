// Package reminder periodically checks stored events and reports the ones
// whose schedule fired since the previous check.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "homeassist/internal/log"
	"homeassist/internal/model"
	"homeassist/internal/temporal"
)

const recentLimit = 50

// EventSource lists the events to check.
type EventSource interface {
	List() []model.Event
}

// Reminder is one due event.
type Reminder struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	FireAt  time.Time `json:"fire_at"`
}

// Sweeper runs a sweep on a 5-field cron spec.
type Sweeper struct {
	source EventSource
	loc    *time.Location
	now    func() time.Time
	notify func(Reminder)
	cron   *cron.Cron

	mu     sync.Mutex
	last   time.Time
	recent []Reminder
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithNotify sets the callback invoked for every due reminder.
func WithNotify(fn func(Reminder)) Option {
	return func(s *Sweeper) { s.notify = fn }
}

// NewSweeper validates spec and prepares the cron job; call Start to run it.
func NewSweeper(source EventSource, spec string, loc *time.Location, opts ...Option) (*Sweeper, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Sweeper{
		source: source,
		loc:    loc,
		now:    time.Now,
		cron:   cron.New(cron.WithLocation(loc)),
	}
	for _, o := range opts {
		o(s)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(s.now()) }); err != nil {
		return nil, fmt.Errorf("reminder: bad cron spec %q: %w", spec, err)
	}
	s.last = s.now()
	return s, nil
}

func (s *Sweeper) Start() {
	appLog.Info("reminder sweeper started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// running sweep has finished.
func (s *Sweeper) Stop() context.Context {
	ctx := s.cron.Stop()
	appLog.Info("reminder sweeper stopped")
	return ctx
}

// Sweep reports every event whose schedule has a fire time in
// (previous sweep, now]. One-off schedules from past years are ignored.
func (s *Sweeper) Sweep(now time.Time) []Reminder {
	s.mu.Lock()
	since := s.last
	if now.After(s.last) {
		s.last = now
	}
	s.mu.Unlock()

	if !now.After(since) {
		return nil
	}

	var due []Reminder
	for _, ev := range s.source.List() {
		if ev.Schedule == "" {
			continue
		}
		from := since
		if ev.RepeatType == temporal.Recurring && !ev.Date.IsZero() {
			// A recurring event starts firing on its first date.
			if first := ev.Start(s.loc).Add(-time.Nanosecond); first.After(from) {
				from = first
			}
		}
		next, err := temporal.NextFire(ev.Schedule, from, s.loc)
		if err != nil {
			appLog.Debug("reminder: no upcoming fire", "id", ev.ID, "cron", ev.Schedule, "err", err)
			continue
		}
		if next.After(now) {
			continue
		}
		due = append(due, Reminder{EventID: ev.ID, Title: ev.Title, FireAt: next})
	}

	for _, r := range due {
		appLog.Info("reminder due", "id", r.EventID, "title", r.Title, "fire_at", r.FireAt.Format(time.RFC3339))
		if s.notify != nil {
			s.notify(r)
		}
	}

	if len(due) > 0 {
		s.mu.Lock()
		s.recent = append(s.recent, due...)
		if len(s.recent) > recentLimit {
			s.recent = append([]Reminder(nil), s.recent[len(s.recent)-recentLimit:]...)
		}
		s.mu.Unlock()
	}
	return due
}

// Recent returns the latest reminders, oldest first.
func (s *Sweeper) Recent() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.recent))
	copy(out, s.recent)
	return out
}
