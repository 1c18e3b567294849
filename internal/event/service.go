package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeassist/internal/ics"
	appLog "homeassist/internal/log"
	"homeassist/internal/model"
	"homeassist/internal/temporal"
)

// Errors the caller should turn into a clarification question rather than a
// failure.
var (
	ErrMissingTitle            = errors.New("event title is required")
	ErrMissingID               = errors.New("event id is required")
	ErrNotFound                = errors.New("event not found")
	ErrDateUnresolved          = errors.New("could not understand the event date")
	ErrPastDate                = errors.New("event date is already in the past")
	ErrIndeterminateRecurrence = errors.New("could not work out when the event repeats")
)

// IsClarification reports whether err asks the user for better input.
func IsClarification(err error) bool {
	return errors.Is(err, ErrMissingTitle) ||
		errors.Is(err, ErrMissingID) ||
		errors.Is(err, ErrDateUnresolved) ||
		errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrIndeterminateRecurrence)
}

// Args are the tool-call arguments for add and update.
type Args struct {
	EventID         string   `json:"event_id,omitempty"`
	DateDescription string   `json:"date_description"`
	Time            string   `json:"time,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Participants    []string `json:"participants,omitempty"`
}

// Action is what the frontend receives after a change.
type Action struct {
	Action         string           `json:"action"`
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	CronExpression string           `json:"cron_expression"`
	RepeatType     temporal.Verdict `json:"repeat_type"`
	OriginalDate   string           `json:"original_date"`
	OriginalTime   string           `json:"original_time"`
	Participants   []string         `json:"participants,omitempty"`
	Category       string           `json:"category"`
	Indeterminate  bool             `json:"indeterminate,omitempty"`
}

const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Options configure a Service. Zero values pick sensible defaults.
type Options struct {
	// Location is where "today" is computed. Defaults to time.Local.
	Location *time.Location
	// DefaultTime is used when neither the arguments nor the phrase carry a
	// time. Defaults to 19:00.
	DefaultTime string
	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service applies calendar tool calls to the store.
type Service struct {
	store       *Store
	resolver    *temporal.Resolver
	loc         *time.Location
	defaultTime string
	now         func() time.Time
	newID       func() string
}

func NewService(store *Store, resolver *temporal.Resolver, opts Options) *Service {
	if resolver == nil {
		resolver = temporal.DefaultResolver()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultTime == "" {
		opts.DefaultTime = temporal.DefaultTimeOfDay.String()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		store:       store,
		resolver:    resolver,
		loc:         opts.Location,
		defaultTime: opts.DefaultTime,
		now:         opts.Now,
		newID:       opts.NewID,
	}
}

// Anchor is today's date in the service's zone.
func (s *Service) Anchor() temporal.Date {
	return temporal.Today(s.now(), s.loc)
}

func (s *Service) Resolver() *temporal.Resolver {
	return s.resolver
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) List() []model.Event {
	return s.store.List()
}

func (s *Service) Get(id string) (model.Event, bool) {
	return s.store.Get(id)
}

// Resolve runs the full schedule resolution against today without storing
// anything.
func (s *Service) Resolve(args Args) temporal.EventSchedule {
	return s.resolver.ResolveEventSchedule(s.Anchor(), args.DateDescription, s.clock(args.Time), args.Description, args.Title)
}

// Add creates an event from tool-call arguments.
func (s *Service) Add(actor string, args Args) (Action, error) {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return Action{}, ErrMissingTitle
	}
	desc := strings.TrimSpace(args.Description)

	sched, err := s.schedule(args.DateDescription, s.clock(args.Time), desc, title, true)
	if err != nil {
		appLog.Warn("add event rejected", "title", title, "date_description", args.DateDescription, "reason", err)
		return Action{}, err
	}

	now := s.now()
	ev := model.Event{
		ID:           s.newID(),
		Title:        title,
		Description:  desc,
		Date:         sched.Date,
		Time:         sched.Time,
		Participants: cleanParticipants(args.Participants),
		RepeatType:   sched.Recurrence,
		Schedule:     sched.Expression,
		Category:     Categorize(title, desc),
		CreatedBy:    actor,
		CreatedOn:    now,
		UpdatedBy:    actor,
		LastUpdated:  now,
	}
	if err := s.store.Put(ev); err != nil {
		return Action{}, err
	}

	appLog.Info("event added", "id", ev.ID, "title", ev.Title, "date", ev.Date, "cron", ev.Schedule, "by", actor)
	return actionFor(ActionAdd, ev), nil
}

// Update changes an existing event. Empty arguments keep the stored value.
// Without a new date description the stored date is kept and recurrence and
// schedule are derived again from the merged fields.
func (s *Service) Update(actor string, args Args) (Action, error) {
	id := strings.TrimSpace(args.EventID)
	if id == "" {
		return Action{}, ErrMissingID
	}
	ev, ok := s.store.Get(id)
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if t := strings.TrimSpace(args.Title); t != "" {
		ev.Title = t
	}
	if d := strings.TrimSpace(args.Description); d != "" {
		ev.Description = d
	}
	if args.Participants != nil {
		ev.Participants = cleanParticipants(args.Participants)
	}
	clock := ev.Time
	if strings.TrimSpace(args.Time) != "" {
		clock = args.Time
	}

	var sched temporal.EventSchedule
	var err error
	if strings.TrimSpace(args.DateDescription) != "" {
		sched, err = s.schedule(args.DateDescription, clock, ev.Description, ev.Title, true)
	} else {
		// The stored date is already accepted; a past one-off stays editable.
		sched, err = s.schedule(ev.Date.String(), clock, ev.Description, ev.Title, false)
	}
	if err != nil {
		appLog.Warn("update event rejected", "id", id, "date_description", args.DateDescription, "reason", err)
		return Action{}, err
	}

	ev.Date = sched.Date
	ev.Time = sched.Time
	ev.RepeatType = sched.Recurrence
	ev.Schedule = sched.Expression
	ev.Category = Categorize(ev.Title, ev.Description)
	ev.UpdatedBy = actor
	ev.LastUpdated = s.now()

	if err := s.store.Put(ev); err != nil {
		return Action{}, err
	}

	appLog.Info("event updated", "id", ev.ID, "date", ev.Date, "cron", ev.Schedule, "by", actor)
	return actionFor(ActionUpdate, ev), nil
}

func (s *Service) Delete(actor, id string) (Action, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Action{}, ErrMissingID
	}
	ev, err := s.store.Delete(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Action{}, err
	}
	appLog.Info("event deleted", "id", id, "by", actor)
	return Action{Action: ActionDelete, ID: ev.ID, Title: ev.Title}, nil
}

// ImportSkip explains why an imported VEVENT was not stored.
type ImportSkip struct {
	UID    string `json:"uid"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Added   []Action     `json:"added"`
	Skipped []ImportSkip `json:"skipped"`
}

// Import stores events parsed from an iCalendar feed. Entries the resolver
// rejects are reported and skipped; a storage failure aborts the import.
func (s *Service) Import(actor string, items []ics.ImportedEvent) (ImportResult, error) {
	res := ImportResult{Added: []Action{}, Skipped: []ImportSkip{}}
	for _, it := range items {
		desc := strings.TrimSpace(strings.Join([]string{it.Description, it.RepeatHint}, "\n"))
		act, err := s.Add(actor, Args{
			DateDescription: it.DateDescription,
			Time:            it.Time,
			Title:           it.Title,
			Description:     desc,
		})
		if err != nil {
			if IsClarification(err) {
				res.Skipped = append(res.Skipped, ImportSkip{UID: it.UID, Title: it.Title, Reason: err.Error()})
				continue
			}
			return res, err
		}
		res.Added = append(res.Added, act)
	}
	appLog.Info("ics import completed", "added", len(res.Added), "skipped", len(res.Skipped), "by", actor)
	return res, nil
}

// schedule resolves dateDescription and applies the storage policies.
func (s *Service) schedule(dateDescription, clock, description, title string, rejectPast bool) (temporal.EventSchedule, error) {
	anchor := s.Anchor()

	if strings.TrimSpace(dateDescription) == "" {
		return s.undatedSchedule(anchor, clock, description, title)
	}

	sched := s.resolver.ResolveEventSchedule(anchor, dateDescription, clock, description, title)
	if !sched.Resolved() {
		return sched, ErrDateUnresolved
	}
	if rejectPast && sched.Recurrence == temporal.Once && sched.Date.Before(anchor) {
		return sched, fmt.Errorf("%w: %s", ErrPastDate, sched.Date)
	}
	return sched, nil
}

// undatedSchedule accepts a missing date only for recurring text whose
// schedule is known; the first date is the next time it fires.
func (s *Service) undatedSchedule(anchor temporal.Date, clock, description, title string) (temporal.EventSchedule, error) {
	if temporal.ClassifyRecurrence(title, description) != temporal.Recurring {
		return temporal.EventSchedule{}, ErrDateUnresolved
	}
	tod, err := temporal.ParseClock(clock)
	if err != nil {
		tod = temporal.DefaultTimeOfDay
	}
	expr := temporal.GenerateSchedule(anchor, tod.String(), temporal.Recurring, title, description)
	if expr == "" {
		return temporal.EventSchedule{}, ErrIndeterminateRecurrence
	}
	next, err := temporal.NextFire(expr, s.now(), s.loc)
	if err != nil {
		return temporal.EventSchedule{}, fmt.Errorf("%w: %v", ErrIndeterminateRecurrence, err)
	}
	return temporal.EventSchedule{
		Date:       temporal.DateOf(next),
		Time:       tod.String(),
		Recurrence: temporal.Recurring,
		Expression: expr,
	}, nil
}

func (s *Service) clock(t string) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return s.defaultTime
}

func cleanParticipants(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func actionFor(kind string, ev model.Event) Action {
	return Action{
		Action:         kind,
		ID:             ev.ID,
		Title:          ev.Title,
		Description:    ev.Description,
		CronExpression: ev.Schedule,
		RepeatType:     ev.RepeatType,
		OriginalDate:   ev.Date.String(),
		OriginalTime:   ev.Time,
		Participants:   ev.Participants,
		Category:       ev.Category,
		Indeterminate:  ev.Indeterminate(),
	}
}
