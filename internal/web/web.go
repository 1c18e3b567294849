package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"homeassist/internal/config"
	"homeassist/internal/event"
	"homeassist/internal/ics"
	appLog "homeassist/internal/log"
	"homeassist/internal/model"
	"homeassist/internal/reminder"
	"homeassist/internal/temporal"
	"homeassist/internal/weather"
)

const (
	occurrencesCacheTTL = 30 * time.Second
	maxBodyBytes        = 1 << 20
	memberHeader        = "X-Member-ID"
)

// Server provides the HTTP API over the event service.
type Server struct {
	cfg    *config.Config
	debug  bool
	mux    *http.ServeMux
	events *event.Service

	forecaster weather.Forecaster
	sweeper    *reminder.Sweeper
	now        func() time.Time

	// In-memory cache for /api/occurrences keyed by window; cleared on
	// every write.
	occMu    sync.RWMutex
	occCache map[string]*occurrencesCache
}

// Option customizes a Server.
type Option func(*Server)

// WithForecaster enables forecast lookups on /api/weather/plan.
func WithForecaster(f weather.Forecaster) Option {
	return func(s *Server) { s.forecaster = f }
}

// WithReminders exposes recent reminders on /api/reminders.
func WithReminders(sw *reminder.Sweeper) Option {
	return func(s *Server) { s.sweeper = sw }
}

// WithClock replaces time.Now for cache expiry and feed timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, debug bool, events *event.Service, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		debug:    debug,
		mux:      http.NewServeMux(),
		events:   events,
		now:      time.Now,
		occCache: make(map[string]*occurrencesCache),
	}
	for _, o := range opts {
		o(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat a half-filled credential pair as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="homeassist", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/resolve", s.handleResolve)
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("POST /api/events/import", s.handleImport)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("GET /api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleCalendarFeed)
	s.mux.HandleFunc("GET /api/weather/plan", s.handleWeatherPlan)
	s.mux.HandleFunc("GET /api/reminders", s.handleReminders)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// resolveRequest is the body of POST /api/resolve. Anchor overrides today.
type resolveRequest struct {
	event.Args
	Anchor string `json:"anchor,omitempty"`
}

type resolveResponse struct {
	temporal.EventSchedule
	Anchor        temporal.Date `json:"anchor"`
	Resolved      bool          `json:"resolved"`
	Indeterminate bool          `json:"indeterminate"`
	Category      string        `json:"category"`
}

// handleResolve runs date resolution without storing anything.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	anchor := s.events.Anchor()
	if req.Anchor != "" {
		a, err := temporal.ParseISO(req.Anchor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "anchor must be YYYY-MM-DD")
			return
		}
		anchor = a
	}

	clock := req.Time
	if strings.TrimSpace(clock) == "" {
		clock = s.cfg.DefaultTime
	}
	sched := s.events.Resolver().ResolveEventSchedule(anchor, req.DateDescription, clock, req.Description, req.Title)
	writeJSON(w, http.StatusOK, resolveResponse{
		EventSchedule: sched,
		Anchor:        anchor,
		Resolved:      sched.Resolved(),
		Indeterminate: sched.Indeterminate(),
		Category:      event.Categorize(req.Title, req.Description),
	})
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.events.List()})
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var args event.Args
	if !decodeJSON(w, r, &args) {
		return
	}
	act, err := s.events.Add(actor(r), args)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateOccurrences()
	writeJSON(w, http.StatusCreated, act)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var args event.Args
	if !decodeJSON(w, r, &args) {
		return
	}
	args.EventID = r.PathValue("id")
	act, err := s.events.Update(actor(r), args)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateOccurrences()
	writeJSON(w, http.StatusOK, act)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	act, err := s.events.Delete(actor(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateOccurrences()
	writeJSON(w, http.StatusOK, act)
}

// handleImport accepts a raw iCalendar body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "calendar body too large")
		return
	}
	items, err := ics.ParseICS(body, s.events.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid iCalendar data: "+err.Error())
		return
	}
	res, err := s.events.Import(actor(r), items)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateOccurrences()
	writeJSON(w, http.StatusOK, res)
}

// occurrencesResponse is the JSON response shape for /api/occurrences.
type occurrencesResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	TruncatedIDs    []string           `json:"truncated_ids,omitempty"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
}

// occurrencesCache holds a cached /api/occurrences response and its timestamp.
type occurrencesCache struct {
	resp      occurrencesResponse
	updatedAt time.Time
}

// handleOccurrences returns expanded occurrences of stored events within a
// requested time window.
//
// GET /api/occurrences?days=14&backfill=1
//   - days:     how many days ahead to include (default horizon_days)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	key := strconv.Itoa(days) + ":" + strconv.Itoa(backfill)
	cacheNow := s.now()

	s.occMu.RLock()
	oc := s.occCache[key]
	s.occMu.RUnlock()
	if oc != nil && cacheNow.Sub(oc.updatedAt) < occurrencesCacheTTL {
		writeJSON(w, http.StatusOK, oc.resp)
		return
	}

	loc := s.events.Location()
	now := cacheNow.In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	appLog.Info("api occurrences request",
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	res, err := ics.ExpandOccurrences(s.events.List(), ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		appLog.Error("api occurrences: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	resp := occurrencesResponse{
		Occurrences:     res.Occurrences,
		TruncatedIDs:    res.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	}

	s.occMu.Lock()
	s.occCache[key] = &occurrencesCache{resp: resp, updatedAt: cacheNow}
	s.occMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) invalidateOccurrences() {
	s.occMu.Lock()
	s.occCache = make(map[string]*occurrencesCache)
	s.occMu.Unlock()
}

func (s *Server) handleCalendarFeed(w http.ResponseWriter, _ *http.Request) {
	feed := ics.Export(s.events.List(), s.events.Location(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, feed)
}

type weatherResponse struct {
	Location string          `json:"location"`
	Request  weather.Request `json:"request"`
	Report   *weather.Report `json:"report,omitempty"`
}

// handleWeatherPlan resolves ?q= to a forecast request for ?location= and,
// when a provider is configured, fetches it.
func (s *Server) handleWeatherPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := strings.TrimSpace(q.Get("location"))
	if location == "" {
		location = s.cfg.Weather.DefaultLocation
	}

	req := weather.Plan(s.events.Resolver(), q.Get("q"), s.events.Anchor(), s.cfg.Weather.MaxForecastDays)
	resp := weatherResponse{Location: location, Request: req}

	if s.forecaster != nil {
		rep, err := weather.ForDate(r.Context(), s.forecaster, req, location)
		if err != nil {
			writeError(w, http.StatusBadGateway, "forecast provider failed")
			return
		}
		resp.Report = &rep
	}
	writeJSON(w, http.StatusOK, resp)
}

type remindersResponse struct {
	Reminders []reminder.Reminder `json:"reminders"`
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	resp := remindersResponse{Reminders: []reminder.Reminder{}}
	if s.sweeper != nil {
		resp.Reminders = s.sweeper.Recent()
	}
	writeJSON(w, http.StatusOK, resp)
}

// actor identifies the family member making a change.
func actor(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(memberHeader)); id != "" {
		return id
	}
	if u, _, ok := r.BasicAuth(); ok && u != "" {
		return u
	}
	return "web"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

type clarifyResp struct {
	Error   string `json:"error"`
	Clarify bool   `json:"clarify"`
}

// writeServiceError maps event service errors onto HTTP statuses.
// Clarification errors are the caller's cue to ask the user again.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case event.IsClarification(err):
		writeJSON(w, http.StatusUnprocessableEntity, clarifyResp{Error: err.Error(), Clarify: true})
	default:
		appLog.Error("api: event operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
