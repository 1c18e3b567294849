package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeassist/internal/config"
	"homeassist/internal/event"
	"homeassist/internal/temporal"
	"homeassist/internal/weather"
)

type fixture struct {
	srv *Server
	svc *event.Service
	h   http.Handler
	now time.Time
}

// newFixture pins "now" to Monday 2024-06-03 10:00 in Ho Chi Minh City.
func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	store, err := event.OpenStore(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)

	f := &fixture{now: time.Date(2024, 6, 3, 10, 0, 0, 0, loc)}
	clock := func() time.Time { return f.now }
	n := 0
	f.svc = event.NewService(store, temporal.NewResolver(nil), event.Options{
		Location:    loc,
		DefaultTime: cfg.DefaultTime,
		Now:         clock,
		NewID: func() string {
			n++
			return fmt.Sprintf("ev-%d", n)
		},
	})
	f.srv = NewServer(cfg, false, f.svc, append([]Option{WithClock(clock)}, opts...)...)
	f.h = f.srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "family", Password: "s3cret"}
	f := newFixture(t, cfg)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)

	rec := f.do(t, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("family", "wrong")
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("family", "s3cret")
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}

func TestResolve(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())

	rec := f.do(t, http.MethodPost, "/api/resolve",
		`{"date_description":"thứ 6 tuần sau","title":"Họp team","description":"họp hàng tuần vào thứ 6","anchor":"2024-06-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "2024-06-14", out["date"])
	assert.Equal(t, "19:00", out["time"])
	assert.Equal(t, "RECURRING", out["repeat_type"])
	assert.Equal(t, "0 0 19 ? * 6 *", out["cron_expression"])
	assert.Equal(t, true, out["resolved"])
	assert.Equal(t, "Meeting", out["category"])

	rec = f.do(t, http.MethodPost, "/api/resolve", `{"date_description":"khi nào rảnh","title":"Việc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode(t, rec)
	assert.Equal(t, false, out["resolved"])
	assert.Equal(t, "", out["cron_expression"])

	rec = f.do(t, http.MethodPost, "/api/resolve", `{"date_description":"mai","anchor":"03/06/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/resolve", `{"date":"mai"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventLifecycle(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())

	rec := f.do(t, http.MethodPost, "/api/events",
		`{"date_description":"ngày mai","time":"08:00","title":"Khám răng"}`, memberHeader, "me")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "add", out["action"])
	assert.Equal(t, "ev-1", out["id"])
	assert.Equal(t, "2024-06-04", out["original_date"])
	assert.Equal(t, "0 0 8 4 6 ? 2024", out["cron_expression"])
	assert.Equal(t, "Health", out["category"])

	ev, ok := f.svc.Get("ev-1")
	require.True(t, ok)
	assert.Equal(t, "me", ev.CreatedBy)

	rec = f.do(t, http.MethodPut, "/api/events/ev-1", `{"time":"09:30"}`, memberHeader, "bo")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out = decode(t, rec)
	assert.Equal(t, "update", out["action"])
	assert.Equal(t, "09:30", out["original_time"])
	assert.Equal(t, "0 30 9 4 6 ? 2024", out["cron_expression"])

	rec = f.do(t, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, "bo", list.Events[0].UpdatedBy)

	rec = f.do(t, http.MethodDelete, "/api/events/ev-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delete", decode(t, rec)["action"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/events/ev-1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/events/nope", `{"time":"10:00"}`).Code)
}

func TestAddClarifications(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"date_description":"ngày mai"}`},
		{"unresolved date", `{"date_description":"khi nào rảnh","title":"Đi chơi"}`},
		{"past date", `{"date_description":"hôm qua","title":"Đi chợ"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/events", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, true, out["clarify"])
			assert.NotEmpty(t, out["error"])
		})
	}

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/events", `{`).Code)
	assert.Empty(t, f.svc.List())
}

func TestOccurrencesCache(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())

	rec := f.do(t, http.MethodPost, "/api/events", `{"date_description":"ngày mai","time":"08:00","title":"Khám răng"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	count := func() int {
		rec := f.do(t, http.MethodGet, "/api/occurrences?days=7", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp occurrencesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Asia/Ho_Chi_Minh", resp.DisplayTimeZone)
		return len(resp.Occurrences)
	}
	assert.Equal(t, 1, count())

	// Changes behind the server's back stay hidden until the cache expires.
	_, err := f.svc.Add("test", event.Args{DateDescription: "thứ 5", Time: "18:00", Title: "Đi bơi"})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	f.now = f.now.Add(occurrencesCacheTTL + time.Second)
	assert.Equal(t, 2, count())

	// Writes through the API clear the cache immediately.
	rec = f.do(t, http.MethodDelete, "/api/events/ev-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, count())
}

func TestOccurrencesExpandsRecurring(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())
	rec := f.do(t, http.MethodPost, "/api/events",
		`{"date_description":"hôm nay","time":"20:00","title":"Tập thể dục","description":"hàng ngày"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/occurrences?days=3&backfill=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp occurrencesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 3, 4, 5 June at 20:00; the 6th is past the window end at 10:00.
	assert.Len(t, resp.Occurrences, 3)
}

func TestCalendarFeed(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())
	_, err := f.svc.Add("test", event.Args{DateDescription: "ngày mai", Time: "08:00", Title: "Khám răng"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Khám răng")
	assert.Contains(t, body, "UID:ev-1@homeassist")
}

const importBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:pta@school\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"DTSTART:20240610T020000Z\r\n" +
	"SUMMARY:Họp phụ huynh\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:old@school\r\n" +
	"DTSTAMP:20240601T000000Z\r\n" +
	"DTSTART:20240510T020000Z\r\n" +
	"SUMMARY:Khai giảng\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImport(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())

	rec := f.do(t, http.MethodPost, "/api/events/import", importBody, "Content-Type", "text/calendar")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res event.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Added, 1)
	assert.Equal(t, "2024-06-10", res.Added[0].OriginalDate)
	assert.Equal(t, "09:00", res.Added[0].OriginalTime)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "old@school", res.Skipped[0].UID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/events/import", "").Code)
}

type stubForecaster struct{}

func (stubForecaster) Forecast(_ context.Context, _ string, days int) ([]weather.DayForecast, error) {
	start, _ := temporal.NewDate(2024, time.June, 3)
	out := make([]weather.DayForecast, days)
	for i := range out {
		out[i] = weather.DayForecast{Date: start.AddDays(i), TempMin: 26, TempMax: 33, Description: "nắng"}
	}
	return out, nil
}

func TestWeatherPlan(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())
	rec := f.do(t, http.MethodGet, "/api/weather/plan?q=ng%C3%A0y+mai", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp weatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hanoi", resp.Location)
	assert.Equal(t, "2024-06-04", resp.Request.Target.String())
	assert.Equal(t, 2, resp.Request.ForecastDays)
	assert.Nil(t, resp.Report)

	f = newFixture(t, config.DefaultConfig(), WithForecaster(stubForecaster{}))
	rec = f.do(t, http.MethodGet, "/api/weather/plan?q=ng%C3%A0y+mai&location=Da+Nang", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = weatherResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Da Nang", resp.Location)
	require.NotNil(t, resp.Report)
	require.NotNil(t, resp.Report.Day)
	assert.Equal(t, "2024-06-04", resp.Report.Day.Date.String())
}

func TestRemindersWithoutSweeper(t *testing.T) {
	f := newFixture(t, config.DefaultConfig())
	rec := f.do(t, http.MethodGet, "/api/reminders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reminders":[]}`, rec.Body.String())
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, parseIntDefault("", 7))
	assert.Equal(t, 7, parseIntDefault("x", 7))
	assert.Equal(t, 3, parseIntDefault("3", 7))
}
