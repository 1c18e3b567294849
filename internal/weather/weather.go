// Package weather grounds forecast lookups on a resolved calendar date. The
// forecast provider itself is injected.
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appLog "homeassist/internal/log"
	"homeassist/internal/temporal"
)

const displayLayout = "02/01/2006"

// Request describes which forecast to fetch for a date phrase.
type Request struct {
	Query string `json:"query"`
	// Target is the resolved date, or the anchor when the phrase was not
	// understood.
	Target   temporal.Date `json:"target"`
	Resolved bool          `json:"resolved"`
	// DaysAhead is negative for past dates.
	DaysAhead int `json:"days_ahead"`
	// ForecastDays is how many days to ask the provider for, clamped to
	// [1, maxDays].
	ForecastDays int `json:"forecast_days"`
	// BeyondRange is set when Target lies past the last forecast day.
	BeyondRange bool   `json:"beyond_range"`
	Display     string `json:"display"`
}

// Plan resolves description against anchor and sizes the forecast request.
func Plan(r *temporal.Resolver, description string, anchor temporal.Date, maxDays int) Request {
	if r == nil {
		r = temporal.DefaultResolver()
	}
	if maxDays < 1 {
		maxDays = 1
	}

	req := Request{Query: description}
	target, ok := temporal.Date{}, false
	if strings.TrimSpace(description) != "" {
		target, ok = r.Resolve(description, anchor)
	}
	if !ok {
		appLog.Warn("weather date not understood, using today", "query", description, "anchor", anchor)
		target = anchor
	}
	req.Target = target
	req.Resolved = ok
	req.DaysAhead = anchor.DaysUntil(target)
	req.ForecastDays = req.DaysAhead + 1
	if req.ForecastDays < 1 {
		req.ForecastDays = 1
	}
	if req.ForecastDays > maxDays {
		appLog.Warn("requested date beyond forecast range", "days_ahead", req.DaysAhead, "max_days", maxDays)
		req.ForecastDays = maxDays
		req.BeyondRange = true
	}
	req.Display = target.Time(12, 0, nil).Format(displayLayout)
	return req
}

// DayForecast is one day of an upstream forecast.
type DayForecast struct {
	Date        temporal.Date `json:"date"`
	TempMin     float64       `json:"temp_min"`
	TempMax     float64       `json:"temp_max"`
	Description string        `json:"description"`
}

// Forecaster fetches a multi-day forecast for a named place.
type Forecaster interface {
	Forecast(ctx context.Context, location string, days int) ([]DayForecast, error)
}

// Report is a forecast narrowed to the requested date.
type Report struct {
	Location string        `json:"location"`
	Request  Request       `json:"request"`
	Day      *DayForecast  `json:"day,omitempty"`
	Days     []DayForecast `json:"days"`
}

var ErrNoForecaster = errors.New("weather: no forecast provider configured")

// ForDate fetches the forecast for req at location and picks out the target
// day. Day is nil when the provider returned no entry for it.
func ForDate(ctx context.Context, f Forecaster, req Request, location string) (Report, error) {
	if f == nil {
		return Report{}, ErrNoForecaster
	}
	days, err := f.Forecast(ctx, location, req.ForecastDays)
	if err != nil {
		appLog.Error("weather forecast failed", err, "location", location, "days", req.ForecastDays)
		return Report{}, fmt.Errorf("forecast %s: %w", location, err)
	}

	rep := Report{Location: location, Request: req, Days: days}
	for i := range days {
		if days[i].Date == req.Target {
			rep.Day = &days[i]
			break
		}
	}
	appLog.Info("weather forecast fetched", "location", location, "target", req.Target, "found", rep.Day != nil)
	return rep, nil
}
