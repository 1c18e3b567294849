package weather

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeassist/internal/temporal"
)

func day(t *testing.T, s string) temporal.Date {
	t.Helper()
	d, err := temporal.ParseISO(s)
	require.NoError(t, err)
	return d
}

func TestPlan(t *testing.T) {
	anchor := day(t, "2024-06-03")
	r := temporal.NewResolver(nil)

	tests := []struct {
		query        string
		target       string
		resolved     bool
		daysAhead    int
		forecastDays int
		beyond       bool
		display      string
	}{
		{"hôm nay", "2024-06-03", true, 0, 1, false, "03/06/2024"},
		{"ngày mai", "2024-06-04", true, 1, 2, false, "04/06/2024"},
		{"thứ 6 tuần sau", "2024-06-14", true, 11, 7, true, "14/06/2024"},
		{"hôm qua", "2024-06-02", true, -1, 1, false, "02/06/2024"},
		{"khi nào đó", "2024-06-03", false, 0, 1, false, "03/06/2024"},
		{"", "2024-06-03", false, 0, 1, false, "03/06/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := Plan(r, tt.query, anchor, 7)
			assert.Equal(t, tt.target, req.Target.String())
			assert.Equal(t, tt.resolved, req.Resolved)
			assert.Equal(t, tt.daysAhead, req.DaysAhead)
			assert.Equal(t, tt.forecastDays, req.ForecastDays)
			assert.Equal(t, tt.beyond, req.BeyondRange)
			assert.Equal(t, tt.display, req.Display)
		})
	}
}

type fakeForecaster struct {
	gotLocation string
	gotDays     int
	days        []DayForecast
	err         error
}

func (f *fakeForecaster) Forecast(_ context.Context, location string, days int) ([]DayForecast, error) {
	f.gotLocation, f.gotDays = location, days
	return f.days, f.err
}

func TestForDate(t *testing.T) {
	anchor := day(t, "2024-06-03")
	req := Plan(temporal.NewResolver(nil), "ngày mai", anchor, 7)

	fc := &fakeForecaster{days: []DayForecast{
		{Date: anchor, TempMin: 27, TempMax: 35, Description: "nắng"},
		{Date: anchor.AddDays(1), TempMin: 26, TempMax: 31, Description: "mưa rào"},
	}}
	rep, err := ForDate(context.Background(), fc, req, "Hanoi")
	require.NoError(t, err)
	assert.Equal(t, "Hanoi", fc.gotLocation)
	assert.Equal(t, 2, fc.gotDays)
	require.NotNil(t, rep.Day)
	assert.Equal(t, "mưa rào", rep.Day.Description)

	fc.days = fc.days[:1]
	rep, err = ForDate(context.Background(), fc, req, "Hanoi")
	require.NoError(t, err)
	assert.Nil(t, rep.Day)

	fc.err = errors.New("upstream down")
	_, err = ForDate(context.Background(), fc, req, "Hanoi")
	assert.ErrorContains(t, err, "upstream down")

	_, err = ForDate(context.Background(), nil, req, "Hanoi")
	assert.ErrorIs(t, err, ErrNoForecaster)
}
