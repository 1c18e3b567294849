package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday.
const anchorISO = "2024-06-03"

type stubFallback struct {
	calls  []string
	result Date
	ok     bool
}

func (s *stubFallback) ParseDate(term string, anchor Date) (Date, bool) {
	s.calls = append(s.calls, term)
	return s.result, s.ok
}

func TestResolveStructuralRules(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	r := NewResolver(nil)

	tests := []struct {
		term string
		want string
	}{
		{"hôm nay", "2024-06-03"},
		{"Tối nay", "2024-06-03"},
		{"today", "2024-06-03"},
		{"họp hôm nay", "2024-06-03"},
		{"ngày mai", "2024-06-04"},
		{"mai", "2024-06-04"},
		{"tối mai", "2024-06-04"},
		{"tomorrow", "2024-06-04"},
		{"ngày mốt", "2024-06-05"},
		{"mốt", "2024-06-05"},
		{"day after tomorrow", "2024-06-05"},
		{"hôm qua", "2024-06-02"},
		{"hôm kia", "2024-06-01"},
		{"thứ 2", "2024-06-10"},
		{"thứ tư", "2024-06-05"},
		{"Thứ Sáu", "2024-06-07"},
		{"t7", "2024-06-08"},
		{"chủ nhật", "2024-06-09"},
		{"friday", "2024-06-07"},
		{"thứ 6 tuần sau", "2024-06-14"},
		{"thứ 2 tuần tới", "2024-06-10"},
		{"next week sunday", "2024-06-16"},
		{"tuần sau", "2024-06-10"},
		{"đầu tuần sau", "2024-06-10"},
		{"họp tuần sau", "2024-06-10"},
		{"đầu tháng", "2024-06-05"},
		{"giữa tháng", "2024-06-15"},
		{"cuối tháng", "2024-06-30"},
		{"đầu tháng sau", "2024-07-05"},
		{"cuối tháng sau", "2024-07-31"},
		{"tháng sau", "2024-07-01"},
		{"end of the month", "2024-06-30"},
		{"2024-07-01", "2024-07-01"},
		{"15/08/2024", "2024-08-15"},
		{"ngày 15/8", "2024-08-15"},
		{"01/01", "2025-01-01"},
		{"03/06", "2024-06-03"},
		{"sáng", "2024-06-03"},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, ok := r.Resolve(tt.term, anchor)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveUnresolvable(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	r := NewResolver(nil)

	for _, term := range []string{"", "   ", "32/13", "31/04/2024", "2023-02-29", "xyz abc", "?!"} {
		t.Run(term, func(t *testing.T) {
			got, ok := r.Resolve(term, anchor)
			assert.False(t, ok)
			assert.True(t, got.IsZero())
		})
	}
}

func TestResolveMonthSectionRollover(t *testing.T) {
	r := NewResolver(nil)
	late := mustDate(t, "2024-06-20")

	got, ok := r.Resolve("đầu tháng", late)
	require.True(t, ok)
	assert.Equal(t, "2024-07-05", got.String())

	got, ok = r.Resolve("giữa tháng", late)
	require.True(t, ok)
	assert.Equal(t, "2024-06-15", got.String())

	got, ok = r.Resolve("giữa tháng", mustDate(t, "2024-06-21"))
	require.True(t, ok)
	assert.Equal(t, "2024-07-15", got.String())

	got, ok = r.Resolve("cuối tháng sau", mustDate(t, "2024-12-10"))
	require.True(t, ok)
	assert.Equal(t, "2025-01-31", got.String())
}

func TestResolveLeapDayRollsToNextYear(t *testing.T) {
	got, ok := NewResolver(nil).Resolve("29/02", mustDate(t, "2023-03-01"))
	require.True(t, ok)
	assert.Equal(t, "2024-02-29", got.String())
}

func TestResolveWeekdayProperties(t *testing.T) {
	r := NewResolver(nil)
	start := mustDate(t, "2024-05-27")
	names := map[Weekday]string{
		Monday: "thứ 2", Tuesday: "thứ 3", Wednesday: "thứ 4", Thursday: "thứ 5",
		Friday: "thứ 6", Saturday: "thứ 7", Sunday: "chủ nhật",
	}

	for i := 0; i < 21; i++ {
		anchor := start.AddDays(i)
		for w, name := range names {
			got, ok := r.Resolve(name, anchor)
			require.True(t, ok)
			assert.Equal(t, w, got.Weekday(), "%s from %s", name, anchor)
			ahead := anchor.DaysUntil(got)
			assert.True(t, ahead >= 1 && ahead <= 7, "%s from %s is %d days ahead", name, anchor, ahead)

			next, ok := r.Resolve(name+" tuần sau", anchor)
			require.True(t, ok)
			assert.Equal(t, w, next.Weekday())
			monday := nextMonday(anchor)
			assert.False(t, next.Before(monday), "%s tuần sau from %s", name, anchor)
			assert.True(t, next.Before(monday.AddDays(7)), "%s tuần sau from %s", name, anchor)
		}
	}
}

func TestResolveISOIsIdempotent(t *testing.T) {
	r := NewResolver(nil)
	anchor := mustDate(t, anchorISO)
	for _, term := range []string{"ngày mai", "thứ 6 tuần sau", "cuối tháng", "15/8"} {
		first, ok := r.Resolve(term, anchor)
		require.True(t, ok)
		again, ok := r.Resolve(first.String(), anchor)
		require.True(t, ok)
		assert.Equal(t, first, again, term)
	}
}

func TestResolveUnicodeBoundaries(t *testing.T) {
	r := NewResolver(nil)
	anchor := mustDate(t, anchorISO)

	// "thứ 2" must not match inside "thứ 20".
	_, ok := r.Resolve("thứ 20", anchor)
	assert.False(t, ok)

	// Decomposed input is normalized before matching.
	got, ok := r.Resolve("thu\u031b\u0301 tu\u031b", anchor)
	require.True(t, ok)
	assert.Equal(t, "2024-06-05", got.String())
}

func TestResolveFallbackOrdering(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	holiday := mustDate(t, "2024-09-02")

	t.Run("structural rules win", func(t *testing.T) {
		fb := &stubFallback{result: holiday, ok: true}
		r := NewResolver(fb)
		for _, term := range []string{"hôm nay", "ngày mai", "thứ 6 tuần sau", "cuối tháng", "15/08/2024"} {
			_, ok := r.Resolve(term, anchor)
			require.True(t, ok)
		}
		assert.Empty(t, fb.calls)
	})

	t.Run("fallback used when nothing else matches", func(t *testing.T) {
		fb := &stubFallback{result: holiday, ok: true}
		got, ok := NewResolver(fb).Resolve("Lễ Quốc Khánh", anchor)
		require.True(t, ok)
		assert.Equal(t, holiday, got)
		assert.Equal(t, []string{"lễ quốc khánh"}, fb.calls)
	})

	t.Run("fallback runs before bare day part", func(t *testing.T) {
		fb := &stubFallback{}
		got, ok := NewResolver(fb).Resolve("sáng", anchor)
		require.True(t, ok)
		assert.Equal(t, anchor, got)
		assert.Equal(t, []string{"sáng"}, fb.calls)
	})

	t.Run("punctuation never reaches fallback", func(t *testing.T) {
		fb := &stubFallback{result: holiday, ok: true}
		_, ok := NewResolver(fb).Resolve("?!", anchor)
		assert.False(t, ok)
		assert.Empty(t, fb.calls)
	})
}

func TestResolveWithDateparserFallback(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	r := NewResolver(NewDateparserFallback(time.UTC))

	_, ok := r.Resolve("32/13", anchor)
	assert.False(t, ok)

	got, ok := r.Resolve("december 25", anchor)
	require.True(t, ok)
	assert.Equal(t, "2024-12-25", got.String())
	assert.False(t, got.Before(anchor))

	got, ok = r.Resolve("thứ 2", anchor)
	require.True(t, ok)
	assert.Equal(t, "2024-06-10", got.String())

	got, ok = r.Resolve("thứ 6 tuần sau", anchor)
	require.True(t, ok)
	assert.Equal(t, "2024-06-14", got.String())
}

func TestDefaultResolverScenarios(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	tests := []struct {
		term string
		want string
		ok   bool
	}{
		{"ngày mai", "2024-06-04", true},
		{"thứ 6 tuần sau", "2024-06-14", true},
		{"thứ 2", "2024-06-10", true},
		{"32/13", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, ok := ResolveRelativeDate(tt.term, anchor)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestParseExplicitDate(t *testing.T) {
	anchor := mustDate(t, anchorISO)
	got, ok := ParseExplicitDate("2024-6-9", anchor)
	require.True(t, ok)
	assert.Equal(t, "2024-06-09", got.String())

	_, ok = ParseExplicitDate("32/13", anchor)
	assert.False(t, ok)
	_, ok = ParseExplicitDate("thứ 2", anchor)
	assert.False(t, ok)
}
