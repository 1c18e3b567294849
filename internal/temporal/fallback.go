package temporal

import (
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// DateparserFallback adapts go-dateparser to FallbackParser. It reads
// Vietnamese and English, prefers future dates, keeps the current day of
// month for month-only phrases and uses the anchor as its relative base.
type DateparserFallback struct {
	parser *dps.Parser
	loc    *time.Location
}

// NewDateparserFallback returns a fallback evaluating phrases in loc
// (time.Local when nil).
func NewDateparserFallback(loc *time.Location) *DateparserFallback {
	if loc == nil {
		loc = time.Local
	}
	return &DateparserFallback{
		parser: &dps.Parser{},
		loc:    loc,
	}
}

func (f *DateparserFallback) ParseDate(term string, anchor Date) (Date, bool) {
	cfg := &dps.Configuration{
		Languages:           []string{"vi", "en"},
		CurrentTime:         anchor.Time(12, 0, f.loc),
		DefaultTimezone:     f.loc,
		PreferredDayOfMonth: dps.Current,
		PreferredDateSource: dps.Future,
	}
	dt, err := f.parser.Parse(cfg, term)
	if err != nil || dt.Time.IsZero() {
		return Date{}, false
	}
	return DateOf(dt.Time.In(f.loc)), true
}
