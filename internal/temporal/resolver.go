package temporal

import (
	"strings"

	appLog "homeassist/internal/log"
)

// FallbackParser is a general-purpose free-text date parser. It is consulted
// only after every structural rule has failed, because generic parsers
// misread Vietnamese weekday names and calendar-section phrases.
type FallbackParser interface {
	ParseDate(term string, anchor Date) (Date, bool)
}

// Resolver turns a date phrase into a calendar date relative to an anchor.
// A Resolver holds no mutable state.
type Resolver struct {
	fallback FallbackParser
}

// NewResolver returns a Resolver using fallback as its last-resort parser.
// A nil fallback disables that stage.
func NewResolver(fallback FallbackParser) *Resolver {
	return &Resolver{fallback: fallback}
}

var defaultResolver = NewResolver(NewDateparserFallback(nil))

// DefaultResolver returns the package resolver backed by the dateparser
// fallback.
func DefaultResolver() *Resolver {
	return defaultResolver
}

// ResolveRelativeDate resolves term against anchor with the default resolver.
func ResolveRelativeDate(term string, anchor Date) (Date, bool) {
	return defaultResolver.Resolve(term, anchor)
}

type resolveStage struct {
	name string
	fn   func(term string, anchor Date) (Date, bool)
}

// Resolve runs the resolution cascade; the first stage that matches wins:
//
//  1. today aliases ("hôm nay", "tối nay", "today")
//  2. fixed offsets ("ngày mai", "mốt", "hôm qua"), optionally after a day part
//  3. weekday names, with an optional "next week" qualifier
//  4. start/mid/end of month, with an optional "next month" qualifier
//  5. explicit numeric dates (YYYY-MM-DD, DD/MM/YYYY, DD/MM)
//  6. the fallback parser
//  7. a bare day-part word ("sáng")
//
// The bool is false when nothing matched.
func (r *Resolver) Resolve(term string, anchor Date) (Date, bool) {
	t := normalize(term)
	if t == "" {
		appLog.Warn("resolve called with empty term")
		return Date{}, false
	}

	stages := []resolveStage{
		{"today", resolveToday},
		{"offset", resolveOffset},
		{"weekday", resolveWeekday},
		{"month_section", resolveMonthSection},
		{"explicit", resolveExplicit},
		{"fallback", r.resolveFallback},
		{"day_part", resolveBareDayPart},
	}
	for _, s := range stages {
		if d, ok := s.fn(t, anchor); ok {
			appLog.Debug("date resolved", "term", t, "stage", s.name, "anchor", anchor, "date", d)
			return d, true
		}
	}

	appLog.Warn("could not resolve date phrase", "term", t, "anchor", anchor)
	return Date{}, false
}

func resolveToday(t string, anchor Date) (Date, bool) {
	for _, a := range todayAliases {
		if t == a {
			return anchor, true
		}
	}
	for _, p := range todayPhrases {
		if containsWord(t, p) {
			return anchor, true
		}
	}
	return Date{}, false
}

// resolveOffset handles "ngày mai", "mốt", "hôm qua" and friends. Past
// offsets resolve normally; callers decide whether a past date is usable.
func resolveOffset(t string, anchor Date) (Date, bool) {
	candidates := []string{t}
	for _, dp := range dayPartWords {
		if strings.HasPrefix(t, dp.word+" ") {
			candidates = append(candidates, strings.TrimPrefix(t, dp.word+" "))
			break
		}
	}
	for _, c := range candidates {
		for _, a := range offsetAliases {
			if c == a.phrase || strings.HasPrefix(c, a.phrase+" ") {
				return anchor.AddDays(a.days), true
			}
		}
	}
	return Date{}, false
}

func resolveWeekday(t string, anchor Date) (Date, bool) {
	search := t
	nextWeek := false
	for _, p := range nextWeekPhrases {
		if containsWord(search, p) {
			nextWeek = true
			search = removeWord(search, p)
			break
		}
	}

	target, ok := findWeekday(search)
	if !ok {
		// "tuần sau" without a weekday means the start of next week.
		if nextWeek {
			return nextMonday(anchor), true
		}
		return Date{}, false
	}

	if nextWeek {
		return nextMonday(anchor).AddDays(int(target)), true
	}

	ahead := (int(target) - int(anchor.Weekday()) + 7) % 7
	if ahead == 0 {
		// Naming today's weekday means the next one.
		ahead = 7
	}
	return anchor.AddDays(ahead), true
}

// nextMonday returns the Monday that starts the week after anchor's week.
// When anchor is itself a Monday that is seven days out.
func nextMonday(anchor Date) Date {
	days := (7 - int(anchor.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return anchor.AddDays(days)
}

// findWeekday returns the weekday whose alias appears earliest in t.
func findWeekday(t string) (Weekday, bool) {
	best := -1
	var found Weekday
	for _, a := range weekdayAliases {
		if i := wordIndex(t, a.phrase); i >= 0 && (best < 0 || i < best) {
			best = i
			found = a.weekday
		}
	}
	return found, best >= 0
}

// findWeekdays returns every distinct weekday named in t.
func findWeekdays(t string) []Weekday {
	var seen [7]bool
	var out []Weekday
	for _, a := range weekdayAliases {
		if !seen[a.weekday] && containsWord(t, a.phrase) {
			seen[a.weekday] = true
			out = append(out, a.weekday)
		}
	}
	return out
}

type monthSection int

const (
	sectionStart monthSection = iota
	sectionMiddle
	sectionEnd
)

var monthSectionPhrases = []struct {
	section monthSection
	phrases []string
}{
	{sectionStart, []string{"đầu tháng", "start of the month", "start of month", "beginning of the month", "beginning of month", "early month"}},
	{sectionMiddle, []string{"giữa tháng", "middle of the month", "middle of month", "mid-month", "mid month"}},
	{sectionEnd, []string{"cuối tháng", "end of the month", "end of month", "late month"}},
}

const (
	startOfMonthDay   = 5
	middleOfMonthDay  = 15
	monthRolloverDays = 5
)

func resolveMonthSection(t string, anchor Date) (Date, bool) {
	qualified := false
	for _, p := range nextMonthPhrases {
		if t == p {
			return anchor.FirstOfNextMonth(), true
		}
		if containsWord(t, p) {
			qualified = true
		}
	}

	for _, ms := range monthSectionPhrases {
		for _, p := range ms.phrases {
			if !containsWord(t, p) {
				continue
			}
			base := anchor
			if qualified {
				base = anchor.FirstOfNextMonth()
			}
			switch ms.section {
			case sectionEnd:
				return base.LastDayOfMonth(), true
			default:
				day := startOfMonthDay
				if ms.section == sectionMiddle {
					day = middleOfMonthDay
				}
				if !qualified && anchor.Day > day+monthRolloverDays {
					base = anchor.FirstOfNextMonth()
				}
				return Date{Year: base.Year, Month: base.Month, Day: day}, true
			}
		}
	}
	return Date{}, false
}

func resolveExplicit(t string, anchor Date) (Date, bool) {
	t = strings.TrimPrefix(t, "ngày ")
	d, shaped, ok := parseExplicit(t, anchor)
	if shaped && !ok {
		appLog.Warn("explicit date is not on the calendar", "term", t)
	}
	return d, ok
}

func (r *Resolver) resolveFallback(t string, anchor Date) (Date, bool) {
	if r.fallback == nil || !hasWordRune(t) {
		return Date{}, false
	}
	return r.fallback.ParseDate(t, anchor)
}

func resolveBareDayPart(t string, anchor Date) (Date, bool) {
	for _, dp := range dayPartWords {
		if t == dp.word {
			return anchor, true
		}
	}
	return Date{}, false
}
