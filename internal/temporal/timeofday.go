package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	appLog "homeassist/internal/log"
)

const markerGroup = `(?:\s*(am|pm|sáng|trưa|chiều|tối|đêm))?`

var (
	// 7:30, 19.45, 7:30 tối
	colonClockPattern = regexp.MustCompile(`(\d{1,2})[:.](\d{2})` + markerGroup)
	// 8h, 8h30, 8 giờ, 8 giờ 30 phút sáng
	hourClockPattern = regexp.MustCompile(`(\d{1,2})\s*(?:h|giờ)(?:\s*(\d{1,2})(?:\s*phút)?)?` + markerGroup)
)

// ExtractTimeOfDay pulls a clock time out of a phrase.
//
// An explicit clock (7:30, 19.45, 8h30, 8 giờ) wins and is cut out of the
// returned phrase; a trailing am/pm or day-part marker shifts it to the
// 24-hour clock. Otherwise the first bare day-part word found ("sáng",
// "tối", ...) yields that part's default hour and the phrase is returned
// unchanged. The bool is false when neither is present.
func ExtractTimeOfDay(term string) (string, TimeOfDay, bool) {
	cleaned := normalize(term)
	if cleaned == "" {
		return cleaned, TimeOfDay{}, false
	}

	for _, p := range []*regexp.Regexp{colonClockPattern, hourClockPattern} {
		if start, end, tod, marked, ok := findClock(p, cleaned); ok {
			rest := strings.Join(strings.Fields(cleaned[:start]+" "+cleaned[end:]), " ")
			rest = trimConnectors(rest)
			if !marked {
				tod = applyDayPartContext(tod, rest)
			}
			appLog.Debug("time of day extracted", "term", cleaned, "time", tod.String(), "rest", rest)
			return rest, tod, true
		}
	}

	for _, dp := range dayPartWords {
		if containsWord(cleaned, dp.word) {
			tod := TimeOfDay{Hour: dp.part.DefaultHour()}
			appLog.Debug("day part mapped to time", "term", cleaned, "word", dp.word, "time", tod.String())
			return cleaned, tod, true
		}
	}

	return cleaned, TimeOfDay{}, false
}

// findClock returns the span and value of the first acceptable clock match,
// and whether a trailing marker was applied to it.
func findClock(p *regexp.Regexp, s string) (int, int, TimeOfDay, bool, bool) {
	for _, loc := range p.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[0], loc[1]
		if !clockBoundaryBefore(s, start) {
			continue
		}

		hour, _ := strconv.Atoi(s[loc[2]:loc[3]])
		minute := 0
		if loc[4] >= 0 {
			minute, _ = strconv.Atoi(s[loc[4]:loc[5]])
		}

		// End of the numeric part, before any marker.
		numEnd := end
		if loc[6] >= 0 {
			numEnd = loc[6]
			for numEnd > start && s[numEnd-1] == ' ' {
				numEnd--
			}
		}
		if !clockBoundaryAfter(s, numEnd, p == hourClockPattern && loc[4] < 0) {
			continue
		}

		marker := ""
		if loc[6] >= 0 {
			if boundaryAfter(s, loc[7]) {
				marker = s[loc[6]:loc[7]]
			} else {
				end = numEnd
			}
		}

		tod := applyMarker(TimeOfDay{Hour: hour, Minute: minute}, marker)
		if !tod.valid() {
			continue
		}
		return start, end, tod, marker != "", true
	}
	return 0, 0, TimeOfDay{}, false, false
}

// applyDayPartContext reads "tối nay 8h" as 20:00: an afternoon or evening
// word elsewhere in the phrase moves a morning-range hour past noon.
func applyDayPartContext(t TimeOfDay, rest string) TimeOfDay {
	for _, dp := range dayPartWords {
		if !containsWord(rest, dp.word) {
			continue
		}
		switch dp.part {
		case Noon:
			if t.Hour < 3 {
				t.Hour += 12
			}
		case Afternoon, Evening:
			if t.Hour < 12 {
				t.Hour += 12
			}
		case Night:
			if t.Hour >= 6 && t.Hour < 12 {
				t.Hour += 12
			}
		}
		return t
	}
	return t
}

func applyMarker(t TimeOfDay, marker string) TimeOfDay {
	// Noon runs 11 to 14, so "1 giờ trưa" is 13:00 and "11h trưa" stays.
	if marker == "trưa" {
		if t.Hour < 3 {
			t.Hour += 12
		}
		return t
	}
	for _, pm := range pmMarkers {
		if marker == pm && t.Hour < 12 {
			t.Hour += 12
			return t
		}
	}
	for _, am := range amMarkers {
		if marker == am && t.Hour == 12 {
			t.Hour = 0
			return t
		}
	}
	return t
}

func clockBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r) && !strings.ContainsRune("/:.-", r)
}

// clockBoundaryAfter rejects "10.2024" and "2 hàng tuần". When bareHour is
// set the unit letter itself ends the match and must not run into a word.
func clockBoundaryAfter(s string, i int, bareHour bool) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	if unicode.IsDigit(r) || strings.ContainsRune("/:.-", r) {
		return false
	}
	return !bareHour || !isWordRune(r)
}

func trimConnectors(s string) string {
	for changed := true; changed; {
		changed = false
		for _, w := range connectorWords {
			if s == w {
				return ""
			}
			if strings.HasPrefix(s, w+" ") {
				s = strings.TrimSpace(s[len(w):])
				changed = true
			}
			if strings.HasSuffix(s, " "+w) {
				s = strings.TrimSpace(s[:len(s)-len(w)])
				changed = true
			}
		}
	}
	return s
}
