package temporal

import (
	"fmt"
	"strings"

	appLog "homeassist/internal/log"
)

// Verdict says whether an event happens once or repeats.
type Verdict int

const (
	Once Verdict = iota
	Recurring
)

func (v Verdict) String() string {
	if v == Recurring {
		return "RECURRING"
	}
	return "ONCE"
}

// ParseVerdict accepts "ONCE" or "RECURRING" in any case.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ONCE", "":
		return Once, nil
	case "RECURRING":
		return Recurring, nil
	}
	return Once, fmt.Errorf("temporal: unknown recurrence %q", s)
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(b []byte) error {
	parsed, err := ParseVerdict(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ClassifyRecurrence decides from an event's title and description whether it
// repeats. Either signal is enough:
//
//   - a quantifier ("mỗi", "mọi", "các", "every", ...) followed anywhere later
//     by a weekday name;
//   - a whole-word recurrence keyword ("hàng tuần", "daily", ...).
//
// The result does not depend on which of the two fields holds the words.
func ClassifyRecurrence(title, description string) Verdict {
	texts := bothOrders(title, description)
	for _, text := range texts {
		if q, ok := everyWeekdayPhrase(text); ok {
			appLog.Debug("recurrence pattern matched", "quantifier", q)
			return Recurring
		}
	}
	for _, text := range texts {
		for _, kw := range recurringKeywords {
			if containsWord(text, kw) {
				appLog.Debug("recurrence keyword matched", "keyword", kw)
				return Recurring
			}
		}
	}
	return Once
}

func bothOrders(title, description string) []string {
	return []string{
		normalize(description + " " + title),
		normalize(title + " " + description),
	}
}

// everyWeekdayPhrase reports whether a quantifier word is followed by a
// weekday name somewhere after it.
func everyWeekdayPhrase(text string) (string, bool) {
	for _, q := range quantifierWords {
		i := wordIndex(text, q)
		if i < 0 {
			continue
		}
		rest := text[i+len(q):]
		if _, ok := findWeekday(rest); ok {
			return q, true
		}
	}
	return "", false
}
