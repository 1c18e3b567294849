package temporal

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	appLog "homeassist/internal/log"
)

// lastDayOfMonth is the Quartz day-of-month token for "last day".
const lastDayOfMonth = "L"

var (
	viMonthlyPattern = regexp.MustCompile(`ngày\s+(\d{1,2}|cuối cùng|cuối)\s+(?:hàng|hằng|mỗi)\s+tháng`)
	enMonthlyPattern = regexp.MustCompile(`(?:day\s+(\d{1,2})|(last)\s+day)\s+of\s+(?:every|each|the)\s+month`)
)

// GenerateSchedule builds a 7-field Quartz expression
// (second minute hour day-of-month month day-of-week year).
//
// For Once it pins the exact date: "0 0 19 4 6 ? 2024". A zero date yields "".
// For Recurring the shape comes from the title and description:
//
//	daily                     0 M H ? * * *
//	weekly on named weekdays  0 M H ? * 2,6 *   (Sunday=1)
//	monthly on day N or last  0 M H N * ? *     (N or L)
//
// and "" when no shape can be decided. A clock that is not HH:MM is replaced
// by 19:00 and the substitution is logged.
func GenerateSchedule(date Date, clock string, v Verdict, title, description string) string {
	tod := clockOrDefault(clock)

	if v == Once {
		if date.IsZero() {
			appLog.Warn("one-off schedule requested without a date")
			return ""
		}
		expr := fmt.Sprintf("0 %d %d %d %d ? %d", tod.Minute, tod.Hour, date.Day, int(date.Month), date.Year)
		appLog.Debug("schedule generated", "kind", "once", "date", date, "time", tod, "expr", expr)
		return expr
	}

	text := normalize(description + " " + title)
	kind, expr := recurringExpression(text, tod)
	if expr == "" {
		appLog.Warn("recurring schedule is indeterminate", "text", truncate(text, 100))
		return ""
	}
	appLog.Debug("schedule generated", "kind", kind, "time", tod, "expr", expr)
	return expr
}

func recurringExpression(text string, tod TimeOfDay) (string, string) {
	for _, m := range dailyMarkers {
		if containsWord(text, m) {
			return "daily", fmt.Sprintf("0 %d %d ? * * *", tod.Minute, tod.Hour)
		}
	}

	if days := findWeekdays(text); len(days) > 0 && weeklySignal(text) {
		nums := make([]int, 0, len(days))
		for _, d := range days {
			nums = append(nums, d.Quartz())
		}
		sort.Ints(nums)
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = strconv.Itoa(n)
		}
		return "weekly", fmt.Sprintf("0 %d %d ? * %s *", tod.Minute, tod.Hour, strings.Join(parts, ","))
	}

	if dom, ok := monthlyDay(text); ok {
		return "monthly", fmt.Sprintf("0 %d %d %s * ? *", tod.Minute, tod.Hour, dom)
	}
	return "", ""
}

// weeklySignal reports whether a named weekday repeats weekly: a weekly
// marker, an "every <weekday>" phrase or any generic recurrence keyword
// ("định kỳ", "lặp lại", "recurring") that is not tied to another period.
func weeklySignal(text string) bool {
	for _, m := range weeklyMarkers {
		if containsWord(text, m) {
			return true
		}
	}
	if _, ok := everyWeekdayPhrase(text); ok {
		return true
	}
	for _, kw := range recurringKeywords {
		if isPeriodMarker(kw) {
			continue
		}
		if containsWord(text, kw) {
			return true
		}
	}
	return false
}

func isPeriodMarker(kw string) bool {
	for _, m := range dailyMarkers {
		if kw == m {
			return true
		}
	}
	for _, m := range longPeriodMarkers {
		if kw == m {
			return true
		}
	}
	return false
}

// monthlyDay returns the day-of-month token ("1".."31" or "L").
func monthlyDay(text string) (string, bool) {
	if m := viMonthlyPattern.FindStringSubmatch(text); m != nil {
		if strings.HasPrefix(m[1], "cuối") {
			return lastDayOfMonth, true
		}
		return validMonthDay(m[1])
	}
	if m := enMonthlyPattern.FindStringSubmatch(text); m != nil {
		if m[2] == "last" {
			return lastDayOfMonth, true
		}
		return validMonthDay(m[1])
	}
	return "", false
}

func validMonthDay(s string) (string, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 31 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// clockOrDefault parses clock, substituting DefaultTimeOfDay for anything
// malformed. The substitution is always logged.
func clockOrDefault(clock string) TimeOfDay {
	tod, err := ParseClock(strings.TrimSpace(clock))
	if err != nil {
		appLog.Warn("malformed time, using default", "input", clock, "used", DefaultTimeOfDay)
		return DefaultTimeOfDay
	}
	return tod
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
