package temporal

import "time"

// Weekday is a day of the week with Monday=0 through Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return "Weekday(?)"
	}
	return weekdayNames[w]
}

// Quartz returns the day-of-week number used in schedule expressions,
// where Sunday=1 and Saturday=7.
func (w Weekday) Quartz() int {
	return (int(w)+1)%7 + 1
}

func weekdayFromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

type weekdayAlias struct {
	phrase  string
	weekday Weekday
}

// weekdayAliases lists every accepted spelling of a weekday.
var weekdayAliases = []weekdayAlias{
	{"thứ 2", Monday}, {"thứ hai", Monday}, {"t2", Monday}, {"monday", Monday},
	{"thứ 3", Tuesday}, {"thứ ba", Tuesday}, {"t3", Tuesday}, {"tuesday", Tuesday},
	{"thứ 4", Wednesday}, {"thứ tư", Wednesday}, {"t4", Wednesday}, {"wednesday", Wednesday},
	{"thứ 5", Thursday}, {"thứ năm", Thursday}, {"t5", Thursday}, {"thursday", Thursday},
	{"thứ 6", Friday}, {"thứ sáu", Friday}, {"t6", Friday}, {"friday", Friday},
	{"thứ 7", Saturday}, {"thứ bảy", Saturday}, {"thứ bẩy", Saturday}, {"t7", Saturday}, {"saturday", Saturday},
	{"chủ nhật", Sunday}, {"cn", Sunday}, {"sunday", Sunday},
}

var nextWeekPhrases = []string{"tuần sau", "tuần tới", "tuần kế tiếp", "next week"}

var nextMonthPhrases = []string{"tháng sau", "tháng tới", "next month"}

// todayAliases resolve to the anchor only on an exact match.
var todayAliases = []string{
	"hôm nay", "nay", "bây giờ", "hiện tại",
	"sáng nay", "trưa nay", "chiều nay", "tối nay", "đêm nay",
	"today", "now", "tonight", "this morning", "this afternoon", "this evening",
}

// todayPhrases resolve to the anchor wherever they appear as whole words.
var todayPhrases = []string{"hôm nay", "sáng nay", "trưa nay", "chiều nay", "tối nay", "đêm nay", "today", "tonight"}

type offsetAlias struct {
	phrase string
	days   int
}

// offsetAliases are matched exactly or as the leading words of a phrase.
// Longer phrases come first so "ngày mai" wins over "mai".
var offsetAliases = []offsetAlias{
	{"day after tomorrow", 2},
	{"ngày mai", 1},
	{"ngày kia", 2},
	{"ngày mốt", 2},
	{"hôm qua", -1},
	{"hôm kia", -2},
	{"tomorrow", 1},
	{"yesterday", -1},
	{"mai", 1},
	{"mốt", 2},
}

// DayPart is a coarse time-of-day bucket.
type DayPart int

const (
	Morning DayPart = iota
	Noon
	Afternoon
	Evening
	Night
)

type dayPartInfo struct {
	StartHour   int
	EndHour     int
	DefaultHour int
}

var dayPartTable = map[DayPart]dayPartInfo{
	Morning:   {StartHour: 6, EndHour: 11, DefaultHour: 8},
	Noon:      {StartHour: 11, EndHour: 14, DefaultHour: 12},
	Afternoon: {StartHour: 14, EndHour: 18, DefaultHour: 16},
	Evening:   {StartHour: 18, EndHour: 22, DefaultHour: 19},
	Night:     {StartHour: 22, EndHour: 6, DefaultHour: 22},
}

// DefaultHour is the clock hour used when only the day part is known.
func (p DayPart) DefaultHour() int {
	return dayPartTable[p].DefaultHour
}

type dayPartWord struct {
	word string
	part DayPart
}

// dayPartWords is scanned in order; Vietnamese first.
var dayPartWords = []dayPartWord{
	{"sáng", Morning},
	{"trưa", Noon},
	{"chiều", Afternoon},
	{"tối", Evening},
	{"đêm", Night},
	{"morning", Morning},
	{"noon", Noon},
	{"afternoon", Afternoon},
	{"evening", Evening},
	{"night", Night},
}

var (
	pmMarkers = []string{"chiều", "tối", "đêm", "pm"}
	amMarkers = []string{"sáng", "am"}
)

// recurringKeywords is the flat recurrence marker set, matched as whole words.
var recurringKeywords = []string{
	"hàng ngày", "hằng ngày", "mỗi ngày", "hàng tuần", "hằng tuần", "mỗi tuần",
	"hàng tháng", "hằng tháng", "mỗi tháng", "hàng năm", "hằng năm", "mỗi năm",
	"định kỳ", "lặp lại",
	"mỗi sáng thứ", "mỗi trưa thứ", "mỗi chiều thứ", "mỗi tối thứ",
	"mỗi thứ 2", "mỗi t2", "mỗi thứ 3", "mỗi t3", "mỗi thứ 4", "mỗi t4",
	"mỗi thứ 5", "mỗi t5", "mỗi thứ 6", "mỗi t6", "mỗi thứ 7", "mỗi t7",
	"mỗi chủ nhật", "mỗi cn",
	"vào các", "vào tất cả", "vào mọi",
	"daily", "every day", "everyday", "weekly", "every week", "monthly", "every month",
	"yearly", "annually", "every year", "recurring", "repeating",
	"every monday", "every tuesday", "every wednesday", "every thursday",
	"every friday", "every saturday", "every sunday",
}

// quantifierWords open the "all/every <weekday>" pattern family.
var quantifierWords = []string{"tất cả", "mọi", "các", "mỗi", "every", "each", "all"}

var dailyMarkers = []string{"hàng ngày", "hằng ngày", "mỗi ngày", "daily", "every day", "everyday"}

// longPeriodMarkers name monthly and yearly repetition.
var longPeriodMarkers = []string{
	"hàng tháng", "hằng tháng", "mỗi tháng", "monthly", "every month",
	"hàng năm", "hằng năm", "mỗi năm", "yearly", "annually", "every year",
}

var weeklyMarkers = []string{"hàng tuần", "hằng tuần", "mỗi tuần", "weekly", "every week", "every"}

// connectorWords are dropped from the edges of a phrase once a clock time has
// been cut out of it ("ngày mai lúc" -> "ngày mai").
var connectorWords = []string{"vào lúc", "lúc", "vào", "at", "@"}
