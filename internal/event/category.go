package event

import (
	appLog "homeassist/internal/log"
	"homeassist/internal/temporal"
)

// CategoryGeneral is assigned when no keyword matches.
const CategoryGeneral = "General"

type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules is ordered by priority; the first matching category wins.
var categoryRules = []categoryRule{
	{"Health", []string{"khám sức khỏe", "khám bệnh", "khám răng", "uống thuốc", "bác sĩ", "nha sĩ", "tái khám", "bệnh viện", "tập luyện", "gym", "yoga", "chạy bộ", "thể dục", "doctor", "dentist"}},
	{"Study", []string{"học", "lớp học", "ôn tập", "bài tập", "deadline", "thuyết trình", "seminar", "workshop", "thi", "kiểm tra", "homework", "exam"}},
	{"Meeting", []string{"họp", "hội nghị", "phỏng vấn", "gặp mặt", "trao đổi", "thảo luận", "team sync", "standup", "meeting"}},
	{"Travel", []string{"bay", "chuyến bay", "tàu", "xe", "đi công tác", "du lịch", "sân bay", "ga tàu", "di chuyển", "check-in", "check-out", "flight"}},
	{"Reminder", []string{"nhắc", "nhớ", "mua", "gọi điện", "thanh toán", "đặt lịch", "nộp", "đến hạn", "chuyển tiền", "lấy đồ", "đóng tiền"}},
	{"Event", []string{"sinh nhật", "kỷ niệm", "lễ", "tiệc", "liên hoan", "đám cưới", "đám hỏi", "ăn mừng", "tụ tập", "sum họp", "event", "birthday", "party"}},
	{"Personal", []string{"riêng tư", "cá nhân", "sở thích", "đọc sách", "xem phim", "thời gian riêng", "cắt tóc", "spa", "làm đẹp"}},
	{"Break", []string{"nghỉ ngơi", "thư giãn", "giải lao", "ăn trưa", "ăn tối", "ngủ trưa", "nghỉ phép"}},
}

// Categorize assigns a category from whole-word keywords in the title and
// description.
func Categorize(title, description string) string {
	if title == "" && description == "" {
		return CategoryGeneral
	}
	text := temporal.Normalize(title + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if temporal.ContainsWord(text, kw) {
				appLog.Debug("event categorized", "category", rule.name, "keyword", kw)
				return rule.name
			}
		}
	}
	return CategoryGeneral
}
