// Package calendar 提供工作日判定与周分桶等日期工具
// 纯函数，无状态
package calendar

import (
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// WeekMode 周键计算模式
type WeekMode string

const (
	// WeekModeCalendar 日历周（周一为锚点）
	WeekModeCalendar WeekMode = "calendar"
	// WeekModeWindow 窗口周（以排班窗口起始日为锚点，每 7 天一桶）
	WeekModeWindow WeekMode = "window"
)

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays 日期加减
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// Range 枚举从 start 起连续 count 天
func Range(start time.Time, count int) []time.Time {
	days := make([]time.Time, count)
	for i := 0; i < count; i++ {
		days[i] = AddDays(start, i)
	}
	return days
}

// IsWeekday 是否为周一至周五
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsWorkday 是否为工作日（平日且非公休日）
func IsWorkday(t time.Time, holidays map[string]bool) bool {
	if !IsWeekday(t) {
		return false
	}
	return !holidays[FormatDate(t)]
}

// WeekKey 返回日期所属周的键
// calendar 模式下为该周周一的日期；window 模式下为所属 7 天桶首日的日期
func WeekKey(t time.Time, mode WeekMode, windowStart time.Time) string {
	switch mode {
	case WeekModeWindow:
		offset := int(t.Sub(windowStart).Hours() / 24)
		if offset < 0 {
			offset -= 6 // 窗口前的日期归入前一个桶
		}
		bucket := offset / 7
		return FormatDate(AddDays(windowStart, bucket*7))
	default:
		diffToMonday := (int(t.Weekday()) + 6) % 7 // Mon=0
		return FormatDate(AddDays(t, -diffToMonday))
	}
}

// WeekKeys 收集一段日期涉及的所有周键（保持出现顺序）
func WeekKeys(days []time.Time, mode WeekMode, windowStart time.Time) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, d := range days {
		k := WeekKey(d, mode, windowStart)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
