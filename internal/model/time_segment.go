package model

import (
	"fmt"
	"strings"
)

// ── 周次类型 ──

// WeekParity 周次类型：每周 / 单周 / 双周
type WeekParity string

const (
	WeekAll  WeekParity = "all"
	WeekOdd  WeekParity = "odd"
	WeekEven WeekParity = "even"
)

// weekParityLiterals 选课网站原文 → 周次类型
var weekParityLiterals = map[string]WeekParity{
	"每周": WeekAll,
	"单周": WeekOdd,
	"双周": WeekEven,
}

// ParseWeekParity 解析周次类型，兼容 all/odd/even 与 每周/单周/双周 两种写法
func ParseWeekParity(s string) (WeekParity, error) {
	s = strings.TrimSpace(s)
	if p, ok := weekParityLiterals[s]; ok {
		return p, nil
	}
	switch WeekParity(strings.ToLower(s)) {
	case "", WeekAll:
		return WeekAll, nil
	case WeekOdd:
		return WeekOdd, nil
	case WeekEven:
		return WeekEven, nil
	}
	return "", fmt.Errorf("未知的周次类型 %q", s)
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *WeekParity) UnmarshalText(text []byte) error {
	v, err := ParseWeekParity(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Label 中文显示名
func (p WeekParity) Label() string {
	switch p {
	case WeekOdd:
		return "单周"
	case WeekEven:
		return "双周"
	default:
		return "每周"
	}
}

// CompatibleWith 两个周次类型是否可能落在同一周
// 每周与任意类型兼容；单周与双周永不相遇
func (p WeekParity) CompatibleWith(other WeekParity) bool {
	if p == WeekAll || other == WeekAll || p == "" || other == "" {
		return true
	}
	return p == other
}

// ── 时间段 ──

// TimeSegment 单个按周重复的上课时间段
type TimeSegment struct {
	WeekParity WeekParity `json:"weekParity"`
	DayOfWeek  int        `json:"dayOfWeek"` // 1-7，0 表示未识别
	Periods    []int      `json:"periods"`   // 节次，已展开
}

// Valid 星期已识别且节次非空
func (s TimeSegment) Valid() bool {
	return s.DayOfWeek >= 1 && s.DayOfWeek <= 7 && len(s.Periods) > 0
}

// SharesPeriod 两个时间段是否有共同节次
func (s TimeSegment) SharesPeriod(other TimeSegment) bool {
	if len(s.Periods) == 0 || len(other.Periods) == 0 {
		return false
	}
	seen := make(map[int]struct{}, len(s.Periods))
	for _, p := range s.Periods {
		seen[p] = struct{}{}
	}
	for _, p := range other.Periods {
		if _, ok := seen[p]; ok {
			return true
		}
	}
	return false
}

// ── 课程 ──

// RowRef 课程所在页面行的标识（提取时按行序分配）
type RowRef int

// NoRowRef 快照中恢复的课程没有对应页面行
const NoRowRef RowRef = -1

// Course 课表中的一行课程
type Course struct {
	Name         string        `json:"name"`
	TimeSegments []TimeSegment `json:"timeSegments"`
	RowRef       RowRef        `json:"-"`
}

// ConflictMap 候选课程行 → 与之冲突的已选课程名（按发现顺序，允许重复）
type ConflictMap map[RowRef][]string
