package service

import (
	"regexp"
	"strconv"
	"strings"

	"elective-helper/internal/model"
)

// ── 上课时间解析器 ──────────────────────────────────────────
//
// 职责：将选课网站"上课时间"单元格文本解析为 TimeSegment 列表。
//
// 单元格形如：
//   每周周一3~4节<br>单周周三5~6节
//   周数信息1-16周 ... 节 之类的注释混在其中，与按周冲突无关，解析前剔除
//
// 缺失任一要素不报错：星期缺失或节次为空的时间段由调用方丢弃。
// ─────────────────────────────────────────────────────────────

var (
	weekParityPattern = regexp.MustCompile(`每周|单周|双周`)
	dayPattern        = regexp.MustCompile(`周([一二三四五六日])`)
	periodPattern     = regexp.MustCompile(`(\d+)~(\d+)节`)
	weekRangeNoise    = regexp.MustCompile(`周数信息.*?节`)
	lineBreakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|\r?\n`)
)

// maxPeriodIndex 节次上限，超出视为格式错误
const maxPeriodIndex = 32

var dayOfWeekMap = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5, "六": 6, "日": 7,
}

// ParseTimeSegment 解析单条时间信息（如 "每周周一3~4节"）
func ParseTimeSegment(text string) model.TimeSegment {
	seg := model.TimeSegment{WeekParity: model.WeekAll}

	if m := weekParityPattern.FindString(text); m != "" {
		if p, err := model.ParseWeekParity(m); err == nil {
			seg.WeekParity = p
		}
	}

	if m := dayPattern.FindStringSubmatch(text); m != nil {
		seg.DayOfWeek = dayOfWeekMap[m[1]]
	}

	seg.Periods = parsePeriodRange(text)
	return seg
}

// parsePeriodRange 展开 "3~4节" 为 [3 4]；缺失、起止倒置或超出 maxPeriodIndex 时返回空
func parsePeriodRange(text string) []int {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return []int{}
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return []int{}
	}
	end, err := strconv.Atoi(m[2])
	if err != nil || end < start || end > maxPeriodIndex {
		return []int{}
	}
	periods := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		periods = append(periods, i)
	}
	return periods
}

// ExtractTimeSegments 解析完整的上课时间单元格（可能包含多个时间段）
func ExtractTimeSegments(raw string) []model.TimeSegment {
	segments := []model.TimeSegment{}
	for _, fragment := range lineBreakPattern.Split(raw, -1) {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		clean := weekRangeNoise.ReplaceAllString(fragment, "")
		seg := ParseTimeSegment(clean)
		if seg.Valid() {
			segments = append(segments, seg)
		}
	}
	return segments
}
