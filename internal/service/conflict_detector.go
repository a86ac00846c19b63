package service

import "elective-helper/internal/model"

// IsConflict 检查两个时间段是否冲突
// 周次兼容、同一星期、至少一个共同节次，三者同时成立
func IsConflict(a, b model.TimeSegment) bool {
	// 检查周次类型
	if !a.WeekParity.CompatibleWith(b.WeekParity) {
		return false
	}
	// 检查星期
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	// 检查节次重叠
	return a.SharesPeriod(b)
}

// CoursesConflict 两门课程任一时间段相撞即冲突
func CoursesConflict(a, b model.Course) bool {
	for _, sa := range a.TimeSegments {
		for _, sb := range b.TimeSegments {
			if IsConflict(sa, sb) {
				return true
			}
		}
	}
	return false
}

// DetectConflicts 检查候选课程与已选课程间的所有时间段冲突
//
// 结果以候选课程的 RowRef 为键；每对相撞的时间段追加一次已选课程名，
// 因此同一门已选课程可能出现多次（去重在渲染层按配置处理）。
func DetectConflicts(candidates, reference []model.Course) model.ConflictMap {
	conflicts := make(model.ConflictMap)
	for _, course := range candidates {
		for _, enrolled := range reference {
			for _, seg1 := range course.TimeSegments {
				for _, seg2 := range enrolled.TimeSegments {
					if IsConflict(seg1, seg2) {
						conflicts[course.RowRef] = append(conflicts[course.RowRef], enrolled.Name)
					}
				}
			}
		}
	}
	return conflicts
}

// dedupeNames 按首次出现顺序去重
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}
	return result
}
