package dto

import "elective-helper/internal/model"

// ── 上课时间解析 ──

// ParseSegmentsRequest 解析上课时间文本请求
type ParseSegmentsRequest struct {
	Text string `json:"text" binding:"required"`
}

// ParseSegmentsResponse 解析结果（仅保留有效时间段）
type ParseSegmentsResponse struct {
	Segments []model.TimeSegment `json:"segments"`
}

// ── 冲突检测 ──

// CourseInput 待检测课程；rowRef 缺省时按列表下标分配
type CourseInput struct {
	RowRef       *int                `json:"rowRef,omitempty"`
	Name         string              `json:"name" binding:"required"`
	TimeSegments []model.TimeSegment `json:"timeSegments"`
}

// DetectConflictsRequest 冲突检测请求
type DetectConflictsRequest struct {
	Candidates []CourseInput  `json:"candidates"`
	Reference  []model.Course `json:"reference"`
}

// ConflictItem 单门候选课程的冲突结果
type ConflictItem struct {
	RowRef        int      `json:"row_ref"`
	CourseName    string   `json:"course_name"`
	ConflictsWith []string `json:"conflicts_with"`
}

// DetectConflictsResponse 冲突检测响应（按 row_ref 升序）
type DetectConflictsResponse struct {
	Conflicts []ConflictItem `json:"conflicts"`
}

// ── 页面分析 ──

// 页面分析动作
const (
	ActionStored          = "stored"           // 选课结果页：已保存快照
	ActionHighlighted     = "highlighted"      // 候选页：已标记冲突
	ActionBaselineMissing = "baseline_missing" // 候选页：尚无已选课程快照
	ActionIgnored         = "ignored"          // 未识别的页面
)

// AnalyzePageRequest 页面分析请求（由浏览器脚本提交）
type AnalyzePageRequest struct {
	URL  string `json:"url" binding:"required"`
	HTML string `json:"html" binding:"required"`
}

// RowHighlight 单行渲染结果，供脚本直接应用到页面
type RowHighlight struct {
	RowRef        int      `json:"row_ref"`
	CourseName    string   `json:"course_name"`
	Conflict      bool     `json:"conflict"`
	Color         string   `json:"color"`
	Title         string   `json:"title"`
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

// AnalyzePageResponse 页面分析响应
type AnalyzePageResponse struct {
	PageKind        string         `json:"page_kind"`
	Action          string         `json:"action"`
	Message         string         `json:"message,omitempty"`
	CourseCount     int            `json:"course_count"`
	EnrolledCount   int            `json:"enrolled_count"`
	BaselineMissing bool           `json:"baseline_missing"`
	Rows            []RowHighlight `json:"rows"`
	HTML            string         `json:"html,omitempty"`
}

// ── 已选课程快照 ──

// SaveSnapshotRequest 手动覆盖快照
type SaveSnapshotRequest struct {
	Courses []model.Course `json:"courses"`
}

// SnapshotResponse 快照内容
type SnapshotResponse struct {
	Count   int            `json:"count"`
	Courses []model.Course `json:"courses"`
}
