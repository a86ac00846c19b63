package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"elective-helper/internal/dto"
	"elective-helper/internal/model"
)

// ── 选课冲突模块业务错误 ──

var (
	ErrElectiveInvalidHTML    = errors.New("页面 HTML 解析失败")
	ErrElectiveSnapshotFailed = errors.New("已选课程快照读写失败")
	ErrElectiveRenderFailed   = errors.New("生成标记后的页面失败")
)

const msgBaselineMissing = "未找到已选课程数据，请先访问已选课程页面"

// ── ElectiveService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 每次页面加载由浏览器脚本调用一次 AnalyzePage，服务端无后台任务。
//   - 选课结果页：提取课程并整体替换会话快照。
//   - 其余三类候选页：读取快照 → 冲突检测 → 写回高亮；快照为空时仅提示。
//   - 冲突检测本身是纯函数（DetectConflicts），不依赖存储与页面。
// ─────────────────────────────────────────────────────────────

// ElectiveService 选课冲突模块业务接口
type ElectiveService interface {
	// AnalyzePage 分析一次页面加载
	AnalyzePage(ctx context.Context, sessionID string, req *dto.AnalyzePageRequest) (*dto.AnalyzePageResponse, error)
	// ParseSegments 解析上课时间文本
	ParseSegments(ctx context.Context, req *dto.ParseSegmentsRequest) (*dto.ParseSegmentsResponse, error)
	// DetectConflicts 对给定的两组课程做冲突检测
	DetectConflicts(ctx context.Context, req *dto.DetectConflictsRequest) (*dto.DetectConflictsResponse, error)
	// GetSnapshot 获取会话的已选课程快照
	GetSnapshot(ctx context.Context, sessionID string) (*dto.SnapshotResponse, error)
	// SaveSnapshot 手动覆盖已选课程快照
	SaveSnapshot(ctx context.Context, sessionID string, req *dto.SaveSnapshotRequest) (*dto.SnapshotResponse, error)
	// ClearSnapshot 清空已选课程快照
	ClearSnapshot(ctx context.Context, sessionID string) error
}

type electiveService struct {
	store   SnapshotStore
	adapter *PageAdapter
	logger  *zap.Logger
}

// NewElectiveService 创建 ElectiveService 实例
func NewElectiveService(store SnapshotStore, adapter *PageAdapter, logger *zap.Logger) ElectiveService {
	return &electiveService{store: store, adapter: adapter, logger: logger}
}

// ════════════════════════════════════════════════════════════
// AnalyzePage — 页面分析
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 按 URL 判断页面类型，未识别则不处理
//   2. 解析 HTML，按布局提取课程
//   3. 结果页保存快照；候选页读取快照、检测冲突并渲染

func (s *electiveService) AnalyzePage(ctx context.Context, sessionID string, req *dto.AnalyzePageRequest) (*dto.AnalyzePageResponse, error) {
	kind := DetectPageKind(req.URL)
	layout, ok := s.adapter.Layout(kind)
	if kind == PageUnknown || !ok {
		return &dto.AnalyzePageResponse{
			PageKind: string(PageUnknown),
			Action:   dto.ActionIgnored,
			Rows:     []dto.RowHighlight{},
		}, nil
	}

	doc, err := s.adapter.ParseDocument(strings.NewReader(req.HTML))
	if err != nil {
		s.logger.Warn("页面 HTML 解析失败", zap.String("page_kind", string(kind)), zap.Error(err))
		return nil, ErrElectiveInvalidHTML
	}

	courses := s.adapter.ExtractCourses(doc, layout)
	if layout.Rows(doc).Length() == 0 {
		s.logger.Warn("未找到课程表格", zap.String("page_kind", string(kind)))
	}

	resp := &dto.AnalyzePageResponse{
		PageKind:    string(kind),
		CourseCount: len(courses),
		Rows:        []dto.RowHighlight{},
	}

	if !kind.IsCandidate() {
		if err := s.store.Save(ctx, sessionID, courses); err != nil {
			s.logger.Error("保存已选课程快照失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrElectiveSnapshotFailed, err)
		}
		s.logger.Info("已选课程数据已存储", zap.String("session_id", sessionID), zap.Int("count", len(courses)))
		resp.Action = dto.ActionStored
		resp.EnrolledCount = len(courses)
		return resp, nil
	}

	enrolled, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.logger.Error("读取已选课程快照失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrElectiveSnapshotFailed, err)
	}
	resp.EnrolledCount = len(enrolled)
	if len(enrolled) == 0 {
		resp.Action = dto.ActionBaselineMissing
		resp.BaselineMissing = true
		resp.Message = msgBaselineMissing
		return resp, nil
	}

	conflicts := DetectConflicts(courses, enrolled)
	resp.Rows = s.adapter.Render(doc, layout, courses, conflicts)

	html, err := doc.Html()
	if err != nil {
		s.logger.Error("生成页面 HTML 失败", zap.Error(err))
		return nil, ErrElectiveRenderFailed
	}
	resp.HTML = html
	resp.Action = dto.ActionHighlighted

	s.logger.Debug("冲突检测完成",
		zap.String("page_kind", string(kind)),
		zap.Int("candidates", len(courses)),
		zap.Int("enrolled", len(enrolled)),
		zap.Int("conflicting", len(conflicts)),
	)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ParseSegments / DetectConflicts — 纯计算接口
// ════════════════════════════════════════════════════════════

func (s *electiveService) ParseSegments(_ context.Context, req *dto.ParseSegmentsRequest) (*dto.ParseSegmentsResponse, error) {
	return &dto.ParseSegmentsResponse{Segments: ExtractTimeSegments(req.Text)}, nil
}

func (s *electiveService) DetectConflicts(_ context.Context, req *dto.DetectConflictsRequest) (*dto.DetectConflictsResponse, error) {
	candidates := make([]model.Course, 0, len(req.Candidates))
	names := make(map[model.RowRef]string, len(req.Candidates))
	for i, in := range req.Candidates {
		ref := model.RowRef(i)
		if in.RowRef != nil {
			ref = model.RowRef(*in.RowRef)
		}
		c := sanitizeCourse(model.Course{Name: in.Name, TimeSegments: in.TimeSegments, RowRef: ref})
		candidates = append(candidates, c)
		names[ref] = c.Name
	}

	reference := make([]model.Course, 0, len(req.Reference))
	for _, c := range req.Reference {
		reference = append(reference, sanitizeCourse(c))
	}

	conflicts := DetectConflicts(candidates, reference)

	refs := make([]model.RowRef, 0, len(conflicts))
	for ref := range conflicts {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	items := make([]dto.ConflictItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, dto.ConflictItem{
			RowRef:        int(ref),
			CourseName:    names[ref],
			ConflictsWith: conflicts[ref],
		})
	}
	return &dto.DetectConflictsResponse{Conflicts: items}, nil
}

// ════════════════════════════════════════════════════════════
// 快照 CRUD
// ════════════════════════════════════════════════════════════

func (s *electiveService) GetSnapshot(ctx context.Context, sessionID string) (*dto.SnapshotResponse, error) {
	courses, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.logger.Error("读取已选课程快照失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrElectiveSnapshotFailed, err)
	}
	return &dto.SnapshotResponse{Count: len(courses), Courses: courses}, nil
}

func (s *electiveService) SaveSnapshot(ctx context.Context, sessionID string, req *dto.SaveSnapshotRequest) (*dto.SnapshotResponse, error) {
	courses := make([]model.Course, 0, len(req.Courses))
	for _, c := range req.Courses {
		c = sanitizeCourse(c)
		// 与页面提取一致：无有效时间段的课程不保存
		if len(c.TimeSegments) == 0 {
			continue
		}
		c.RowRef = model.NoRowRef
		courses = append(courses, c)
	}

	if err := s.store.Save(ctx, sessionID, courses); err != nil {
		s.logger.Error("保存已选课程快照失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrElectiveSnapshotFailed, err)
	}
	return &dto.SnapshotResponse{Count: len(courses), Courses: courses}, nil
}

func (s *electiveService) ClearSnapshot(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Error("清空已选课程快照失败", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrElectiveSnapshotFailed, err)
	}
	return nil
}

// ── 私有辅助方法 ──

// sanitizeCourse 去除名称首尾空白，丢弃无效时间段
func sanitizeCourse(c model.Course) model.Course {
	segments := make([]model.TimeSegment, 0, len(c.TimeSegments))
	for _, seg := range c.TimeSegments {
		if !seg.Valid() {
			continue
		}
		if seg.WeekParity == "" {
			seg.WeekParity = model.WeekAll
		}
		segments = append(segments, seg)
	}
	c.Name = strings.TrimSpace(c.Name)
	c.TimeSegments = segments
	return c
}
