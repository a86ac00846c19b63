package service

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"elective-helper/config"
	"elective-helper/internal/dto"
	"elective-helper/internal/model"
)

// ── 页面适配器 ──────────────────────────────────────────────
//
// 职责：识别选课网站页面类型，按列配置提取课程行，并把冲突结果写回 HTML。
//
// 四类页面表格结构相近，只是列位置不同，统一由 PageLayout 描述：
//   - 选课结果页：名称第 1 列，时间第 8 列（提取后作为已选课程快照）
//   - 添加课程页：名称第 2 列，时间第 10 列，高亮第 2 列
//   - 选课计划页：名称第 2 列，时间第 9 列，高亮第 2 列
//   - 预选页：    名称第 1 列，时间第 9 列，高亮第 1 列；
//                 课程表格位于"选课计划中本学期可选列表"所在行的下一行
// ─────────────────────────────────────────────────────────────

// PageKind 页面类型
type PageKind string

const (
	PageUnknown PageKind = "unknown"
	PageResults PageKind = "results"
	PageQuery   PageKind = "query"
	PagePlan    PageKind = "plan"
	PageWork    PageKind = "work"
)

// IsCandidate 该页面的课程是否作为候选课程参与冲突检测
func (k PageKind) IsCandidate() bool {
	return k == PageQuery || k == PagePlan || k == PageWork
}

// pageURLMarkers 按判定顺序排列：showResults.do 位于 electiveWork 目录下，须先于预选页判断
var pageURLMarkers = []struct {
	kind    PageKind
	markers []string
}{
	{PageResults, []string{"showResults.do"}},
	{PageQuery, []string{"CourseQueryController.jpf", "getCurriculmByForm.do", "queryCurriculum.jsp"}},
	{PagePlan, []string{"ElectivePlanController.jpf"}},
	{PageWork, []string{"ElectiveWorkController.jpf", "election.jsp"}},
}

// DetectPageKind 根据页面地址判断页面类型
func DetectPageKind(rawURL string) PageKind {
	for _, p := range pageURLMarkers {
		for _, m := range p.markers {
			if strings.Contains(rawURL, m) {
				return p.kind
			}
		}
	}
	return PageUnknown
}

const datagridRowSelector = "table.datagrid tr[class*='datagrid-']"

// noHighlight 结果页不渲染
const noHighlight = -1

// PageLayout 单类页面的列配置（下标从 0 开始）
type PageLayout struct {
	Kind            PageKind
	NameColumn      int
	TimeColumn      int
	MinColumns      int
	HighlightColumn int
	// ScopeSelector/ScopeAnchor 非空时，仅在包含锚点文本的行的下一行内查找课程表格
	ScopeSelector string
	ScopeAnchor   string
}

// DefaultPageLayouts 北大选课网站四类页面的默认布局
var DefaultPageLayouts = map[PageKind]PageLayout{
	PageResults: {Kind: PageResults, NameColumn: 0, TimeColumn: 7, MinColumns: 8, HighlightColumn: noHighlight},
	PageQuery:   {Kind: PageQuery, NameColumn: 1, TimeColumn: 9, MinColumns: 10, HighlightColumn: 1},
	PagePlan:    {Kind: PagePlan, NameColumn: 1, TimeColumn: 8, MinColumns: 9, HighlightColumn: 1},
	PageWork: {
		Kind: PageWork, NameColumn: 0, TimeColumn: 8, MinColumns: 9, HighlightColumn: 0,
		ScopeSelector: "#scopeOneSpan > table > tbody > tr",
		ScopeAnchor:   "选课计划中本学期可选列表",
	},
}

// Rows 返回布局对应的全部数据行；锚点缺失时返回空选择集
func (l PageLayout) Rows(doc *goquery.Document) *goquery.Selection {
	if l.ScopeSelector == "" {
		return doc.Find(datagridRowSelector)
	}
	target := doc.Find(l.ScopeSelector).FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return strings.Contains(tr.Text(), l.ScopeAnchor)
	}).First()
	// 无匹配时 Next 亦为空
	return target.Next().Find(datagridRowSelector)
}

// RenderOptions 高亮渲染参数
type RenderOptions struct {
	ConflictColor string
	ClearColor    string
	TooltipPrefix string
	DedupeNames   bool
}

// NewRenderOptions 由配置构建渲染参数
func NewRenderOptions(cfg *config.RenderConfig) RenderOptions {
	return RenderOptions{
		ConflictColor: cfg.ConflictColor,
		ClearColor:    cfg.ClearColor,
		TooltipPrefix: cfg.TooltipPrefix,
		DedupeNames:   cfg.DedupeNames,
	}
}

// PageAdapter 页面解析与渲染
type PageAdapter struct {
	layouts map[PageKind]PageLayout
	opts    RenderOptions
}

// NewPageAdapter 创建 PageAdapter；layouts 为 nil 时使用默认布局
func NewPageAdapter(layouts map[PageKind]PageLayout, opts RenderOptions) *PageAdapter {
	if layouts == nil {
		layouts = DefaultPageLayouts
	}
	return &PageAdapter{layouts: layouts, opts: opts}
}

// Layout 查找页面布局
func (a *PageAdapter) Layout(kind PageKind) (PageLayout, bool) {
	l, ok := a.layouts[kind]
	return l, ok
}

// ParseDocument 解析页面 HTML
func (a *PageAdapter) ParseDocument(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// ExtractCourses 按布局提取课程；RowRef 为行在 Rows 中的下标
// 列数不足或无有效时间段的行不参与后续检测
func (a *PageAdapter) ExtractCourses(doc *goquery.Document, layout PageLayout) []model.Course {
	courses := []model.Course{}
	layout.Rows(doc).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < layout.MinColumns || cells.Length() <= layout.TimeColumn || cells.Length() <= layout.NameColumn {
			return
		}
		timeHTML, err := cells.Eq(layout.TimeColumn).Html()
		if err != nil {
			return
		}
		segments := ExtractTimeSegments(timeHTML)
		if len(segments) == 0 {
			return
		}
		courses = append(courses, model.Course{
			Name:         strings.TrimSpace(cells.Eq(layout.NameColumn).Text()),
			TimeSegments: segments,
			RowRef:       model.RowRef(i),
		})
	})
	return courses
}

// Render 将冲突结果写入页面并返回逐行结果
// 冲突行：背景色 + "与以下课程冲突: ..." 提示；无冲突行：背景色 + 清空提示
func (a *PageAdapter) Render(doc *goquery.Document, layout PageLayout, courses []model.Course, conflicts model.ConflictMap) []dto.RowHighlight {
	rows := layout.Rows(doc)
	result := make([]dto.RowHighlight, 0, len(courses))

	for _, course := range courses {
		h := dto.RowHighlight{
			RowRef:     int(course.RowRef),
			CourseName: course.Name,
			Color:      a.opts.ClearColor,
		}
		if names, ok := conflicts[course.RowRef]; ok && len(names) > 0 {
			if a.opts.DedupeNames {
				names = dedupeNames(names)
			}
			h.Conflict = true
			h.Color = a.opts.ConflictColor
			h.ConflictsWith = names
			h.Title = a.opts.TooltipPrefix + strings.Join(names, ", ")
		}
		result = append(result, h)

		if layout.HighlightColumn == noHighlight || course.RowRef < 0 {
			continue
		}
		cell := rows.Eq(int(course.RowRef)).Find("td").Eq(layout.HighlightColumn)
		if cell.Length() == 0 {
			continue
		}
		setStyleProperty(cell, "background-color", h.Color)
		cell.SetAttr("title", h.Title)
	}
	return result
}

// setStyleProperty 覆盖 style 中的单个声明，保留其余声明；重复渲染结果不变
func setStyleProperty(sel *goquery.Selection, property, value string) {
	existing, _ := sel.Attr("style")
	var decls []string
	for _, d := range strings.Split(existing, ";") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, _, _ := strings.Cut(d, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			continue
		}
		decls = append(decls, d)
	}
	decls = append(decls, property+": "+value)
	sel.SetAttr("style", strings.Join(decls, "; "))
}
