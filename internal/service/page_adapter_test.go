package service

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"elective-helper/internal/model"
)

// ── HTML 夹具 ──

// gridRow 生成一行 n 列的数据行，指定列填入内容
func gridRow(n int, cells map[int]string) string {
	var b strings.Builder
	b.WriteString(`<tr class="datagrid-even">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "<td>%s</td>", cells[i])
	}
	b.WriteString("</tr>")
	return b.String()
}

func datagrid(rows ...string) string {
	return `<table class="datagrid"><tbody><tr class="datagrid-header"><th>课程名</th></tr>` +
		strings.Join(rows, "") + `</tbody></table>`
}

func page(body string) string {
	return "<html><head></head><body>" + body + "</body></html>"
}

func mustParse(t *testing.T, a *PageAdapter, html string) *goquery.Document {
	t.Helper()
	doc, err := a.ParseDocument(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}

func testAdapter(dedupe bool) *PageAdapter {
	return NewPageAdapter(nil, RenderOptions{
		ConflictColor: "#ffcccc",
		ClearColor:    "#ccffcc",
		TooltipPrefix: "与以下课程冲突: ",
		DedupeNames:   dedupe,
	})
}

// ── 页面类型识别 ──

func TestDetectPageKind(t *testing.T) {
	base := "https://elective.pku.edu.cn/elective2008/edu/pku/stu/elective/controller/"
	tests := []struct {
		url  string
		want PageKind
	}{
		{base + "electiveWork/showResults.do", PageResults},
		{base + "courseQuery/CourseQueryController.jpf", PageQuery},
		{base + "courseQuery/getCurriculmByForm.do", PageQuery},
		{base + "courseQuery/queryCurriculum.jsp?netui_row=0", PageQuery},
		{base + "electivePlan/ElectivePlanController.jpf", PagePlan},
		{base + "electiveWork/ElectiveWorkController.jpf", PageWork},
		{base + "electiveWork/election.jsp", PageWork},
		{"https://portal.pku.edu.cn/", PageUnknown},
		{"", PageUnknown},
	}

	for _, tt := range tests {
		if got := DetectPageKind(tt.url); got != tt.want {
			t.Errorf("DetectPageKind(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestPageKind_IsCandidate(t *testing.T) {
	if PageResults.IsCandidate() || PageUnknown.IsCandidate() {
		t.Error("results/unknown pages must not be candidates")
	}
	for _, k := range []PageKind{PageQuery, PagePlan, PageWork} {
		if !k.IsCandidate() {
			t.Errorf("%s should be a candidate page", k)
		}
	}
}

// ── 课程提取 ──

func TestExtractCourses_ResultsPage(t *testing.T) {
	a := testAdapter(false)
	html := page(datagrid(
		gridRow(8, map[int]string{0: " 高等代数 ", 7: "每周周一3~4节<br>单周周三5~6节"}),
		gridRow(7, map[int]string{0: "列数不足", 6: "每周周二1~2节"}),
		gridRow(8, map[int]string{0: "时间待定", 7: "待定"}),
		gridRow(10, map[int]string{0: "普通物理", 7: "双周周五9~10节"}),
	))
	doc := mustParse(t, a, html)
	layout, _ := a.Layout(PageResults)

	got := a.ExtractCourses(doc, layout)
	want := []model.Course{
		{
			Name:   "高等代数",
			RowRef: 1,
			TimeSegments: []model.TimeSegment{
				{WeekParity: model.WeekAll, DayOfWeek: 1, Periods: []int{3, 4}},
				{WeekParity: model.WeekOdd, DayOfWeek: 3, Periods: []int{5, 6}},
			},
		},
		{
			Name:   "普通物理",
			RowRef: 4,
			TimeSegments: []model.TimeSegment{
				{WeekParity: model.WeekEven, DayOfWeek: 5, Periods: []int{9, 10}},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCourses = %+v\nwant %+v", got, want)
	}
}

func TestExtractCourses_QueryAndPlanColumns(t *testing.T) {
	a := testAdapter(false)
	tests := []struct {
		kind PageKind
		row  string
	}{
		{PageQuery, gridRow(10, map[int]string{1: "数据结构", 9: "每周周二3~4节"})},
		{PagePlan, gridRow(9, map[int]string{1: "数据结构", 8: "每周周二3~4节"})},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc := mustParse(t, a, page(datagrid(tt.row)))
			layout, _ := a.Layout(tt.kind)
			got := a.ExtractCourses(doc, layout)
			if len(got) != 1 || got[0].Name != "数据结构" || got[0].TimeSegments[0].DayOfWeek != 2 {
				t.Errorf("unexpected courses: %+v", got)
			}
		})
	}
}

func workPage(anchor string) string {
	return page(`
<div id="scopeOneSpan"><table><tbody>
<tr><td>已选列表</td></tr>
<tr><td>` + datagrid(gridRow(9, map[int]string{0: "不应提取", 8: "每周周一1~2节"})) + `</td></tr>
<tr><td>` + anchor + `</td></tr>
<tr><td>` + datagrid(gridRow(9, map[int]string{0: "计算概论", 8: "每周周三1~2节"})) + `</td></tr>
</tbody></table></div>`)
}

func TestExtractCourses_WorkPageScopedByAnchor(t *testing.T) {
	a := testAdapter(false)
	layout, _ := a.Layout(PageWork)

	doc := mustParse(t, a, workPage("选课计划中本学期可选列表"))
	got := a.ExtractCourses(doc, layout)
	if len(got) != 1 || got[0].Name != "计算概论" {
		t.Fatalf("expected only the anchored table, got %+v", got)
	}

	doc = mustParse(t, a, workPage("其他列表"))
	if got := a.ExtractCourses(doc, layout); len(got) != 0 {
		t.Errorf("expected no courses without anchor, got %+v", got)
	}
}

func TestExtractCourses_NoTable(t *testing.T) {
	a := testAdapter(false)
	doc := mustParse(t, a, page("<p>系统维护中</p>"))
	layout, _ := a.Layout(PageQuery)

	got := a.ExtractCourses(doc, layout)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

// ── 渲染 ──

func queryPage() string {
	return page(datagrid(
		gridRow(10, map[int]string{1: "数据结构", 9: "每周周一3~4节<br>每周周三3~4节"}),
		gridRow(10, map[int]string{1: "音乐欣赏", 9: "每周周四11~12节"}),
	))
}

func TestRender_ConflictAndClearRows(t *testing.T) {
	a := testAdapter(false)
	doc := mustParse(t, a, queryPage())
	layout, _ := a.Layout(PageQuery)

	courses := a.ExtractCourses(doc, layout)
	enrolled := []model.Course{{
		Name:         "高等代数",
		RowRef:       model.NoRowRef,
		TimeSegments: []model.TimeSegment{{WeekParity: model.WeekAll, DayOfWeek: 1, Periods: []int{4}}, {WeekParity: model.WeekAll, DayOfWeek: 3, Periods: []int{3}}},
	}}
	rows := a.Render(doc, layout, courses, DetectConflicts(courses, enrolled))

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].Conflict || rows[0].Color != "#ffcccc" || rows[0].Title != "与以下课程冲突: 高等代数, 高等代数" {
		t.Errorf("unexpected conflict row: %+v", rows[0])
	}
	if rows[1].Conflict || rows[1].Color != "#ccffcc" || rows[1].Title != "" {
		t.Errorf("unexpected clear row: %+v", rows[1])
	}

	cells := layout.Rows(doc)
	nameCell := cells.Eq(1).Find("td").Eq(1)
	if style, _ := nameCell.Attr("style"); style != "background-color: #ffcccc" {
		t.Errorf("conflict cell style = %q", style)
	}
	if title, _ := nameCell.Attr("title"); title != "与以下课程冲突: 高等代数, 高等代数" {
		t.Errorf("conflict cell title = %q", title)
	}
	if style, _ := cells.Eq(2).Find("td").Eq(1).Attr("style"); style != "background-color: #ccffcc" {
		t.Errorf("clear cell style = %q", style)
	}
}

func TestRender_DedupeNames(t *testing.T) {
	a := testAdapter(true)
	doc := mustParse(t, a, queryPage())
	layout, _ := a.Layout(PageQuery)
	courses := a.ExtractCourses(doc, layout)

	conflicts := model.ConflictMap{courses[0].RowRef: {"高等代数", "高等代数", "思政"}}
	rows := a.Render(doc, layout, courses, conflicts)

	if rows[0].Title != "与以下课程冲突: 高等代数, 思政" {
		t.Errorf("Title = %q", rows[0].Title)
	}
	if !reflect.DeepEqual(rows[0].ConflictsWith, []string{"高等代数", "思政"}) {
		t.Errorf("ConflictsWith = %v", rows[0].ConflictsWith)
	}
}

func TestRender_Idempotent(t *testing.T) {
	a := testAdapter(false)
	doc := mustParse(t, a, queryPage())
	layout, _ := a.Layout(PageQuery)
	courses := a.ExtractCourses(doc, layout)
	conflicts := model.ConflictMap{courses[0].RowRef: {"高等代数"}}

	a.Render(doc, layout, courses, conflicts)
	first, _ := doc.Html()
	a.Render(doc, layout, courses, conflicts)
	second, _ := doc.Html()

	if first != second {
		t.Errorf("second render changed the document:\n%s\n---\n%s", first, second)
	}
}

func TestRender_ResultsPageLeavesDocument(t *testing.T) {
	a := testAdapter(false)
	doc := mustParse(t, a, page(datagrid(gridRow(8, map[int]string{0: "高等代数", 7: "每周周一3~4节"}))))
	layout, _ := a.Layout(PageResults)
	before, _ := doc.Html()

	courses := a.ExtractCourses(doc, layout)
	a.Render(doc, layout, courses, model.ConflictMap{})

	after, _ := doc.Html()
	if before != after {
		t.Error("results page must not be modified")
	}
}

func TestSetStyleProperty(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(`<table><tr><td style="width: 10px; BACKGROUND-COLOR: red;">x</td></tr></table>`))
	cell := doc.Find("td")

	setStyleProperty(cell, "background-color", "#ffcccc")
	if style, _ := cell.Attr("style"); style != "width: 10px; background-color: #ffcccc" {
		t.Errorf("style = %q", style)
	}
}
