package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"elective-helper/config"
	"elective-helper/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSnapshot       = errors.New("尚无已选课程数据")
	ErrExportCalendarNotReady = errors.New("未配置学期起始日期，无法导出日历")
	ErrExportGenerateFail     = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出对象为会话的已选课程快照
//   - Excel：星期为列、节次为行的课表网格；同一格多门课程即快照内部冲突，标红
//   - ICS：按 calendar.period_times 将节次映射为时刻，单双周课程以隔周重复表示
type ExportService interface {
	// ExportTimetable 导出课表为 Excel
	ExportTimetable(ctx context.Context, sessionID string) (*bytes.Buffer, string, error)
	// ExportICS 导出课表为 iCalendar
	ExportICS(ctx context.Context, sessionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	store    SnapshotStore
	calendar config.CalendarConfig
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(store SnapshotStore, calendar *config.CalendarConfig, logger *zap.Logger) ExportService {
	return &exportService{store: store, calendar: *calendar, logger: logger}
}

var weekdayNames = [...]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// ═══════════════════════════════════════════════════════════
// ExportTimetable — 导出课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 表头：节次 | 周一 … 周日
//   - 行：第 1 节 ~ 第 N 节（N 取配置节数与课程最大节次中的较大者）
//   - 单元格：课程名，单/双周课程追加 (单)/(双)

func (s *exportService) ExportTimetable(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	courses, err := s.loadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	// 1. 构建 (星期, 节次) → 课程条目
	type cellKey struct{ day, period int }
	cells := make(map[cellKey][]string)
	maxPeriod := len(s.calendar.PeriodTimes)
	for _, c := range courses {
		for _, seg := range c.TimeSegments {
			label := c.Name
			if seg.WeekParity == model.WeekOdd || seg.WeekParity == model.WeekEven {
				label += "(" + strings.TrimSuffix(seg.WeekParity.Label(), "周") + ")"
			}
			for _, p := range seg.Periods {
				k := cellKey{seg.DayOfWeek, p}
				if !containsString(cells[k], label) {
					cells[k] = append(cells[k], label)
				}
				if p > maxPeriod {
					maxPeriod = p
				}
			}
		}
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", colName(len(weekdayNames)), 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	clashStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFCCCC"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})
	bodyStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})

	// 表头
	f.SetCellValue(sheetName, cell("A", 1), "节次")
	for i, name := range weekdayNames {
		f.SetCellValue(sheetName, cell(colName(i+1), 1), name)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(weekdayNames)), 1), headerStyle)

	// 数据行
	for p := 1; p <= maxPeriod; p++ {
		row := p + 1
		rowLabel := fmt.Sprintf("第%d节", p)
		if p <= len(s.calendar.PeriodTimes) {
			rowLabel += " " + s.calendar.PeriodTimes[p-1]
		}
		f.SetCellValue(sheetName, cell("A", row), rowLabel)
		for d := 1; d <= len(weekdayNames); d++ {
			entries := cells[cellKey{d, p}]
			if len(entries) == 0 {
				continue
			}
			ref := cell(colName(d), row)
			f.SetCellValue(sheetName, ref, strings.Join(entries, "\n"))
			style := bodyStyle
			if len(entries) > 1 {
				style = clashStyle
			}
			f.SetCellStyle(sheetName, ref, ref, style)
		}
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, "已选课程课表.xlsx", nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS — 导出课表为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 规则：
//   - 第 1 周周一 = calendar.term_start
//   - 每周：从第 1 周起每周一次，共 term_weeks 次
//   - 单周：从第 1 周起隔周一次；双周：从第 2 周起隔周一次
//   - 不连续的节次拆分为多个事件；超出 period_times 的节次跳过

func (s *exportService) ExportICS(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	if s.calendar.TermStart == "" {
		return nil, "", ErrExportCalendarNotReady
	}
	loc, err := time.LoadLocation(s.calendar.Timezone)
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	termStart, err := time.ParseInLocation("2006-01-02", s.calendar.TermStart, loc)
	if err != nil {
		return nil, "", ErrExportCalendarNotReady
	}

	courses, err := s.loadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//elective-helper//课表//CN")
	cal.SetXWRCalName("已选课程")

	now := time.Now()
	for ci, c := range courses {
		for si, seg := range c.TimeSegments {
			interval, count, firstWeek := weeklyRecurrence(seg.WeekParity, s.calendar.TermWeeks)
			if count == 0 {
				continue
			}
			day := termStart.AddDate(0, 0, (firstWeek-1)*7+seg.DayOfWeek-1)

			for ri, run := range periodRuns(seg.Periods) {
				if run[0] < 1 || run[1] > len(s.calendar.PeriodTimes) {
					s.logger.Warn("节次超出作息配置，跳过", zap.String("course", c.Name), zap.Ints("run", run[:]))
					continue
				}
				start, _, _ := config.ParsePeriodTime(s.calendar.PeriodTimes[run[0]-1])
				_, end, _ := config.ParsePeriodTime(s.calendar.PeriodTimes[run[1]-1])

				event := cal.AddEvent(fmt.Sprintf("%s-%d-%d-%d@elective-helper", sessionID, ci, si, ri))
				event.SetDtStampTime(now)
				event.SetSummary(c.Name)
				event.SetDescription(fmt.Sprintf("%s%s第%d~%d节", seg.WeekParity.Label(), weekdayNames[seg.DayOfWeek-1], run[0], run[1]))
				event.SetStartAt(day.Add(start))
				event.SetEndAt(day.Add(end))
				event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;INTERVAL=%d;COUNT=%d", interval, count))
			}
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "已选课程.ics", nil
}

// ── 辅助函数 ──

func (s *exportService) loadSnapshot(ctx context.Context, sessionID string) ([]model.Course, error) {
	courses, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.logger.Error("读取已选课程快照失败", zap.Error(err))
		return nil, err
	}
	if len(courses) == 0 {
		return nil, ErrExportNoSnapshot
	}
	return courses, nil
}

// weeklyRecurrence 周次类型 → (间隔周数, 重复次数, 首次所在周)
func weeklyRecurrence(p model.WeekParity, termWeeks int) (interval, count, firstWeek int) {
	switch p {
	case model.WeekOdd:
		return 2, (termWeeks + 1) / 2, 1
	case model.WeekEven:
		return 2, termWeeks / 2, 2
	default:
		return 1, termWeeks, 1
	}
}

// periodRuns 将节次拆分为连续区间，如 [1 2 4] → [[1 2] [4 4]]
func periodRuns(periods []int) [][2]int {
	if len(periods) == 0 {
		return nil
	}
	sorted := append([]int(nil), periods...)
	sort.Ints(sorted)

	var runs [][2]int
	cur := [2]int{sorted[0], sorted[0]}
	for _, p := range sorted[1:] {
		switch {
		case p == cur[1]:
		case p == cur[1]+1:
			cur[1] = p
		default:
			runs = append(runs, cur)
			cur = [2]int{p, p}
		}
	}
	return append(runs, cur)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
