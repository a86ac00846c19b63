package model

// EnrolledCourse 已选课程快照表 — 对应 enrolled_courses
// 每个会话一份快照，访问"选课结果"页时整体替换
type EnrolledCourse struct {
	EnrolledCourseID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrolled_course_id"`
	SessionID        string `gorm:"type:uuid;not null;index"                       json:"session_id"`
	Position         int    `gorm:"type:smallint;not null"                         json:"position"`
	CourseName       string `gorm:"type:text;not null"                             json:"course_name"`
	BaseModel

	// 关联
	Segments []EnrolledSegment `gorm:"foreignKey:EnrolledCourseID;references:EnrolledCourseID;constraint:OnDelete:CASCADE" json:"segments,omitempty"`
}

// TableName 指定表名
func (EnrolledCourse) TableName() string { return "enrolled_courses" }

// EnrolledSegment 已选课程时间段表 — 对应 enrolled_segments
type EnrolledSegment struct {
	EnrolledSegmentID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrolled_segment_id"`
	EnrolledCourseID  string   `gorm:"type:uuid;not null;index"                       json:"enrolled_course_id"`
	Position          int      `gorm:"type:smallint;not null"                         json:"position"`
	WeekType          string   `gorm:"type:varchar(10);not null;default:'all'"        json:"week_type"` // all | odd | even
	DayOfWeek         int      `gorm:"type:smallint;not null"                         json:"day_of_week"`
	Periods           IntArray `gorm:"type:int[];not null"                            json:"periods"`
}

// TableName 指定表名
func (EnrolledSegment) TableName() string { return "enrolled_segments" }

// ToCourse 转为检测用的 Course（快照课程无页面行）
func (e EnrolledCourse) ToCourse() Course {
	segments := make([]TimeSegment, 0, len(e.Segments))
	for _, s := range e.Segments {
		parity, err := ParseWeekParity(s.WeekType)
		if err != nil {
			parity = WeekAll
		}
		segments = append(segments, TimeSegment{
			WeekParity: parity,
			DayOfWeek:  s.DayOfWeek,
			Periods:    append([]int(nil), s.Periods...),
		})
	}
	return Course{
		Name:         e.CourseName,
		TimeSegments: segments,
		RowRef:       NoRowRef,
	}
}

// NewEnrolledCourse 由 Course 构建快照记录
func NewEnrolledCourse(sessionID string, position int, c Course) EnrolledCourse {
	segments := make([]EnrolledSegment, 0, len(c.TimeSegments))
	for i, s := range c.TimeSegments {
		parity := s.WeekParity
		if parity == "" {
			parity = WeekAll
		}
		segments = append(segments, EnrolledSegment{
			Position:  i,
			WeekType:  string(parity),
			DayOfWeek: s.DayOfWeek,
			Periods:   IntArray(append([]int(nil), s.Periods...)),
		})
	}
	return EnrolledCourse{
		SessionID:  sessionID,
		Position:   position,
		CourseName: c.Name,
		Segments:   segments,
	}
}
