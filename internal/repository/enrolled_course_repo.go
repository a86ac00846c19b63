package repository

import (
	"context"

	"gorm.io/gorm"

	"elective-helper/internal/model"
)

// EnrolledCourseRepository 已选课程快照数据访问接口
type EnrolledCourseRepository interface {
	// ListBySession 按保存顺序返回会话快照（含时间段）
	ListBySession(ctx context.Context, sessionID string) ([]model.EnrolledCourse, error)
	DeleteBySession(ctx context.Context, sessionID string) error
	// ReplaceBySession 在事务中全量替换会话快照：先删除旧数据，再批量插入新数据
	ReplaceBySession(ctx context.Context, sessionID string, courses []model.EnrolledCourse) error
}

type enrolledCourseRepo struct {
	db *gorm.DB
}

// NewEnrolledCourseRepo 创建 EnrolledCourseRepository 实例
func NewEnrolledCourseRepo(db *gorm.DB) EnrolledCourseRepository {
	return &enrolledCourseRepo{db: db}
}

func (r *enrolledCourseRepo) ListBySession(ctx context.Context, sessionID string) ([]model.EnrolledCourse, error) {
	var courses []model.EnrolledCourse
	err := r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&courses).Error
	return courses, err
}

func (r *enrolledCourseRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	// 时间段由外键级联删除
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&model.EnrolledCourse{}).Error
}

func (r *enrolledCourseRepo) ReplaceBySession(ctx context.Context, sessionID string, courses []model.EnrolledCourse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&model.EnrolledCourse{}).Error; err != nil {
			return err
		}
		if len(courses) > 0 {
			// gorm 会随课程一并插入 Segments 关联
			if err := tx.Create(&courses).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
