package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"elective-helper/internal/model"
	"elective-helper/internal/repository"
	"elective-helper/pkg/redis"
)

// SnapshotStore 已选课程快照存储端口
// 快照跨页面保存，不含 RowRef；读取不存在的快照返回空列表
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) ([]model.Course, error)
	Save(ctx context.Context, sessionID string, courses []model.Course) error
	Clear(ctx context.Context, sessionID string) error
}

// SnapshotCache 快照 JSON 缓存；*redis.Client 实现该接口
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, sessionID string) ([]byte, error)
	SetSnapshot(ctx context.Context, sessionID string, data []byte) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

// cachedSnapshotStore PostgreSQL 为准，Redis 缓存 JSON 快照
// cache 为 nil 时直接读写数据库
type cachedSnapshotStore struct {
	repo   repository.EnrolledCourseRepository
	cache  SnapshotCache
	logger *zap.Logger
}

// NewSnapshotStore 创建 SnapshotStore 实例
func NewSnapshotStore(repo repository.EnrolledCourseRepository, cache SnapshotCache, logger *zap.Logger) SnapshotStore {
	return &cachedSnapshotStore{repo: repo, cache: cache, logger: logger}
}

func (s *cachedSnapshotStore) Load(ctx context.Context, sessionID string) ([]model.Course, error) {
	if s.cache != nil {
		data, err := s.cache.GetSnapshot(ctx, sessionID)
		switch {
		case err == nil:
			courses, decodeErr := DecodeSnapshot(data)
			if decodeErr == nil {
				return courses, nil
			}
			// 缓存内容损坏：淘汰后回源
			s.logger.Warn("快照缓存解析失败，回源数据库", zap.String("session_id", sessionID), zap.Error(decodeErr))
			if delErr := s.cache.DeleteSnapshot(ctx, sessionID); delErr != nil {
				s.logger.Warn("淘汰快照缓存失败", zap.Error(delErr))
			}
		case errors.Is(err, redis.ErrCacheMiss):
		default:
			s.logger.Warn("读取快照缓存失败，回源数据库", zap.Error(err))
		}
	}

	records, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询已选课程快照失败: %w", err)
	}
	courses := make([]model.Course, 0, len(records))
	for _, r := range records {
		courses = append(courses, r.ToCourse())
	}

	s.fillCache(ctx, sessionID, courses)
	return courses, nil
}

func (s *cachedSnapshotStore) Save(ctx context.Context, sessionID string, courses []model.Course) error {
	records := make([]model.EnrolledCourse, 0, len(courses))
	for i, c := range courses {
		records = append(records, model.NewEnrolledCourse(sessionID, i, c))
	}
	if err := s.repo.ReplaceBySession(ctx, sessionID, records); err != nil {
		return fmt.Errorf("保存已选课程快照失败: %w", err)
	}
	s.fillCache(ctx, sessionID, courses)
	return nil
}

func (s *cachedSnapshotStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("删除已选课程快照失败: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.DeleteSnapshot(ctx, sessionID); err != nil {
			s.logger.Warn("删除快照缓存失败", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

// fillCache 写缓存失败只记录日志，不影响主流程
func (s *cachedSnapshotStore) fillCache(ctx context.Context, sessionID string, courses []model.Course) {
	if s.cache == nil {
		return
	}
	data, err := EncodeSnapshot(courses)
	if err != nil {
		s.logger.Warn("序列化快照失败", zap.Error(err))
		return
	}
	if err := s.cache.SetSnapshot(ctx, sessionID, data); err != nil {
		s.logger.Warn("写入快照缓存失败", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ── 快照 JSON 编解码 ──
//
// 格式：[{"name": "...", "timeSegments": [{"weekParity": "all", "dayOfWeek": 1, "periods": [3,4]}]}]

// EncodeSnapshot 序列化快照（RowRef 不输出）
func EncodeSnapshot(courses []model.Course) ([]byte, error) {
	if courses == nil {
		courses = []model.Course{}
	}
	return json.Marshal(courses)
}

// DecodeSnapshot 反序列化快照；空内容视为空列表，恢复的课程均无页面行
func DecodeSnapshot(data []byte) ([]model.Course, error) {
	courses := []model.Course{}
	if len(data) == 0 {
		return courses, nil
	}
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	for i := range courses {
		courses[i].RowRef = model.NoRowRef
	}
	return courses, nil
}
