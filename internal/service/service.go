package service

import (
	"go.uber.org/zap"

	"elective-helper/config"
	"elective-helper/internal/repository"
	"elective-helper/pkg/jwt"
	"elective-helper/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Elective ElectiveService
	Session  SessionService
	Export   ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时快照只走数据库，注销不写黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) *Service {
	var (
		cache     SnapshotCache
		blacklist TokenBlacklist
	)
	if rdb != nil {
		cache = rdb
		blacklist = rdb
	}

	store := NewSnapshotStore(repo.EnrolledCourse, cache, logger)
	adapter := NewPageAdapter(nil, NewRenderOptions(&cfg.Render))

	return &Service{
		Elective: NewElectiveService(store, adapter, logger),
		Session:  NewSessionService(jwtMgr, blacklist, store, logger),
		Export:   NewExportService(store, &cfg.Calendar, logger),
	}
}
