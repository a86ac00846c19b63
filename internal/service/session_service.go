package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"elective-helper/internal/dto"
	"elective-helper/pkg/jwt"
)

// ── 会话模块业务错误 ──

var (
	ErrSessionIssueFailed  = errors.New("创建会话失败")
	ErrSessionRevokeFailed = errors.New("注销会话失败")
)

// TokenBlacklist 令牌黑名单；*redis.Client 实现该接口
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// SessionService 匿名会话业务接口
// 每个浏览器持有一个会话令牌，会话 ID 即已选课程快照的归属键
type SessionService interface {
	// CreateSession 签发新会话
	CreateSession(ctx context.Context) (*dto.SessionResponse, error)
	// RevokeSession 注销会话：令牌加入黑名单并清空快照
	RevokeSession(ctx context.Context, sessionID, jti string, expiresAt time.Time) error
}

type sessionService struct {
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	store     SnapshotStore
	logger    *zap.Logger
}

// NewSessionService 创建 SessionService 实例；blacklist 可为 nil（Redis 不可用）
func NewSessionService(jwtMgr *jwt.Manager, blacklist TokenBlacklist, store SnapshotStore, logger *zap.Logger) SessionService {
	return &sessionService{jwtMgr: jwtMgr, blacklist: blacklist, store: store, logger: logger}
}

func (s *sessionService) CreateSession(_ context.Context) (*dto.SessionResponse, error) {
	sessionID, token, expiresAt, err := s.jwtMgr.NewSession()
	if err != nil {
		s.logger.Error("签发会话令牌失败", zap.Error(err))
		return nil, ErrSessionIssueFailed
	}
	s.logger.Info("新建会话", zap.String("session_id", sessionID))
	return &dto.SessionResponse{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *sessionService) RevokeSession(ctx context.Context, sessionID, jti string, expiresAt time.Time) error {
	if s.blacklist != nil && jti != "" {
		if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
			s.logger.Error("令牌加入黑名单失败", zap.Error(err))
			return ErrSessionRevokeFailed
		}
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Error("注销时清空快照失败", zap.String("session_id", sessionID), zap.Error(err))
		return ErrSessionRevokeFailed
	}
	return nil
}
