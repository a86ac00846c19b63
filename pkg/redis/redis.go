package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"elective-helper/config"
)

// ErrCacheMiss 缓存中无对应键
var ErrCacheMiss = errors.New("缓存未命中")

// Client Redis 客户端封装
// 用于已选课程快照缓存、会话 Token 黑名单与接口限流
type Client struct {
	rdb         *goredis.Client
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, snapshotTTL: cfg.SnapshotTTL, logger: logger}, nil
}

// ── 已选课程快照缓存 ──

const snapshotPrefix = "snapshot:"

// GetSnapshot 读取快照 JSON；键不存在时返回 ErrCacheMiss
func (c *Client) GetSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, snapshotPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// SetSnapshot 写入快照 JSON，TTL 为 redis.snapshot_ttl（0 表示不过期）
func (c *Client) SetSnapshot(ctx context.Context, sessionID string, data []byte) error {
	return c.rdb.Set(ctx, snapshotPrefix+sessionID, data, c.snapshotTTL).Err()
}

// DeleteSnapshot 删除快照缓存
func (c *Client) DeleteSnapshot(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, snapshotPrefix+sessionID).Err()
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数：窗口内第 limit+1 次请求起返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
