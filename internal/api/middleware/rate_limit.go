package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"elective-helper/pkg/response"
)

// RateLimiter 固定窗口计数器；*redis.Client 实现该接口
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于 Redis 固定窗口的速率限制中间件
// 已认证请求按会话计数，否则按客户端 IP 计数
// limiter 为 nil 或 Redis 出错时降级放行
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.GetString("session_id")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := "rate_limit:" + c.FullPath() + ":" + subject

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err == nil && !allowed {
			c.Header("Retry-After", retryAfter(window))
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
