package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"elective-helper/pkg/jwt"
	"elective-helper/pkg/response"
)

// BlacklistChecker 令牌黑名单查询；*redis.Client 实现该接口
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SessionAuth 会话认证中间件
// 从 Authorization: Bearer <token> 中提取并验证会话令牌
// blacklist 为 nil 时跳过黑名单检查；Redis 出错时降级放行
func SessionAuth(jwtMgr *jwt.Manager, blacklist BlacklistChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头，请先创建会话")
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "会话无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "session" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "会话已注销")
				c.Abort()
				return
			}
		}

		c.Set("session_id", claims.SessionID())
		c.Set("token_jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_exp", claims.ExpiresAt.Time)
		}

		c.Next()
	}
}
