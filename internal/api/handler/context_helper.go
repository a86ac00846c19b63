package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"elective-helper/pkg/response"
)

// 会话中间件写入的上下文键
const (
	ctxSessionID = "session_id"
	ctxTokenJTI  = "token_jti"
	ctxTokenExp  = "token_exp"
)

// MustGetSessionID 从 Gin 上下文中安全提取 session_id。
// 如果会话中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetSessionID(c *gin.Context) (string, bool) {
	s := c.GetString(ctxSessionID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// tokenMeta 当前令牌的 JWT ID 与过期时间，注销时使用
func tokenMeta(c *gin.Context) (jti string, expiresAt time.Time) {
	return c.GetString(ctxTokenJTI), c.GetTime(ctxTokenExp)
}
