package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"elective-helper/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// Content-Length 已知且超限时直接返回 413；未知长度的请求体读取到上限后报错，
// 由 JSON 绑定失败返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
