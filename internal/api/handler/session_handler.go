package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"elective-helper/internal/service"
	"elective-helper/pkg/response"
)

// SessionHandler 会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateSession 签发匿名会话
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	result, err := h.sessionSvc.CreateSession(c.Request.Context())
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, result)
}

// RevokeSession 注销当前会话
// DELETE /api/v1/sessions/current
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}
	jti, expiresAt := tokenMeta(c)

	if err := h.sessionSvc.RevokeSession(c.Request.Context(), sessionID, jti, expiresAt); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionIssueFailed):
		response.Error(c, http.StatusInternalServerError, 18001, "创建会话失败")
	case errors.Is(err, service.ErrSessionRevokeFailed):
		response.Error(c, http.StatusServiceUnavailable, 18002, "注销会话失败，请稍后重试")
	default:
		response.InternalError(c)
	}
}
