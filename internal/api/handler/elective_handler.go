package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"elective-helper/internal/dto"
	"elective-helper/internal/service"
	"elective-helper/pkg/response"
)

// ElectiveHandler 选课冲突模块 HTTP 处理器
type ElectiveHandler struct {
	electiveSvc service.ElectiveService
}

// NewElectiveHandler 创建 ElectiveHandler
func NewElectiveHandler(electiveSvc service.ElectiveService) *ElectiveHandler {
	return &ElectiveHandler{electiveSvc: electiveSvc}
}

// AnalyzePage 分析选课网站页面
// POST /api/v1/pages/analyze
func (h *ElectiveHandler) AnalyzePage(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	var req dto.AnalyzePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.electiveSvc.AnalyzePage(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, result)
}

// ParseSegments 解析上课时间文本
// POST /api/v1/segments/parse
func (h *ElectiveHandler) ParseSegments(c *gin.Context) {
	var req dto.ParseSegmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.electiveSvc.ParseSegments(c.Request.Context(), &req)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, result)
}

// DetectConflicts 对候选课程与参照课程做冲突检测
// POST /api/v1/conflicts/detect
func (h *ElectiveHandler) DetectConflicts(c *gin.Context) {
	var req dto.DetectConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.electiveSvc.DetectConflicts(c.Request.Context(), &req)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, result)
}

// GetSnapshot 获取已选课程快照
// GET /api/v1/snapshot
func (h *ElectiveHandler) GetSnapshot(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	result, err := h.electiveSvc.GetSnapshot(c.Request.Context(), sessionID)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, result)
}

// SaveSnapshot 手动覆盖已选课程快照
// PUT /api/v1/snapshot
func (h *ElectiveHandler) SaveSnapshot(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	var req dto.SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.electiveSvc.SaveSnapshot(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, result)
}

// ClearSnapshot 清空已选课程快照
// DELETE /api/v1/snapshot
func (h *ElectiveHandler) ClearSnapshot(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	if err := h.electiveSvc.ClearSnapshot(c.Request.Context(), sessionID); err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 错误映射 ──

func (h *ElectiveHandler) handleElectiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrElectiveInvalidHTML):
		response.BadRequest(c, 17001, "页面 HTML 无法解析")
	case errors.Is(err, service.ErrElectiveSnapshotFailed):
		response.Error(c, http.StatusServiceUnavailable, 17002, "已选课程快照暂不可用")
	case errors.Is(err, service.ErrElectiveRenderFailed):
		response.Error(c, http.StatusInternalServerError, 17003, "生成标记后的页面失败")
	default:
		response.InternalError(c)
	}
}
