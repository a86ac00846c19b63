package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"elective-helper/internal/dto"
	"elective-helper/internal/model"
	"elective-helper/internal/service"
	"elective-helper/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock ElectiveService ──

type mockElectiveService struct {
	analyzeResult  *dto.AnalyzePageResponse
	analyzeErr     error
	analyzeSession string
	parseResult    *dto.ParseSegmentsResponse
	detectResult   *dto.DetectConflictsResponse
	detectErr      error
	snapshotResult *dto.SnapshotResponse
	snapshotErr    error
	clearErr       error
}

func (m *mockElectiveService) AnalyzePage(_ context.Context, sessionID string, _ *dto.AnalyzePageRequest) (*dto.AnalyzePageResponse, error) {
	m.analyzeSession = sessionID
	return m.analyzeResult, m.analyzeErr
}
func (m *mockElectiveService) ParseSegments(_ context.Context, _ *dto.ParseSegmentsRequest) (*dto.ParseSegmentsResponse, error) {
	return m.parseResult, nil
}
func (m *mockElectiveService) DetectConflicts(_ context.Context, _ *dto.DetectConflictsRequest) (*dto.DetectConflictsResponse, error) {
	return m.detectResult, m.detectErr
}
func (m *mockElectiveService) GetSnapshot(_ context.Context, _ string) (*dto.SnapshotResponse, error) {
	return m.snapshotResult, m.snapshotErr
}
func (m *mockElectiveService) SaveSnapshot(_ context.Context, _ string, _ *dto.SaveSnapshotRequest) (*dto.SnapshotResponse, error) {
	return m.snapshotResult, m.snapshotErr
}
func (m *mockElectiveService) ClearSnapshot(_ context.Context, _ string) error {
	return m.clearErr
}

// ── Mock SessionService ──

type mockSessionService struct {
	createResult *dto.SessionResponse
	createErr    error
	revokeErr    error
	revokedJTI   string
}

func (m *mockSessionService) CreateSession(_ context.Context) (*dto.SessionResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSessionService) RevokeSession(_ context.Context, _, jti string, _ time.Time) error {
	m.revokedJTI = jti
	return m.revokeErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportTimetable(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportICS(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testSessionID = "session-test-id"

func setAuth(c *gin.Context) {
	c.Set("session_id", testSessionID)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(time.Hour))
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, path string, body io.Reader, route string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// ElectiveHandler Tests
// ═══════════════════════════════════════════════════════════

func TestElectiveHandler_AnalyzePage_Success(t *testing.T) {
	mock := &mockElectiveService{analyzeResult: &dto.AnalyzePageResponse{
		PageKind: "query",
		Action:   dto.ActionHighlighted,
		Rows:     []dto.RowHighlight{{RowRef: 1, CourseName: "数据结构", Conflict: true}},
	}}
	h := NewElectiveHandler(mock)

	w := serve("POST", "/pages/analyze", jsonBody(dto.AnalyzePageRequest{
		URL:  "https://elective.pku.edu.cn/.../getCurriculmByForm.do",
		HTML: "<html></html>",
	}), "/pages/analyze", withAuth(h.AnalyzePage))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if mock.analyzeSession != testSessionID {
		t.Errorf("session id not forwarded: %q", mock.analyzeSession)
	}
}

func TestElectiveHandler_AnalyzePage_MissingFields(t *testing.T) {
	h := NewElectiveHandler(&mockElectiveService{})

	w := serve("POST", "/pages/analyze", jsonBody(map[string]string{"url": "x"}), "/pages/analyze", withAuth(h.AnalyzePage))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 || resp.Details == "" {
		t.Errorf("expected code 10001 with details, got %+v", resp)
	}
}

func TestElectiveHandler_AnalyzePage_Unauthenticated(t *testing.T) {
	h := NewElectiveHandler(&mockElectiveService{})

	w := serve("POST", "/pages/analyze", jsonBody(dto.AnalyzePageRequest{URL: "x", HTML: "y"}), "/pages/analyze", h.AnalyzePage)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestElectiveHandler_AnalyzePage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"HTML 无法解析", service.ErrElectiveInvalidHTML, http.StatusBadRequest, 17001},
		{"快照不可用", fmt.Errorf("%w: db down", service.ErrElectiveSnapshotFailed), http.StatusServiceUnavailable, 17002},
		{"渲染失败", service.ErrElectiveRenderFailed, http.StatusInternalServerError, 17003},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewElectiveHandler(&mockElectiveService{analyzeErr: tt.err})
			w := serve("POST", "/pages/analyze", jsonBody(dto.AnalyzePageRequest{URL: "x", HTML: "y"}), "/pages/analyze", withAuth(h.AnalyzePage))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestElectiveHandler_ParseSegments(t *testing.T) {
	mock := &mockElectiveService{parseResult: &dto.ParseSegmentsResponse{
		Segments: []model.TimeSegment{{WeekParity: model.WeekAll, DayOfWeek: 1, Periods: []int{3, 4}}},
	}}
	h := NewElectiveHandler(mock)

	w := serve("POST", "/segments/parse", jsonBody(dto.ParseSegmentsRequest{Text: "每周周一3~4节"}), "/segments/parse", h.ParseSegments)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"weekParity":"all"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestElectiveHandler_ParseSegments_EmptyText(t *testing.T) {
	h := NewElectiveHandler(&mockElectiveService{})

	w := serve("POST", "/segments/parse", jsonBody(map[string]string{}), "/segments/parse", h.ParseSegments)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestElectiveHandler_DetectConflicts(t *testing.T) {
	mock := &mockElectiveService{detectResult: &dto.DetectConflictsResponse{
		Conflicts: []dto.ConflictItem{{RowRef: 0, CourseName: "A", ConflictsWith: []string{"X"}}},
	}}
	h := NewElectiveHandler(mock)

	w := serve("POST", "/conflicts/detect", jsonBody(dto.DetectConflictsRequest{}), "/conflicts/detect", h.DetectConflicts)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"conflicts_with":["X"]`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestElectiveHandler_DetectConflicts_BadJSON(t *testing.T) {
	h := NewElectiveHandler(&mockElectiveService{})

	w := serve("POST", "/conflicts/detect", strings.NewReader("not json"), "/conflicts/detect", h.DetectConflicts)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestElectiveHandler_Snapshot(t *testing.T) {
	mock := &mockElectiveService{snapshotResult: &dto.SnapshotResponse{Count: 0, Courses: []model.Course{}}}
	h := NewElectiveHandler(mock)

	if w := serve("GET", "/snapshot", nil, "/snapshot", withAuth(h.GetSnapshot)); w.Code != http.StatusOK {
		t.Errorf("GET expected 200, got %d", w.Code)
	}
	if w := serve("PUT", "/snapshot", jsonBody(dto.SaveSnapshotRequest{}), "/snapshot", withAuth(h.SaveSnapshot)); w.Code != http.StatusOK {
		t.Errorf("PUT expected 200, got %d", w.Code)
	}
	if w := serve("DELETE", "/snapshot", nil, "/snapshot", withAuth(h.ClearSnapshot)); w.Code != http.StatusOK {
		t.Errorf("DELETE expected 200, got %d", w.Code)
	}

	mock.snapshotErr = service.ErrElectiveSnapshotFailed
	w := serve("GET", "/snapshot", nil, "/snapshot", withAuth(h.GetSnapshot))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSessionHandler_CreateSession(t *testing.T) {
	mock := &mockSessionService{createResult: &dto.SessionResponse{
		SessionID: "sid",
		Token:     "token",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	h := NewSessionHandler(mock)

	w := serve("POST", "/sessions", nil, "/sessions", h.CreateSession)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"token":"token"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestSessionHandler_CreateSession_Error(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{createErr: service.ErrSessionIssueFailed})

	w := serve("POST", "/sessions", nil, "/sessions", h.CreateSession)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 18001 {
		t.Errorf("expected code 18001, got %d", resp.Code)
	}
}

func TestSessionHandler_RevokeSession(t *testing.T) {
	mock := &mockSessionService{}
	h := NewSessionHandler(mock)

	w := serve("DELETE", "/sessions/current", nil, "/sessions/current", withAuth(h.RevokeSession))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.revokedJTI != "test-jti" {
		t.Errorf("jti not forwarded: %q", mock.revokedJTI)
	}

	mock.revokeErr = service.ErrSessionRevokeFailed
	w = serve("DELETE", "/sessions/current", nil, "/sessions/current", withAuth(h.RevokeSession))
	if resp := parseResponse(w); w.Code != http.StatusServiceUnavailable || resp.Code != 18002 {
		t.Errorf("expected 503/18002, got %d/%d", w.Code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportTimetable_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("PK-fake"), filename: "已选课程课表.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/timetable.xlsx", nil, "/export/timetable.xlsx", withAuth(h.ExportTimetable))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != "PK-fake" {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestExportHandler_ExportICS_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR"), filename: "已选课程.ics"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/timetable.ics", nil, "/export/timetable.ics", withAuth(h.ExportICS))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeICS {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestExportHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"无快照", service.ErrExportNoSnapshot, http.StatusNotFound, 16101},
		{"未配置日历", service.ErrExportCalendarNotReady, http.StatusConflict, 16102},
		{"生成失败", service.ErrExportGenerateFail, http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExportHandler(&mockExportService{err: tt.err})
			w := serve("GET", "/export/timetable.ics", nil, "/export/timetable.ics", withAuth(h.ExportICS))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestExportHandler_Unauthenticated(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	w := serve("GET", "/export/timetable.xlsx", nil, "/export/timetable.xlsx", h.ExportTimetable)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
