package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"weekly-planner/internal/dto"
	"weekly-planner/internal/service"
	"weekly-planner/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock ScheduleService ──

type mockScheduleService struct {
	createReq     *dto.CreateScheduleRequest
	createResult  *dto.ScheduleResponse
	createErr     error
	getResult     *dto.ScheduleResponse
	getErr        error
	listResult    *dto.ScheduleListResponse
	listErr       error
	tmplResult    *dto.ScheduleListResponse
	updateResult  *dto.ScheduleResponse
	updateErr     error
	deleteErr     error
	addSlotReq    *dto.AddTimeSlotRequest
	addSlotResult *dto.ScheduleResponse
	addSlotErr    error
	removeResult  *dto.ScheduleResponse
	removeErr     error
	statsResult   *dto.DistributionResponse
	statsErr      error
	lastID        string
}

func (m *mockScheduleService) Create(_ context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	m.createReq = req
	return m.createResult, m.createErr
}
func (m *mockScheduleService) Get(_ context.Context, id string) (*dto.ScheduleResponse, error) {
	m.lastID = id
	return m.getResult, m.getErr
}
func (m *mockScheduleService) List(_ context.Context) (*dto.ScheduleListResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockScheduleService) ListTemplates(_ context.Context) (*dto.ScheduleListResponse, error) {
	return m.tmplResult, nil
}
func (m *mockScheduleService) Update(_ context.Context, id string, _ *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	m.lastID = id
	return m.updateResult, m.updateErr
}
func (m *mockScheduleService) Delete(_ context.Context, id string) error {
	m.lastID = id
	return m.deleteErr
}
func (m *mockScheduleService) AddTimeSlot(_ context.Context, id string, req *dto.AddTimeSlotRequest) (*dto.ScheduleResponse, error) {
	m.lastID = id
	m.addSlotReq = req
	return m.addSlotResult, m.addSlotErr
}
func (m *mockScheduleService) RemoveTimeSlot(_ context.Context, id string, _ *dto.RemoveTimeSlotRequest) (*dto.ScheduleResponse, error) {
	m.lastID = id
	return m.removeResult, m.removeErr
}
func (m *mockScheduleService) Stats(_ context.Context, id string) (*dto.DistributionResponse, error) {
	m.lastID = id
	return m.statsResult, m.statsErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportSchedule(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testID = "11111111-1111-1111-1111-111111111111"

func setupRouter(sched *mockScheduleService, export *mockExportService) *gin.Engine {
	if export == nil {
		export = &mockExportService{}
	}
	h := NewScheduleHandler(sched, export)

	r := gin.New()
	g := r.Group("/api/schedules")
	g.GET("", h.ListSchedules)
	g.POST("", h.CreateSchedule)
	g.GET("/templates/all", h.ListTemplates)
	g.GET("/:id", h.GetSchedule)
	g.PUT("/:id", h.UpdateSchedule)
	g.DELETE("/:id", h.DeleteSchedule)
	g.POST("/:id/timeslots", h.AddTimeSlot)
	g.DELETE("/:id/timeslots", h.RemoveTimeSlot)
	g.GET("/:id/stats", h.GetStats)
	g.GET("/:id/export", h.ExportSchedule)
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func do(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_Create_Success(t *testing.T) {
	mock := &mockScheduleService{createResult: &dto.ScheduleResponse{ID: testID}}
	r := setupRouter(mock, nil)

	w := do(r, "POST", "/api/schedules", jsonBody(map[string]interface{}{
		"title":        "My Weekly Schedule",
		"scheduleData": map[string]interface{}{"Monday-9 AM": map[string]string{"name": "Meeting", "color": "#3B82F6"}},
		"activities":   []map[string]interface{}{{"id": 1, "name": "Meeting", "color": "#3B82F6"}},
		"isTemplate":   false,
		"timestamp":    "2026-03-02T10:00:00Z",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.createReq == nil || mock.createReq.ScheduleData["Monday-9 AM"].Name != "Meeting" {
		t.Errorf("scheduleData 未正确绑定: %+v", mock.createReq)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestScheduleHandler_Create_BadJSON(t *testing.T) {
	r := setupRouter(&mockScheduleService{}, nil)

	w := do(r, "POST", "/api/schedules", bytes.NewReader([]byte("bad")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13001 {
		t.Errorf("expected code 13001, got %d", resp.Code)
	}
}

func TestScheduleHandler_Create_ActivityNameRequired(t *testing.T) {
	r := setupRouter(&mockScheduleService{}, nil)

	w := do(r, "POST", "/api/schedules", jsonBody(map[string]interface{}{
		"timeSlots": []map[string]interface{}{{"day": "Monday", "hour": "9 AM", "activity": map[string]string{"color": "#fff"}}},
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_Create_InvalidSlot(t *testing.T) {
	r := setupRouter(&mockScheduleService{createErr: service.ErrInvalidTimeSlot}, nil)

	w := do(r, "POST", "/api/schedules", jsonBody(dto.CreateScheduleRequest{}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13102 {
		t.Errorf("expected code 13102, got %d", resp.Code)
	}
}

func TestScheduleHandler_Create_InvalidTimestamp(t *testing.T) {
	r := setupRouter(&mockScheduleService{createErr: service.ErrInvalidTimestamp}, nil)

	w := do(r, "POST", "/api/schedules", jsonBody(dto.CreateScheduleRequest{}))
	if resp := parseResponse(w); resp.Code != 13104 {
		t.Errorf("expected code 13104, got %d", resp.Code)
	}
}

func TestScheduleHandler_List(t *testing.T) {
	mock := &mockScheduleService{listResult: &dto.ScheduleListResponse{
		Schedules: []dto.ScheduleResponse{{ID: testID}},
	}}
	r := setupRouter(mock, nil)

	w := do(r, "GET", "/api/schedules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Data dto.ScheduleListResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(body.Data.Schedules) != 1 || body.Data.Schedules[0].ID != testID {
		t.Errorf("列表内容错误: %+v", body.Data)
	}
}

func TestScheduleHandler_List_InternalError(t *testing.T) {
	r := setupRouter(&mockScheduleService{listErr: errors.New("db down")}, nil)

	w := do(r, "GET", "/api/schedules", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestScheduleHandler_TemplatesRouteNotShadowedByID(t *testing.T) {
	mock := &mockScheduleService{tmplResult: &dto.ScheduleListResponse{Schedules: []dto.ScheduleResponse{}}}
	r := setupRouter(mock, nil)

	w := do(r, "GET", "/api/schedules/templates/all", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastID != "" {
		t.Errorf("模板路由不应进入 GetSchedule，lastID=%s", mock.lastID)
	}
}

func TestScheduleHandler_Get_NotFound(t *testing.T) {
	mock := &mockScheduleService{getErr: service.ErrScheduleNotFound}
	r := setupRouter(mock, nil)

	w := do(r, "GET", "/api/schedules/"+testID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if mock.lastID != testID {
		t.Errorf("路径参数未透传: %s", mock.lastID)
	}
}

func TestScheduleHandler_Update_Success(t *testing.T) {
	mock := &mockScheduleService{updateResult: &dto.ScheduleResponse{ID: testID, Title: "after"}}
	r := setupRouter(mock, nil)

	w := do(r, "PUT", "/api/schedules/"+testID, jsonBody(map[string]interface{}{"title": "after"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Delete(t *testing.T) {
	r := setupRouter(&mockScheduleService{}, nil)
	if w := do(r, "DELETE", "/api/schedules/"+testID, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	r = setupRouter(&mockScheduleService{deleteErr: service.ErrScheduleNotFound}, nil)
	if w := do(r, "DELETE", "/api/schedules/"+testID, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestScheduleHandler_AddTimeSlot(t *testing.T) {
	mock := &mockScheduleService{addSlotResult: &dto.ScheduleResponse{ID: testID}}
	r := setupRouter(mock, nil)

	w := do(r, "POST", "/api/schedules/"+testID+"/timeslots", jsonBody(dto.AddTimeSlotRequest{
		Day: "Monday", Hour: "9 AM", Activity: dto.ActivityDTO{Name: "Meeting", Color: "#3B82F6"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.addSlotReq == nil || mock.addSlotReq.Hour != "9 AM" {
		t.Errorf("请求体未正确绑定: %+v", mock.addSlotReq)
	}
}

func TestScheduleHandler_AddTimeSlot_MissingDay(t *testing.T) {
	r := setupRouter(&mockScheduleService{}, nil)

	w := do(r, "POST", "/api/schedules/"+testID+"/timeslots", jsonBody(map[string]interface{}{
		"hour": "9 AM", "activity": map[string]string{"name": "Meeting"},
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestScheduleHandler_RemoveTimeSlot(t *testing.T) {
	mock := &mockScheduleService{removeResult: &dto.ScheduleResponse{ID: testID}}
	r := setupRouter(mock, nil)

	w := do(r, "DELETE", "/api/schedules/"+testID+"/timeslots", jsonBody(dto.RemoveTimeSlotRequest{Day: "Monday", Hour: "9 AM"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_Stats(t *testing.T) {
	mock := &mockScheduleService{statsResult: &dto.DistributionResponse{
		ScheduleID: testID,
		TotalSlots: 2,
		PerActivity: []dto.ActivityShareResponse{
			{Name: "Work", Count: 2, Percentage: 100, Color: "#10B981"},
		},
	}}
	r := setupRouter(mock, nil)

	w := do(r, "GET", "/api/schedules/"+testID+"/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data dto.DistributionResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.TotalSlots != 2 || body.Data.PerActivity[0].Percentage != 100 {
		t.Errorf("统计内容错误: %+v", body.Data)
	}
}

func TestScheduleHandler_Export(t *testing.T) {
	export := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "My Weekly Schedule.xlsx"}
	r := setupRouter(&mockScheduleService{}, export)

	w := do(r, "GET", "/api/schedules/"+testID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type 错误: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename*=UTF-8''My+Weekly+Schedule.xlsx" {
		t.Errorf("Content-Disposition 错误: %s", cd)
	}
	if w.Body.String() != "xlsx" {
		t.Errorf("响应体错误: %q", w.Body.String())
	}
}

func TestScheduleHandler_Export_NotFound(t *testing.T) {
	export := &mockExportService{err: service.ErrScheduleNotFound}
	r := setupRouter(&mockScheduleService{}, export)

	w := do(r, "GET", "/api/schedules/"+testID+"/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
