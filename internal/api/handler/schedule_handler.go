package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"weekly-planner/internal/dto"
	"weekly-planner/internal/service"
	apperrors "weekly-planner/pkg/errors"
	"weekly-planner/pkg/response"
)

// ScheduleHandler 周计划模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	exportSvc   service.ExportService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, exportSvc service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, exportSvc: exportSvc}
}

// CreateSchedule 保存周计划
// POST /api/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.scheduleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// ListSchedules 获取周计划列表（不含模板）
// GET /api/schedules
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	list, err := h.scheduleSvc.List(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, list)
}

// ListTemplates 获取模板列表
// GET /api/schedules/templates/all
func (h *ScheduleHandler) ListTemplates(c *gin.Context) {
	list, err := h.scheduleSvc.ListTemplates(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, list)
}

// GetSchedule 获取周计划
// GET /api/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// UpdateSchedule 更新周计划
// PUT /api/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.scheduleSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// DeleteSchedule 删除周计划
// DELETE /api/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	if err := h.scheduleSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddTimeSlot 写入单个时间格
// POST /api/schedules/:id/timeslots
func (h *ScheduleHandler) AddTimeSlot(c *gin.Context) {
	var req dto.AddTimeSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.scheduleSvc.AddTimeSlot(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// RemoveTimeSlot 删除单个时间格
// DELETE /api/schedules/:id/timeslots
func (h *ScheduleHandler) RemoveTimeSlot(c *gin.Context) {
	var req dto.RemoveTimeSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := h.scheduleSvc.RemoveTimeSlot(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// GetStats 时间分布统计
// GET /api/schedules/:id/stats
func (h *ScheduleHandler) GetStats(c *gin.Context) {
	stats, err := h.scheduleSvc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, stats)
}

// ExportSchedule 导出周计划
// GET /api/schedules/:id/export
func (h *ScheduleHandler) ExportSchedule(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// bindJSON 绑定并校验请求体，失败时写入 400 / 413 响应
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.PayloadTooLarge(c)
		return false
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 13001, "参数校验失败", err.Error())
	return false
}

func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 13101, "周计划不存在")
	case errors.Is(err, service.ErrInvalidTimestamp):
		response.BadRequest(c, 13104, "timestamp 须为 RFC3339 格式")
	case errors.Is(err, apperrors.ErrInvalidSlot):
		response.BadRequest(c, 13102, "时间格不合法")
	case errors.Is(err, apperrors.ErrValidation):
		response.BadRequest(c, 13103, "活动名称不能为空")
	default:
		response.InternalError(c)
	}
}
