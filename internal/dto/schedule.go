package dto

// ── 周计划模块 DTO ──
//
// 字段命名沿用前端约定的 camelCase（scheduleData / timeSlots / isTemplate）。

// ActivityDTO 活动（活动库条目或时间格快照，快照可不带 id）
type ActivityDTO struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"  binding:"required,max=100"`
	Color string `json:"color" binding:"omitempty,max=32"`
}

// TimeSlotDTO 单个时间格分配
type TimeSlotDTO struct {
	Day      string      `json:"day"      binding:"required"`
	Hour     string      `json:"hour"     binding:"required"`
	Activity ActivityDTO `json:"activity"`
}

// CreateScheduleRequest 保存周计划请求
// scheduleData 与 timeSlots 二选一；同时提供时以 timeSlots 为准
type CreateScheduleRequest struct {
	Title        string                 `json:"title"        binding:"omitempty,max=200"`
	ScheduleData map[string]ActivityDTO `json:"scheduleData"`
	TimeSlots    []TimeSlotDTO          `json:"timeSlots"    binding:"omitempty,max=63,dive"`
	Activities   []ActivityDTO          `json:"activities"   binding:"omitempty,max=500,dive"`
	IsTemplate   bool                   `json:"isTemplate"`
	Timestamp    string                 `json:"timestamp"`
}

// UpdateScheduleRequest 更新周计划请求（nil 字段保持不变）
type UpdateScheduleRequest struct {
	Title        *string                `json:"title"        binding:"omitempty,max=200"`
	ScheduleData map[string]ActivityDTO `json:"scheduleData"`
	TimeSlots    []TimeSlotDTO          `json:"timeSlots"    binding:"omitempty,max=63,dive"`
	Activities   []ActivityDTO          `json:"activities"   binding:"omitempty,max=500,dive"`
	IsTemplate   *bool                  `json:"isTemplate"`
	Timestamp    string                 `json:"timestamp"`
}

// AddTimeSlotRequest 向周计划写入单个时间格
type AddTimeSlotRequest struct {
	Day      string      `json:"day"  binding:"required"`
	Hour     string      `json:"hour" binding:"required"`
	Activity ActivityDTO `json:"activity"`
}

// RemoveTimeSlotRequest 删除单个时间格
type RemoveTimeSlotRequest struct {
	Day  string `json:"day"  binding:"required"`
	Hour string `json:"hour" binding:"required"`
}

// ── 响应 ──

// ScheduleResponse 周计划响应
type ScheduleResponse struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	TimeSlots  []TimeSlotDTO `json:"timeSlots"`
	Activities []ActivityDTO `json:"activities"`
	IsTemplate bool          `json:"isTemplate"`
	Timestamp  string        `json:"timestamp"`
	CreatedAt  string        `json:"createdAt"`
	UpdatedAt  string        `json:"updatedAt"`
}

// ScheduleListResponse 周计划列表（按创建时间倒序）
type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
}

// ActivityShareResponse 单个活动占比
type ActivityShareResponse struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// DistributionResponse 时间分布统计
type DistributionResponse struct {
	ScheduleID  string                  `json:"scheduleId"`
	TotalSlots  int                     `json:"totalSlots"`
	PerActivity []ActivityShareResponse `json:"perActivity"`
}
