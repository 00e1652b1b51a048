package model

import "time"

// ActivityEntry 活动（活动库条目或时间格上的快照）
type ActivityEntry struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TimeSlotEntry 单个时间格分配
type TimeSlotEntry struct {
	Day      string        `json:"day"`
	Hour     string        `json:"hour"`
	Activity ActivityEntry `json:"activity"`
}

// Schedule 周计划，对应 schedules 表
type Schedule struct {
	ScheduleID      string                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"schedule_id"`
	Title           string                  `gorm:"type:varchar(200);not null;default:'My Weekly Schedule'" json:"title"`
	TimeSlots       JSONList[TimeSlotEntry] `gorm:"type:jsonb;not null;default:'[]'"                        json:"time_slots"`
	Activities      JSONList[ActivityEntry] `gorm:"type:jsonb;not null;default:'[]'"                        json:"activities"`
	IsTemplate      bool                    `gorm:"not null;default:false"                                  json:"is_template"`
	ClientTimestamp *time.Time              `json:"client_timestamp,omitempty"`
	SoftDeleteModel
}

func (Schedule) TableName() string { return "schedules" }
