package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"weekly-planner/internal/dto"
	"weekly-planner/internal/weekgrid"
)

// 本地缓存中由 Synchronizer 独占的两个 key
const (
	CacheKeySchedule   = "weeklySchedule"
	CacheKeyActivities = "activities"
)

// encodeLocal 将活动库与分配表序列化为本地缓存条目
func encodeLocal(c *Catalog, t *Table) (map[string][]byte, error) {
	schedule, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("序列化分配表失败: %w", err)
	}
	activities, err := json.Marshal(c.List())
	if err != nil {
		return nil, fmt.Errorf("序列化活动库失败: %w", err)
	}
	return map[string][]byte{
		CacheKeySchedule:   schedule,
		CacheKeyActivities: activities,
	}, nil
}

func decodeActivities(raw []byte) (*Catalog, error) {
	var items []Activity
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("解析活动库失败: %w", err)
	}
	return NewCatalog(items), nil
}

func decodeSchedule(raw []byte) (*Table, error) {
	t := NewTable()
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("解析分配表失败: %w", err)
	}
	return t, nil
}

// toSaveRequest 构造远端保存请求（时间格按分配表顺序展开为 timeSlots）
func toSaveRequest(title string, c *Catalog, t *Table, now time.Time) *dto.CreateScheduleRequest {
	entries := t.Entries()
	req := &dto.CreateScheduleRequest{
		Title:      title,
		TimeSlots:  make([]dto.TimeSlotDTO, 0, len(entries)),
		Activities: make([]dto.ActivityDTO, 0, c.Len()),
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		req.TimeSlots = append(req.TimeSlots, dto.TimeSlotDTO{
			Day:  string(e.Key.Day),
			Hour: string(e.Key.Hour),
			Activity: dto.ActivityDTO{
				Name:  e.Activity.Name,
				Color: e.Activity.Color,
			},
		})
	}
	for _, a := range c.List() {
		req.Activities = append(req.Activities, dto.ActivityDTO{ID: a.ID, Name: a.Name, Color: a.Color})
	}
	return req
}

// fromScheduleResponse 将远端周计划还原为活动库与分配表。
// 远端数据不可信：非法时间格跳过并记录日志；活动列表为空时使用默认活动库。
func fromScheduleResponse(resp *dto.ScheduleResponse, logger *zap.Logger) (*Catalog, *Table) {
	var catalog *Catalog
	if len(resp.Activities) == 0 {
		catalog = DefaultCatalog()
	} else {
		items := make([]Activity, 0, len(resp.Activities))
		for _, a := range resp.Activities {
			items = append(items, Activity{ID: a.ID, Name: a.Name, Color: a.Color})
		}
		catalog = NewCatalog(items)
	}

	table := NewTable()
	for _, ts := range resp.TimeSlots {
		k, err := weekgrid.NewSlotKey(ts.Day, ts.Hour)
		if err != nil {
			logger.Warn("远端周计划包含无效时间格，已跳过",
				zap.String("schedule_id", resp.ID),
				zap.String("day", ts.Day),
				zap.String("hour", ts.Hour),
			)
			continue
		}
		_ = table.Place(k, Snapshot{Name: ts.Activity.Name, Color: ts.Activity.Color})
	}
	return catalog, table
}
