package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"weekly-planner/internal/dto"
	"weekly-planner/internal/model"
	"weekly-planner/internal/observability"
	"weekly-planner/internal/planner"
	"weekly-planner/internal/repository"
	"weekly-planner/internal/weekgrid"
	apperrors "weekly-planner/pkg/errors"
)

// ── 周计划模块业务错误 ──

var (
	ErrScheduleNotFound = errors.New("周计划不存在")
	ErrInvalidTimeSlot  = fmt.Errorf("时间格不合法: %w", apperrors.ErrInvalidSlot)
	ErrInvalidActivity  = fmt.Errorf("活动名称不能为空: %w", apperrors.ErrValidation)
	ErrInvalidTimestamp = fmt.Errorf("timestamp 须为 RFC3339 格式: %w", apperrors.ErrValidation)
)

// DefaultScheduleTitle 未提供标题时使用的默认值
const DefaultScheduleTitle = "My Weekly Schedule"

const scheduleCachePrefix = "schedule:"

// ScheduleCache 单个周计划读缓存，由 Redis 实现；为 nil 时不缓存
type ScheduleCache interface {
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ScheduleService 周计划业务接口
type ScheduleService interface {
	// 保存周计划（scheduleData 与 timeSlots 统一规整为 timeSlots）
	Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	// 非模板周计划，按创建时间倒序
	List(ctx context.Context) (*dto.ScheduleListResponse, error)
	ListTemplates(ctx context.Context) (*dto.ScheduleListResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	Delete(ctx context.Context, id string) error
	// 写入单个时间格（已存在则覆盖）
	AddTimeSlot(ctx context.Context, id string, req *dto.AddTimeSlotRequest) (*dto.ScheduleResponse, error)
	// 删除单个时间格（不存在时为空操作）
	RemoveTimeSlot(ctx context.Context, id string, req *dto.RemoveTimeSlotRequest) (*dto.ScheduleResponse, error)
	// 时间分布统计
	Stats(ctx context.Context, id string) (*dto.DistributionResponse, error)
}

type scheduleService struct {
	repo     *repository.Repository
	cache    ScheduleCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, cache ScheduleCache, cacheTTL time.Duration, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *scheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	slots, err := normalizeSlots(req.ScheduleData, req.TimeSlots)
	if err != nil {
		return nil, err
	}
	activities, err := normalizeActivities(req.Activities)
	if err != nil {
		return nil, err
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultScheduleTitle
	}

	schedule := &model.Schedule{
		Title:           title,
		TimeSlots:       slots,
		Activities:      activities,
		IsTemplate:      req.IsTemplate,
		ClientTimestamp: ts,
	}
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("保存周计划失败", zap.Error(err))
		return nil, fmt.Errorf("保存周计划失败: %w", err)
	}
	observability.RecordScheduleWrite("create")

	s.logger.Info("周计划已保存",
		zap.String("schedule_id", schedule.ScheduleID),
		zap.Int("slots", len(slots)),
		zap.Bool("template", schedule.IsTemplate),
	)
	return toScheduleResponse(schedule), nil
}

func (s *scheduleService) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrScheduleNotFound
	}

	if s.cache != nil {
		var cached dto.ScheduleResponse
		hit, err := s.cache.GetJSON(ctx, scheduleCachePrefix+id, &cached)
		if err != nil {
			s.logger.Warn("读取周计划缓存失败", zap.String("schedule_id", id), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toScheduleResponse(schedule)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, scheduleCachePrefix+id, resp, s.cacheTTL); err != nil {
			s.logger.Warn("写入周计划缓存失败", zap.String("schedule_id", id), zap.Error(err))
		}
	}
	return resp, nil
}

func (s *scheduleService) List(ctx context.Context) (*dto.ScheduleListResponse, error) {
	return s.list(ctx, false)
}

func (s *scheduleService) ListTemplates(ctx context.Context) (*dto.ScheduleListResponse, error) {
	return s.list(ctx, true)
}

func (s *scheduleService) list(ctx context.Context, templates bool) (*dto.ScheduleListResponse, error) {
	schedules, err := s.repo.Schedule.List(ctx, templates)
	if err != nil {
		s.logger.Error("查询周计划列表失败", zap.Bool("template", templates), zap.Error(err))
		return nil, fmt.Errorf("查询周计划列表失败: %w", err)
	}
	out := &dto.ScheduleListResponse{Schedules: make([]dto.ScheduleResponse, 0, len(schedules))}
	for i := range schedules {
		out.Schedules = append(out.Schedules, *toScheduleResponse(&schedules[i]))
	}
	return out, nil
}

func (s *scheduleService) Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	var (
		slots      model.JSONList[model.TimeSlotEntry]
		activities model.JSONList[model.ActivityEntry]
		err        error
	)
	if req.ScheduleData != nil || req.TimeSlots != nil {
		if slots, err = normalizeSlots(req.ScheduleData, req.TimeSlots); err != nil {
			return nil, err
		}
	}
	if req.Activities != nil {
		if activities, err = normalizeActivities(req.Activities); err != nil {
			return nil, err
		}
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "update", func(m *model.Schedule) error {
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				title = DefaultScheduleTitle
			}
			m.Title = title
		}
		if slots != nil {
			m.TimeSlots = slots
		}
		if activities != nil {
			m.Activities = activities
		}
		if req.IsTemplate != nil {
			m.IsTemplate = *req.IsTemplate
		}
		if ts != nil {
			m.ClientTimestamp = ts
		}
		return nil
	})
}

func (s *scheduleService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrScheduleNotFound
	}
	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		s.logger.Error("删除周计划失败", zap.String("schedule_id", id), zap.Error(err))
		return fmt.Errorf("删除周计划失败: %w", err)
	}
	observability.RecordScheduleWrite("delete")
	s.invalidate(ctx, id)
	return nil
}

func (s *scheduleService) AddTimeSlot(ctx context.Context, id string, req *dto.AddTimeSlotRequest) (*dto.ScheduleResponse, error) {
	key, err := weekgrid.NewSlotKey(req.Day, req.Hour)
	if err != nil {
		return nil, ErrInvalidTimeSlot
	}
	if strings.TrimSpace(req.Activity.Name) == "" {
		return nil, ErrInvalidActivity
	}

	return s.mutate(ctx, id, "add_slot", func(m *model.Schedule) error {
		table, err := tableFromModel(m.TimeSlots)
		if err != nil {
			return err
		}
		if err := table.Place(key, planner.Snapshot{Name: req.Activity.Name, Color: req.Activity.Color}); err != nil {
			return ErrInvalidTimeSlot
		}
		m.TimeSlots = slotsFromTable(table)
		return nil
	})
}

func (s *scheduleService) RemoveTimeSlot(ctx context.Context, id string, req *dto.RemoveTimeSlotRequest) (*dto.ScheduleResponse, error) {
	key, err := weekgrid.NewSlotKey(req.Day, req.Hour)
	if err != nil {
		return nil, ErrInvalidTimeSlot
	}

	return s.mutate(ctx, id, "remove_slot", func(m *model.Schedule) error {
		table, err := tableFromModel(m.TimeSlots)
		if err != nil {
			return err
		}
		if _, err := table.Remove(key); err != nil {
			return ErrInvalidTimeSlot
		}
		m.TimeSlots = slotsFromTable(table)
		return nil
	})
}

func (s *scheduleService) Stats(ctx context.Context, id string) (*dto.DistributionResponse, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	table := planner.NewTable()
	for _, ts := range schedule.TimeSlots {
		key, err := weekgrid.NewSlotKey(ts.Day, ts.Hour)
		if err != nil {
			continue
		}
		_ = table.Place(key, planner.Snapshot{Name: ts.Activity.Name, Color: ts.Activity.Color})
	}

	dist := planner.ComputeDistribution(table)
	out := &dto.DistributionResponse{
		ScheduleID:  schedule.ID,
		TotalSlots:  dist.TotalSlots,
		PerActivity: make([]dto.ActivityShareResponse, 0, len(dist.PerActivity)),
	}
	for _, a := range dist.PerActivity {
		out.PerActivity = append(out.PerActivity, dto.ActivityShareResponse{
			Name:       a.Name,
			Count:      a.Count,
			Percentage: a.Percentage,
			Color:      a.Color,
		})
	}
	return out, nil
}

// ── 内部辅助 ──

func (s *scheduleService) load(ctx context.Context, id string) (*model.Schedule, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询周计划失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("查询周计划失败: %w", err)
	}
	return schedule, nil
}

func (s *scheduleService) mutate(ctx context.Context, id, op string, fn func(*model.Schedule) error) (*dto.ScheduleResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrScheduleNotFound
	}
	schedule, err := s.repo.Schedule.Mutate(ctx, id, fn)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrScheduleNotFound
		case errors.Is(err, apperrors.ErrInvalidSlot), errors.Is(err, apperrors.ErrValidation):
			return nil, err
		}
		s.logger.Error("更新周计划失败", zap.String("schedule_id", id), zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("更新周计划失败: %w", err)
	}
	observability.RecordScheduleWrite(op)
	s.invalidate(ctx, id)
	return toScheduleResponse(schedule), nil
}

func (s *scheduleService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, scheduleCachePrefix+id); err != nil {
		s.logger.Warn("清除周计划缓存失败", zap.String("schedule_id", id), zap.Error(err))
	}
}

// normalizeSlots 将 timeSlots 或 scheduleData 规整为有序、按 key 去重的时间格列表。
// 同时提供时以 timeSlots 为准；scheduleData 按 星期 × 小时 的网格顺序展开。
func normalizeSlots(data map[string]dto.ActivityDTO, slots []dto.TimeSlotDTO) (model.JSONList[model.TimeSlotEntry], error) {
	table := planner.NewTable()

	if slots != nil {
		for _, ts := range slots {
			key, err := weekgrid.NewSlotKey(ts.Day, ts.Hour)
			if err != nil {
				return nil, ErrInvalidTimeSlot
			}
			if err := placeDTO(table, key, ts.Activity); err != nil {
				return nil, err
			}
		}
		return slotsFromTable(table), nil
	}

	keys := make([]weekgrid.SlotKey, 0, len(data))
	for raw := range data {
		key, err := weekgrid.ParseSlotKey(raw)
		if err != nil {
			return nil, ErrInvalidTimeSlot
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Index() < keys[j].Index() })
	for _, key := range keys {
		if err := placeDTO(table, key, data[key.String()]); err != nil {
			return nil, err
		}
	}
	return slotsFromTable(table), nil
}

func placeDTO(table *planner.Table, key weekgrid.SlotKey, a dto.ActivityDTO) error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidActivity
	}
	if err := table.Place(key, planner.Snapshot{Name: a.Name, Color: a.Color}); err != nil {
		return ErrInvalidTimeSlot
	}
	return nil
}

func normalizeActivities(in []dto.ActivityDTO) (model.JSONList[model.ActivityEntry], error) {
	out := make(model.JSONList[model.ActivityEntry], 0, len(in))
	for _, a := range in {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, ErrInvalidActivity
		}
		color := a.Color
		if color == "" {
			color = planner.DefaultColor
		}
		out = append(out, model.ActivityEntry{ID: a.ID, Name: name, Color: color})
	}
	return out, nil
}

func parseTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	return &ts, nil
}

// tableFromModel 还原已存储的时间格；存储数据异常时返回错误而不是静默丢弃
func tableFromModel(slots model.JSONList[model.TimeSlotEntry]) (*planner.Table, error) {
	table := planner.NewTable()
	for _, ts := range slots {
		key, err := weekgrid.NewSlotKey(ts.Day, ts.Hour)
		if err != nil {
			return nil, fmt.Errorf("已存储的时间格 %s-%s 不合法: %v", ts.Day, ts.Hour, err)
		}
		if err := table.Place(key, planner.Snapshot{Name: ts.Activity.Name, Color: ts.Activity.Color}); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func slotsFromTable(table *planner.Table) model.JSONList[model.TimeSlotEntry] {
	entries := table.Entries()
	out := make(model.JSONList[model.TimeSlotEntry], 0, len(entries))
	for _, e := range entries {
		out = append(out, model.TimeSlotEntry{
			Day:  string(e.Key.Day),
			Hour: string(e.Key.Hour),
			Activity: model.ActivityEntry{
				Name:  e.Activity.Name,
				Color: e.Activity.Color,
			},
		})
	}
	return out
}

func toScheduleResponse(m *model.Schedule) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:         m.ScheduleID,
		Title:      m.Title,
		TimeSlots:  make([]dto.TimeSlotDTO, 0, len(m.TimeSlots)),
		Activities: make([]dto.ActivityDTO, 0, len(m.Activities)),
		IsTemplate: m.IsTemplate,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m.ClientTimestamp != nil {
		resp.Timestamp = m.ClientTimestamp.UTC().Format(time.RFC3339)
	}
	for _, ts := range m.TimeSlots {
		resp.TimeSlots = append(resp.TimeSlots, dto.TimeSlotDTO{
			Day:  ts.Day,
			Hour: ts.Hour,
			Activity: dto.ActivityDTO{
				ID:    ts.Activity.ID,
				Name:  ts.Activity.Name,
				Color: ts.Activity.Color,
			},
		})
	}
	for _, a := range m.Activities {
		resp.Activities = append(resp.Activities, dto.ActivityDTO{ID: a.ID, Name: a.Name, Color: a.Color})
	}
	return resp
}
