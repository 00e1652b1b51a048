package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"weekly-planner/internal/model"
)

// ScheduleRepository 周计划数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	// List 按创建时间倒序返回 is_template = templates 的周计划
	List(ctx context.Context, templates bool) ([]model.Schedule, error)
	// Mutate 在行锁内读取周计划并交给 fn 修改，fn 返回 nil 时写回
	Mutate(ctx context.Context, id string, fn func(*model.Schedule) error) (*model.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// ── Schedule Repository 实现 ──

type scheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, templates bool) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("is_template = ?", templates).
		Order("created_at DESC").
		Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepo) Mutate(ctx context.Context, id string, fn func(*model.Schedule) error) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("schedule_id = ?", id).
			First(&schedule).Error; err != nil {
			return err
		}
		if err := fn(&schedule); err != nil {
			return err
		}
		schedule.UpdatedAt = time.Now()
		return tx.Model(&schedule).
			Where("schedule_id = ?", id).
			Updates(map[string]interface{}{
				"title":            schedule.Title,
				"time_slots":       schedule.TimeSlots,
				"activities":       schedule.Activities,
				"is_template":      schedule.IsTemplate,
				"client_timestamp": schedule.ClientTimestamp,
				"updated_at":       schedule.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		Delete(&model.Schedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
