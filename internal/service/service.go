package service

import (
	"go.uber.org/zap"

	"weekly-planner/config"
	"weekly-planner/internal/repository"
	"weekly-planner/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Schedule ScheduleService
	Export   ExportService
}

// NewService 创建 Service 聚合；rdb 为 nil 时不启用读缓存
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var cache ScheduleCache
	if rdb != nil {
		cache = rdb
	}
	return &Service{
		Schedule: NewScheduleService(repo, cache, cfg.Redis.CacheTTL, logger),
		Export:   NewExportService(repo, logger),
	}
}
