package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Refresher 定时轮询远端存储，检测其他端写入的更新。
// 轮询失败静默忽略，保留原状态；使用方销毁时必须 Stop。
type Refresher struct {
	scheduler gocron.Scheduler
	planner   *Planner
	interval  time.Duration
	timeout   time.Duration
	onApplied func(Distribution)
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher 创建轮询任务；onApplied 在每次成功应用远端状态后回调（可为 nil）
func NewRefresher(p *Planner, interval time.Duration, logger *zap.Logger, onApplied func(Distribution)) (*Refresher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("轮询间隔必须为正数: %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("创建定时调度器失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		scheduler: s,
		planner:   p,
		interval:  interval,
		timeout:   interval,
		onApplied: onApplied,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.poll),
		gocron.WithName("schedule-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("创建轮询任务失败: %w", err)
	}
	return r, nil
}

// Start 开始轮询
func (r *Refresher) Start() {
	r.logger.Info("开始轮询远端周计划", zap.Duration("interval", r.interval))
	r.scheduler.Start()
}

// Stop 停止轮询并等待进行中的任务结束
func (r *Refresher) Stop() error {
	r.cancel()
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("停止轮询失败: %w", err)
	}
	r.logger.Info("已停止轮询远端周计划")
	return nil
}

// Run 阻塞直到 ctx 结束，退出时保证停止轮询
func (r *Refresher) Run(ctx context.Context) error {
	r.Start()
	<-ctx.Done()
	return r.Stop()
}

func (r *Refresher) poll() {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	err := r.planner.Refresh(ctx)
	switch {
	case err == nil:
		if r.onApplied != nil {
			r.onApplied(r.planner.ComputeDistribution())
		}
	case errors.Is(err, ErrStaleRefresh):
	default:
		r.logger.Debug("轮询远端周计划失败，保留当前状态", zap.Error(err))
	}
}
