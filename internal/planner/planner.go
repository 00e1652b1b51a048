package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"weekly-planner/internal/observability"
	"weekly-planner/internal/weekgrid"
	apperrors "weekly-planner/pkg/errors"
)

// ErrStaleRefresh 轮询结果早于本地最新状态，已被丢弃
var ErrStaleRefresh = errors.New("远端快照已过期")

// Planner 周计划的唯一写入入口。
//
// 每个写操作在持锁期间完成内存修改与本地缓存写入后才返回；
// 远端复制只派发不等待。本地缓存写入失败返回 ErrPersistence，内存修改不回滚。
type Planner struct {
	mu       sync.RWMutex
	catalog  *Catalog
	table    *Table
	revision uint64
	source   Source

	sync   *Synchronizer
	logger *zap.Logger
}

// New 加载初始状态并启动远端复制
func New(ctx context.Context, syncer *Synchronizer, logger *zap.Logger) (*Planner, error) {
	catalog, table, source, err := syncer.Load(ctx)
	if err != nil {
		return nil, err
	}
	syncer.Start()

	logger.Info("周计划已加载",
		zap.String("source", string(source)),
		zap.Int("activities", catalog.Len()),
		zap.Int("time_slots", table.Len()),
	)

	return &Planner{
		catalog: catalog,
		table:   table,
		source:  source,
		sync:    syncer,
		logger:  logger,
	}, nil
}

// Close 结束会话：尽力发送最后一次远端写入
func (p *Planner) Close(ctx context.Context) error {
	return p.sync.Close(ctx)
}

// Source 初始状态来源
func (p *Planner) Source() Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// commitLocked 在持有写锁时调用
func (p *Planner) commitLocked(ctx context.Context) error {
	p.revision++
	if err := p.sync.Persist(ctx, p.catalog, p.table); err != nil {
		p.logger.Error("本地缓存写入失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 活动库 ──────────────────────

// CreateActivity 新建活动；名称为空返回 ErrValidation 且状态不变
func (p *Planner) CreateActivity(ctx context.Context, name, color string) (Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.catalog.Create(name, color)
	if err != nil {
		return Activity{}, err
	}
	return a, p.commitLocked(ctx)
}

// ListActivities 按创建顺序返回活动库
func (p *Planner) ListActivities() []Activity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog.List()
}

// Activity 按 ID 查找活动
func (p *Planner) Activity(id int) (Activity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog.Get(id)
}

// ────────────────────── 时间格 ──────────────────────

// PlaceActivity 将活动快照放入时间格（覆盖已有分配）。
// 快照名称去除首尾空白后不能为空，与活动库规则一致。
func (p *Planner) PlaceActivity(ctx context.Context, day, hour string, a Snapshot) error {
	k, err := weekgrid.NewSlotKey(day, hour)
	if err != nil {
		return err
	}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("%w: 活动名称不能为空", apperrors.ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.table.Place(k, a); err != nil {
		return err
	}
	return p.commitLocked(ctx)
}

// RemoveActivity 删除时间格分配，空格为 no-op
func (p *Planner) RemoveActivity(ctx context.Context, day, hour string) error {
	k, err := weekgrid.NewSlotKey(day, hour)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	removed, err := p.table.Remove(k)
	if err != nil || !removed {
		return err
	}
	return p.commitLocked(ctx)
}

// MoveActivity 在一次加锁内完成 place(to) + remove(from)，
// 读者不会观察到活动重复或同时缺失
func (p *Planner) MoveActivity(ctx context.Context, fromDay, fromHour, toDay, toHour string) error {
	from, err := weekgrid.NewSlotKey(fromDay, fromHour)
	if err != nil {
		return err
	}
	to, err := weekgrid.NewSlotKey(toDay, toHour)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	moved, err := p.table.Move(from, to)
	if err != nil || !moved {
		return err
	}
	return p.commitLocked(ctx)
}

// ClearSchedule 清空全部分配，活动库保留
func (p *Planner) ClearSchedule(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table.Len() == 0 {
		return nil
	}
	p.table.Clear()
	return p.commitLocked(ctx)
}

// Get 读取时间格分配
func (p *Planner) Get(day, hour string) (Snapshot, bool, error) {
	k, err := weekgrid.NewSlotKey(day, hour)
	if err != nil {
		return Snapshot{}, false, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.table.Get(k)
	return s, ok, nil
}

// Entries 按插入顺序返回全部分配
func (p *Planner) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table.Entries()
}

// ComputeDistribution 基于当前分配表计算时间分布
func (p *Planner) ComputeDistribution() Distribution {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ComputeDistribution(p.table)
}

// ────────────────────── 远端刷新 ──────────────────────

// Refresh 拉取远端最新周计划并替换内存与本地缓存。
// 拉取期间本地发生过修改，或仍有未完成的远端写入时，结果作废（返回 ErrStaleRefresh）。
func (p *Planner) Refresh(ctx context.Context) error {
	p.mu.RLock()
	rev := p.revision
	p.mu.RUnlock()

	catalog, table, err := p.sync.Fetch(ctx)
	if err != nil {
		observability.RecordPoll("failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.revision != rev || p.sync.Pending() {
		observability.RecordPoll("stale")
		p.logger.Debug("丢弃过期的远端快照", zap.Uint64("revision", p.revision))
		return ErrStaleRefresh
	}

	p.catalog = catalog
	p.table = table
	p.revision++
	observability.RecordPoll("applied")

	if err := p.sync.StoreLocal(ctx, catalog, table); err != nil {
		p.logger.Error("本地缓存写入失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 拖拽 ──────────────────────

// TransferSource 拖拽来源
type TransferSource string

const (
	FromLibrary  TransferSource = "library"
	FromSchedule TransferSource = "schedule"
)

// Transfer 拖拽传输记录：从活动库拖入为放置，从网格拖动为移动
type Transfer struct {
	Source   TransferSource
	Activity Snapshot
	Origin   *weekgrid.SlotKey
}

// Drop 消费一次拖拽放下事件
func (p *Planner) Drop(ctx context.Context, t Transfer, day, hour string) error {
	switch t.Source {
	case FromLibrary:
		return p.PlaceActivity(ctx, day, hour, t.Activity)
	case FromSchedule:
		if t.Origin == nil {
			return fmt.Errorf("%w: 网格拖拽缺少来源时间格", apperrors.ErrValidation)
		}
		return p.MoveActivity(ctx, string(t.Origin.Day), string(t.Origin.Hour), day, hour)
	default:
		return fmt.Errorf("%w: 未知的拖拽来源 %q", apperrors.ErrValidation, t.Source)
	}
}
