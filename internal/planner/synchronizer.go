package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"weekly-planner/internal/dto"
	"weekly-planner/internal/observability"
	apperrors "weekly-planner/pkg/errors"
)

// LocalCache 进程内唯一的本地持久化 KV 存储
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// PutAll 原子写入多个 key（全部成功或全部失败）
	PutAll(ctx context.Context, entries map[string][]byte) error
}

// RemoteStore 远端周计划存储
type RemoteStore interface {
	SaveSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	// LatestSchedule 返回最新的一份周计划，不存在时返回 apperrors.ErrNotFound
	LatestSchedule(ctx context.Context) (*dto.ScheduleResponse, error)
}

// Source 初始状态来源
type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceDefaults Source = "defaults"
)

// SyncOptions Synchronizer 配置
type SyncOptions struct {
	Title         string
	RemoteTimeout time.Duration
}

// Synchronizer 负责本地缓存（同步写穿）与远端存储（异步尽力复制）。
//
// 远端写入由单个 worker 串行发送，同一时刻至多一个请求在途；
// 待发送队列深度为 1，新状态会替换尚未发送的旧状态。
type Synchronizer struct {
	cache  LocalCache
	remote RemoteStore
	logger *zap.Logger
	opts   SyncOptions

	pending     chan *dto.CreateScheduleRequest
	outstanding atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	started   atomic.Bool

	// closeMu 保证 Close 之后不再有请求进入 pending
	closeMu sync.Mutex
	closed  bool
}

// NewSynchronizer 创建 Synchronizer；remote 为 nil 时仅使用本地缓存
func NewSynchronizer(cache LocalCache, remote RemoteStore, logger *zap.Logger, opts SyncOptions) *Synchronizer {
	if opts.Title == "" {
		opts.Title = "My Weekly Schedule"
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		cache:   cache,
		remote:  remote,
		logger:  logger,
		opts:    opts,
		pending: make(chan *dto.CreateScheduleRequest, 1),
		ctx:     ctx,
		cancel:  cancel,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start 启动远端复制 worker（幂等）
func (s *Synchronizer) Start() {
	if s.remote == nil {
		return
	}
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})
}

// Close 停止 worker：先尽力发送尚未发送的最新状态，ctx 到期则中止在途请求
func (s *Synchronizer) Close(ctx context.Context) error {
	s.closeMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.quit)
	}
	s.closeMu.Unlock()

	if !s.started.Load() {
		s.cancel()
		return nil
	}
	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-s.done
		return ctx.Err()
	}
}

// Pending 是否存在尚未完成的远端写入
func (s *Synchronizer) Pending() bool {
	return s.outstanding.Load() > 0
}

// ────────────────────── 初始化加载 ──────────────────────

// Load 依次尝试：远端最新周计划 → 本地缓存 → 默认值
func (s *Synchronizer) Load(ctx context.Context) (*Catalog, *Table, Source, error) {
	if s.remote != nil {
		catalog, table, err := s.Fetch(ctx)
		if err == nil {
			if err := s.StoreLocal(ctx, catalog, table); err != nil {
				s.logger.Warn("远端周计划写入本地缓存失败", zap.Error(err))
			}
			return catalog, table, SourceRemote, nil
		}
		s.logger.Warn("远端周计划加载失败，回退到本地缓存", zap.Error(err))
	}

	catalog, table, found, err := s.loadLocal(ctx)
	if err != nil {
		return nil, nil, "", err
	}
	if found {
		return catalog, table, SourceLocal, nil
	}
	return DefaultCatalog(), NewTable(), SourceDefaults, nil
}

func (s *Synchronizer) loadLocal(ctx context.Context) (*Catalog, *Table, bool, error) {
	rawSchedule, hasSchedule, err := s.cache.Get(ctx, CacheKeySchedule)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: 读取分配表: %v", apperrors.ErrPersistence, err)
	}
	rawActivities, hasActivities, err := s.cache.Get(ctx, CacheKeyActivities)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: 读取活动库: %v", apperrors.ErrPersistence, err)
	}

	catalog := DefaultCatalog()
	if hasActivities {
		if catalog, err = decodeActivities(rawActivities); err != nil {
			return nil, nil, false, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}
	table := NewTable()
	if hasSchedule {
		if table, err = decodeSchedule(rawSchedule); err != nil {
			return nil, nil, false, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
	}
	return catalog, table, hasSchedule || hasActivities, nil
}

// Fetch 仅从远端拉取最新周计划，失败统一包装为 ErrRemoteUnavailable
func (s *Synchronizer) Fetch(ctx context.Context) (*Catalog, *Table, error) {
	if s.remote == nil {
		return nil, nil, fmt.Errorf("%w: 未配置远端存储", apperrors.ErrRemoteUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()

	resp, err := s.remote.LatestSchedule(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrRemoteUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, err)
	}
	catalog, table := fromScheduleResponse(resp, s.logger)
	return catalog, table, nil
}

// ────────────────────── 写入 ──────────────────────

// StoreLocal 同步写入本地缓存（两个 key 原子写入）
func (s *Synchronizer) StoreLocal(ctx context.Context, c *Catalog, t *Table) error {
	entries, err := encodeLocal(c, t)
	if err == nil {
		err = s.cache.PutAll(ctx, entries)
	}
	observability.RecordLocalWrite(err)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// Persist 写穿本地缓存后，将当前完整状态交给远端 worker 异步复制。
// 本地写入失败不影响远端复制的派发；Close 之后只写本地缓存。
func (s *Synchronizer) Persist(ctx context.Context, c *Catalog, t *Table) error {
	err := s.StoreLocal(ctx, c, t)
	if s.remote != nil {
		s.enqueue(toSaveRequest(s.opts.Title, c, t, time.Now()))
	}
	return err
}

func (s *Synchronizer) enqueue(req *dto.CreateScheduleRequest) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		s.logger.Debug("Synchronizer 已关闭，跳过远端复制")
		return
	}

	s.outstanding.Add(1)
	for {
		select {
		case s.pending <- req:
			return
		default:
		}
		// 替换尚未发送的旧状态
		select {
		case <-s.pending:
			s.outstanding.Add(-1)
		default:
		}
	}
}

// ────────────────────── 远端复制 worker ──────────────────────

func (s *Synchronizer) run() {
	defer close(s.done)
	for {
		select {
		case req := <-s.pending:
			s.replicate(req)
		case <-s.quit:
			select {
			case req := <-s.pending:
				s.replicate(req)
			default:
			}
			return
		}
	}
}

func (s *Synchronizer) replicate(req *dto.CreateScheduleRequest) {
	defer s.outstanding.Add(-1)

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.RemoteTimeout)
	defer cancel()

	resp, err := s.remote.SaveSchedule(ctx, req)
	observability.RecordReplication(err, time.Now())
	if err != nil {
		s.logger.Warn("远端同步失败，仅保留本地缓存",
			zap.Int("time_slots", len(req.TimeSlots)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("远端同步完成",
		zap.String("schedule_id", resp.ID),
		zap.Int("time_slots", len(req.TimeSlots)),
	)
}
