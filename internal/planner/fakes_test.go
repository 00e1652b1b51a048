package planner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weekly-planner/internal/dto"
	apperrors "weekly-planner/pkg/errors"
)

// ── 内存版 LocalCache ──

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
	puts   int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) PutAll(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// ── 可控的 RemoteStore ──

type fakeRemote struct {
	mu        sync.Mutex
	saved     []*dto.CreateScheduleRequest
	saveErr   error
	latest    *dto.ScheduleResponse
	latestErr error

	started  chan struct{} // 每次 SaveSchedule 开始时尝试通知
	gate     chan struct{} // 非 nil 时 SaveSchedule 阻塞到关闭
	fetching chan struct{} // 每次 LatestSchedule 开始时尝试通知
	fetch    chan struct{} // 非 nil 时 LatestSchedule 阻塞到关闭
}

func (f *fakeRemote) SaveSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, req)
	return &dto.ScheduleResponse{ID: fmt.Sprintf("sch-%d", len(f.saved))}, nil
}

func (f *fakeRemote) LatestSchedule(ctx context.Context) (*dto.ScheduleResponse, error) {
	if f.fetching != nil {
		select {
		case f.fetching <- struct{}{}:
		default:
		}
	}
	if f.fetch != nil {
		select {
		case <-f.fetch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeRemote) setLatest(resp *dto.ScheduleResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = resp
}

func (f *fakeRemote) savedRequests() []*dto.CreateScheduleRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*dto.CreateScheduleRequest(nil), f.saved...)
}

// ── 测试辅助 ──

func newTestPlanner(t *testing.T, cache LocalCache, remote RemoteStore) *Planner {
	t.Helper()
	syncer := NewSynchronizer(cache, remote, zap.NewNop(), SyncOptions{RemoteTimeout: 2 * time.Second})
	p, err := New(context.Background(), syncer, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = p.Close(ctx)
	})
	return p
}

func closePlanner(t *testing.T, p *Planner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func remoteSchedule(id string, slots ...dto.TimeSlotDTO) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ID:        id,
		Title:     "My Weekly Schedule",
		TimeSlots: slots,
		Activities: []dto.ActivityDTO{
			{ID: 1, Name: "Meeting", Color: "#3B82F6"},
			{ID: 7, Name: "Gym", Color: "#F59E0B"},
		},
	}
}

func slot(day, hour, name, color string) dto.TimeSlotDTO {
	return dto.TimeSlotDTO{Day: day, Hour: hour, Activity: dto.ActivityDTO{Name: name, Color: color}}
}
