package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"weekly-planner/internal/model"
	"weekly-planner/internal/repository"
)

// ── Mock ScheduleRepository ──

// mockScheduleRepo 以副本形式保存记录，模拟数据库读写语义
type mockScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]model.Schedule
	clock     time.Time
	failErr   error
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{
		schedules: make(map[string]model.Schedule),
		clock:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockScheduleRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if schedule.ScheduleID == "" {
		schedule.ScheduleID = uuid.NewString()
	}
	now := m.tick()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	m.schedules[schedule.ScheduleID] = cloneSchedule(*schedule)
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	s, ok := m.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneSchedule(s)
	return &out, nil
}

func (m *mockScheduleRepo) List(_ context.Context, templates bool) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var result []model.Schedule
	for _, s := range m.schedules {
		if s.IsTemplate == templates {
			result = append(result, cloneSchedule(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockScheduleRepo) Mutate(_ context.Context, id string, fn func(*model.Schedule) error) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	s, ok := m.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	working := cloneSchedule(s)
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = m.tick()
	m.schedules[id] = cloneSchedule(working)
	return &working, nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.schedules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.schedules, id)
	return nil
}

func cloneSchedule(s model.Schedule) model.Schedule {
	s.TimeSlots = append(model.JSONList[model.TimeSlotEntry](nil), s.TimeSlots...)
	s.Activities = append(model.JSONList[model.ActivityEntry](nil), s.Activities...)
	return s
}

// ── Mock ScheduleCache ──

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	hits    int
	deletes []string
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, v interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, v)
}

func (c *mockCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

var errDBDown = errors.New("connection refused")

func newTestRepository(schedule *mockScheduleRepo) *repository.Repository {
	return &repository.Repository{Schedule: schedule}
}
