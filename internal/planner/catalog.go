package planner

import (
	"fmt"
	"strings"

	apperrors "weekly-planner/pkg/errors"
)

// DefaultColor 未指定颜色时使用的默认色
const DefaultColor = "#3B82F6"

// Activity 活动库中的活动定义
type Activity struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Snapshot 放入时间格时的活动值拷贝，与活动库后续修改解耦
type Snapshot struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Snapshot 取活动的值拷贝
func (a Activity) Snapshot() Snapshot {
	return Snapshot{Name: a.Name, Color: a.Color}
}

// DefaultActivities 首次启动时的活动库
func DefaultActivities() []Activity {
	return []Activity{
		{ID: 1, Name: "Meeting", Color: "#3B82F6"},
		{ID: 2, Name: "Work", Color: "#10B981"},
		{ID: 3, Name: "Exercise", Color: "#F59E0B"},
		{ID: 4, Name: "Study", Color: "#8B5CF6"},
	}
}

// Catalog 活动库：按创建顺序保存，ID 单调递增且不复用
type Catalog struct {
	items  []Activity
	nextID int
}

// NewCatalog 以已有活动初始化，nextID 取已有最大 ID + 1
func NewCatalog(items []Activity) *Catalog {
	c := &Catalog{
		items:  make([]Activity, len(items)),
		nextID: 1,
	}
	copy(c.items, items)
	for _, a := range items {
		if a.ID >= c.nextID {
			c.nextID = a.ID + 1
		}
	}
	return c
}

// DefaultCatalog 默认活动库
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultActivities())
}

// Create 新建活动；名称去除首尾空白后不能为空，不按名称去重
func (c *Catalog) Create(name, color string) (Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Activity{}, fmt.Errorf("%w: 活动名称不能为空", apperrors.ErrValidation)
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultColor
	}

	a := Activity{ID: c.nextID, Name: name, Color: color}
	c.items = append(c.items, a)
	c.nextID++
	return a, nil
}

// List 按创建顺序返回活动副本
func (c *Catalog) List() []Activity {
	out := make([]Activity, len(c.items))
	copy(out, c.items)
	return out
}

// Get 按 ID 查找活动
func (c *Catalog) Get(id int) (Activity, bool) {
	for _, a := range c.items {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

// NextID 下一个将被分配的 ID
func (c *Catalog) NextID() int { return c.nextID }

// Len 活动数量
func (c *Catalog) Len() int { return len(c.items) }
