package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"weekly-planner/internal/weekgrid"
	apperrors "weekly-planner/pkg/errors"
)

// Entry 一条时间格分配
type Entry struct {
	Key      weekgrid.SlotKey
	Activity Snapshot
}

// Table 时间格分配表：每个 SlotKey 至多一条分配，后写覆盖。
// 遍历顺序为插入顺序，覆盖已有 key 时保持原位置。
type Table struct {
	order []weekgrid.SlotKey
	slots map[weekgrid.SlotKey]Snapshot
}

// NewTable 创建空分配表
func NewTable() *Table {
	return &Table{slots: make(map[weekgrid.SlotKey]Snapshot)}
}

// Place 将活动快照写入时间格，已有分配直接覆盖
func (t *Table) Place(k weekgrid.SlotKey, s Snapshot) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, k.String())
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if _, ok := t.slots[k]; !ok {
		t.order = append(t.order, k)
	}
	t.slots[k] = Snapshot{Name: s.Name, Color: s.Color}
	return nil
}

// Remove 删除时间格分配，不存在时不报错；返回是否发生了删除
func (t *Table) Remove(k weekgrid.SlotKey) (bool, error) {
	if !k.Valid() {
		return false, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, k.String())
	}
	if _, ok := t.slots[k]; !ok {
		return false, nil
	}
	delete(t.slots, k)
	for i, o := range t.order {
		if o == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Move 将 from 的分配移到 to（to 原有分配被丢弃）。
// from == to 或 from 为空时不做任何修改；返回是否发生了移动。
func (t *Table) Move(from, to weekgrid.SlotKey) (bool, error) {
	if !from.Valid() {
		return false, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, from.String())
	}
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, to.String())
	}
	if from == to {
		return false, nil
	}
	s, ok := t.slots[from]
	if !ok {
		return false, nil
	}
	if err := t.Place(to, s); err != nil {
		return false, err
	}
	return t.Remove(from)
}

// Clear 清空全部分配
func (t *Table) Clear() {
	t.order = nil
	t.slots = make(map[weekgrid.SlotKey]Snapshot)
}

// Get 读取时间格分配
func (t *Table) Get(k weekgrid.SlotKey) (Snapshot, bool) {
	s, ok := t.slots[k]
	return s, ok
}

// Len 已占用格数
func (t *Table) Len() int { return len(t.order) }

// Entries 按插入顺序返回全部分配
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Key: k, Activity: t.slots[k]})
	}
	return out
}

// MarshalJSON 序列化为按插入顺序排列的 {"Monday-9 AM": {...}} 对象
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key.String())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Activity)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 按对象中出现的顺序恢复分配表
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = *NewTable()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("分配表格式无效: 期望对象")
	}

	out := NewTable()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		raw, _ := tok.(string)
		k, err := weekgrid.ParseSlotKey(raw)
		if err != nil {
			return err
		}
		var s Snapshot
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("解析时间格 %q 失败: %w", raw, err)
		}
		if err := out.Place(k, s); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = *out
	return nil
}
