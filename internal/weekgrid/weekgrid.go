package weekgrid

import (
	"fmt"
	"strings"

	apperrors "weekly-planner/pkg/errors"
)

// Day 星期标签（固定枚举，不代表真实日期）
type Day string

// Hour 小时标签（固定枚举，不代表真实时间）
type Hour string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Days 按网格列顺序排列的 7 天
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Hours 按网格行顺序排列的 9 个小时
var Hours = []Hour{"9 AM", "10 AM", "11 AM", "12 PM", "1 PM", "2 PM", "3 PM", "4 PM", "5 PM"}

// SlotCount 网格总格数
const SlotCount = 7 * 9

var (
	dayIndex  = make(map[Day]int, len(Days))
	hourIndex = make(map[Hour]int, len(Hours))
)

func init() {
	for i, d := range Days {
		dayIndex[d] = i
	}
	for i, h := range Hours {
		hourIndex[h] = i
	}
}

// SlotKey 网格单元的唯一标识 (day, hour)
type SlotKey struct {
	Day  Day
	Hour Hour
}

// NewSlotKey 校验并构造 SlotKey，超出枚举返回 ErrInvalidSlot
func NewSlotKey(day, hour string) (SlotKey, error) {
	k := SlotKey{Day: Day(day), Hour: Hour(hour)}
	if !k.Valid() {
		return SlotKey{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, day+"-"+hour)
	}
	return k, nil
}

// MustSlotKey 用于常量场景（测试、默认数据），非法输入直接 panic
func MustSlotKey(day Day, hour Hour) SlotKey {
	k, err := NewSlotKey(string(day), string(hour))
	if err != nil {
		panic(err)
	}
	return k
}

// ParseSlotKey 解析 "<Day>-<Hour>" 格式，例如 "Monday-9 AM"
func ParseSlotKey(s string) (SlotKey, error) {
	day, hour, ok := strings.Cut(s, "-")
	if !ok {
		return SlotKey{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, s)
	}
	return NewSlotKey(day, hour)
}

// Valid 判断是否落在固定枚举内
func (k SlotKey) Valid() bool {
	_, okDay := dayIndex[k.Day]
	_, okHour := hourIndex[k.Hour]
	return okDay && okHour
}

// String 序列化为 "<Day>-<Hour>"
func (k SlotKey) String() string {
	return string(k.Day) + "-" + string(k.Hour)
}

// Index 返回网格位置（按天优先），非法 key 返回 -1
func (k SlotKey) Index() int {
	d, okDay := dayIndex[k.Day]
	h, okHour := hourIndex[k.Hour]
	if !okDay || !okHour {
		return -1
	}
	return d*len(Hours) + h
}

// DayIndex 返回星期在枚举中的下标
func DayIndex(d Day) (int, bool) {
	i, ok := dayIndex[d]
	return i, ok
}

// HourIndex 返回小时在枚举中的下标
func HourIndex(h Hour) (int, bool) {
	i, ok := hourIndex[h]
	return i, ok
}

// All 按网格顺序返回全部 63 个 SlotKey
func All() []SlotKey {
	keys := make([]SlotKey, 0, SlotCount)
	for _, d := range Days {
		for _, h := range Hours {
			keys = append(keys, SlotKey{Day: d, Hour: h})
		}
	}
	return keys
}
