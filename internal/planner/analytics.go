package planner

import "math"

// ActivityShare 单个活动的占比统计
type ActivityShare struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// Distribution 时间格分布统计
type Distribution struct {
	TotalSlots  int             `json:"totalSlots"`
	PerActivity []ActivityShare `json:"perActivity"`
}

// ComputeDistribution 按活动名称分组统计已占用格数与百分比。
// 分组按名称而非活动库 ID；颜色取该名称首次出现的快照；
// 输出顺序为遍历分配表时的首次出现顺序。纯函数，无副作用。
func ComputeDistribution(t *Table) Distribution {
	entries := t.Entries()
	dist := Distribution{
		TotalSlots:  len(entries),
		PerActivity: make([]ActivityShare, 0),
	}

	index := make(map[string]int)
	for _, e := range entries {
		i, ok := index[e.Activity.Name]
		if !ok {
			i = len(dist.PerActivity)
			index[e.Activity.Name] = i
			dist.PerActivity = append(dist.PerActivity, ActivityShare{
				Name:  e.Activity.Name,
				Color: e.Activity.Color,
			})
		}
		dist.PerActivity[i].Count++
	}

	for i := range dist.PerActivity {
		dist.PerActivity[i].Percentage = percentage(dist.PerActivity[i].Count, dist.TotalSlots)
	}
	return dist
}

func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
