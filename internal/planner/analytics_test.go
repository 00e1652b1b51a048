package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"weekly-planner/internal/weekgrid"
)

func TestComputeDistribution_Empty(t *testing.T) {
	dist := ComputeDistribution(NewTable())
	require.Equal(t, 0, dist.TotalSlots)
	require.NotNil(t, dist.PerActivity)
	require.Empty(t, dist.PerActivity)
}

func TestComputeDistribution_RoundedPercentages(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Place(mon9, meet))
	require.NoError(t, tbl.Place(tue9, meet))
	require.NoError(t, tbl.Place(wed9, work))

	dist := ComputeDistribution(tbl)
	require.Equal(t, 3, dist.TotalSlots)
	require.Equal(t, []ActivityShare{
		{Name: "Meeting", Count: 2, Percentage: 67, Color: "#3B82F6"},
		{Name: "Work", Count: 1, Percentage: 33, Color: "#10B981"},
	}, dist.PerActivity)
}

func TestComputeDistribution_GroupsByNameFirstSeenColor(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Place(fri5, Snapshot{Name: "Work", Color: "#000000"}))
	require.NoError(t, tbl.Place(mon9, Snapshot{Name: "Work", Color: "#FFFFFF"}))
	require.NoError(t, tbl.Place(tue9, Snapshot{Name: "Deep Work", Color: "#000000"}))

	dist := ComputeDistribution(tbl)
	require.Len(t, dist.PerActivity, 2)
	require.Equal(t, "Work", dist.PerActivity[0].Name)
	require.Equal(t, 2, dist.PerActivity[0].Count)
	require.Equal(t, "#000000", dist.PerActivity[0].Color)
	require.Equal(t, "Deep Work", dist.PerActivity[1].Name)
}

func TestComputeDistribution_Pure(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Place(mon9, meet))
	require.NoError(t, tbl.Place(tue9, study))

	first := ComputeDistribution(tbl)
	second := ComputeDistribution(tbl)
	require.Equal(t, first, second)
	require.Equal(t, 2, tbl.Len())
}

func TestComputeDistribution_PercentageFormula(t *testing.T) {
	tbl := NewTable()
	names := []string{"A", "A", "A", "B", "B", "C", "D"}
	for i, k := range weekgrid.All()[:len(names)] {
		require.NoError(t, tbl.Place(k, Snapshot{Name: names[i], Color: "#111111"}))
	}

	dist := ComputeDistribution(tbl)
	require.Equal(t, 7, dist.TotalSlots)
	want := map[string]int{"A": 43, "B": 29, "C": 14, "D": 14}
	for _, share := range dist.PerActivity {
		require.Equal(t, want[share.Name], share.Percentage, share.Name)
	}
}

func TestComputeDistribution_PercentagesRoundedIndependently(t *testing.T) {
	tbl := NewTable()
	names := []string{"A", "A", "A", "B", "B", "B", "C", "C"}
	for i, k := range weekgrid.All()[:len(names)] {
		require.NoError(t, tbl.Place(k, Snapshot{Name: names[i], Color: "#111111"}))
	}

	dist := ComputeDistribution(tbl)
	sum := 0
	for _, share := range dist.PerActivity {
		sum += share.Percentage
	}
	// 37.5、37.5、25 各自取整，合计可能超过 100
	require.Equal(t, []int{38, 38, 25}, []int{
		dist.PerActivity[0].Percentage,
		dist.PerActivity[1].Percentage,
		dist.PerActivity[2].Percentage,
	})
	require.Equal(t, 101, sum)
}
