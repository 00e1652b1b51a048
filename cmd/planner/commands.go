package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"weekly-planner/internal/planner"
	"weekly-planner/internal/weekgrid"
	apperrors "weekly-planner/pkg/errors"
)

// ActivitiesCmd 列出活动库
type ActivitiesCmd struct{}

func (c *ActivitiesCmd) Run(a *app) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, act := range a.planner.ListActivities() {
		fmt.Fprintf(w, "%d\t%s\t%s\n", act.ID, act.Name, act.Color)
	}
	return w.Flush()
}

// CreateActivityCmd 新建活动
type CreateActivityCmd struct {
	Name  string `arg:"" help:"活动名称"`
	Color string `help:"颜色（默认 #3B82F6）"`
}

func (c *CreateActivityCmd) Run(a *app) error {
	act, err := a.planner.CreateActivity(context.Background(), c.Name, c.Color)
	if err != nil && !errors.Is(err, apperrors.ErrPersistence) {
		return err
	}
	fmt.Fprintf(a.out, "已创建活动 #%d %s (%s)\n", act.ID, act.Name, act.Color)
	return err
}

// PlaceCmd 放置活动：--activity-id 取活动库快照，或直接给出 --name/--color
type PlaceCmd struct {
	Day        string `arg:"" help:"星期，如 Monday"`
	Hour       string `arg:"" help:"小时，如 \"9 AM\""`
	ActivityID int    `name:"activity-id" help:"活动库中的活动 ID" xor:"source"`
	Name       string `help:"活动名称（不在活动库中也可以）" xor:"source"`
	Color      string `help:"与 --name 搭配的颜色"`
}

func (c *PlaceCmd) Run(a *app) error {
	var snap planner.Snapshot
	switch {
	case c.ActivityID != 0:
		act, ok := a.planner.Activity(c.ActivityID)
		if !ok {
			return fmt.Errorf("%w: 活动 #%d 不存在", apperrors.ErrValidation, c.ActivityID)
		}
		snap = act.Snapshot()
	case c.Name != "":
		snap = planner.Snapshot{Name: c.Name, Color: c.Color}
	default:
		return fmt.Errorf("%w: 需要 --activity-id 或 --name", apperrors.ErrValidation)
	}

	err := a.planner.Drop(context.Background(), planner.Transfer{Source: planner.FromLibrary, Activity: snap}, c.Day, c.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s → %s\n", c.Day, c.Hour, snap.Name)
	return nil
}

// RemoveCmd 清空时间格
type RemoveCmd struct {
	Day  string `arg:""`
	Hour string `arg:""`
}

func (c *RemoveCmd) Run(a *app) error {
	return a.planner.RemoveActivity(context.Background(), c.Day, c.Hour)
}

// MoveCmd 移动时间格内容
type MoveCmd struct {
	FromDay  string `arg:""`
	FromHour string `arg:""`
	ToDay    string `arg:""`
	ToHour   string `arg:""`
}

func (c *MoveCmd) Run(a *app) error {
	origin, err := weekgrid.NewSlotKey(c.FromDay, c.FromHour)
	if err != nil {
		return err
	}
	snap, ok, err := a.planner.Get(c.FromDay, c.FromHour)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "%s 为空，无需移动\n", origin)
		return nil
	}

	t := planner.Transfer{Source: planner.FromSchedule, Activity: snap, Origin: &origin}
	return a.planner.Drop(context.Background(), t, c.ToDay, c.ToHour)
}

// ClearCmd 清空整周计划
type ClearCmd struct{}

func (c *ClearCmd) Run(a *app) error {
	return a.planner.ClearSchedule(context.Background())
}

// ShowCmd 以 小时 × 星期 表格显示整周计划
type ShowCmd struct{}

func (c *ShowCmd) Run(a *app) error {
	return renderGrid(a.out, a.planner)
}

func renderGrid(out io.Writer, p *planner.Planner) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "TIME")
	for _, d := range weekgrid.Days {
		fmt.Fprintf(w, "\t%s", d)
	}
	fmt.Fprintln(w)

	for _, h := range weekgrid.Hours {
		fmt.Fprint(w, h)
		for _, d := range weekgrid.Days {
			snap, ok, _ := p.Get(string(d), string(h))
			if !ok {
				fmt.Fprint(w, "\t-")
				continue
			}
			fmt.Fprintf(w, "\t%s", snap.Name)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// StatsCmd 时间分布统计
type StatsCmd struct{}

func (c *StatsCmd) Run(a *app) error {
	return renderStats(a.out, a.planner.ComputeDistribution())
}

func renderStats(out io.Writer, d planner.Distribution) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVITY\tSLOTS\tSHARE\tCOLOR")
	for _, s := range d.PerActivity {
		fmt.Fprintf(w, "%s\t%d\t%d%%\t%s\n", s.Name, s.Count, s.Percentage, s.Color)
	}
	fmt.Fprintf(w, "TOTAL\t%d\t\t\n", d.TotalSlots)
	return w.Flush()
}

// WatchCmd 定期拉取远端周计划，每次应用后输出统计
type WatchCmd struct {
	Interval time.Duration `help:"轮询间隔（默认取 planner.poll_interval）"`
}

func (c *WatchCmd) Run(a *app) error {
	interval := c.Interval
	if interval <= 0 {
		interval = a.cfg.Planner.PollInterval
	}

	r, err := planner.NewRefresher(a.planner, interval, a.logger, func(d planner.Distribution) {
		fmt.Fprintf(a.out, "[%s] 已同步远端周计划\n", time.Now().Format(time.TimeOnly))
		_ = renderStats(a.out, d)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Run(ctx)
}
