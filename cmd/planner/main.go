package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"weekly-planner/config"
	"weekly-planner/internal/client"
	"weekly-planner/internal/planner"
	"weekly-planner/pkg/localstore"
	applogger "weekly-planner/pkg/logger"
)

// CLI planner 命令行入口
type CLI struct {
	Config  string `short:"c" help:"配置文件路径（默认查找 ./config/config.yaml）" type:"path"`
	Verbose bool   `short:"v" help:"输出调试日志"`
	Offline bool   `help:"只读写本地缓存，不连接远端"`

	Activities     ActivitiesCmd     `cmd:"" help:"列出活动库"`
	CreateActivity CreateActivityCmd `cmd:"" help:"新建活动"`
	Place          PlaceCmd          `cmd:"" help:"把活动放到某个时间格（覆盖已有内容）"`
	Remove         RemoveCmd         `cmd:"" help:"清空某个时间格"`
	Move           MoveCmd           `cmd:"" help:"把时间格内容移动到另一个时间格"`
	Clear          ClearCmd          `cmd:"" help:"清空整周计划（保留活动库）"`
	Show           ShowCmd           `cmd:"" help:"以表格显示整周计划"`
	Stats          StatsCmd          `cmd:"" help:"显示时间分布统计"`
	Watch          WatchCmd          `cmd:"" help:"定期拉取远端周计划并输出统计"`
}

// app 命令执行期共享的运行时
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *localstore.Store
	planner *planner.Planner
	out     io.Writer
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("planner"),
		kong.Description("每周计划表：活动库、时间格分配与时间分布统计"),
		kong.UsageOnError(),
	)

	a, err := newApp(context.Background(), &cli, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}

	runErr := kctx.Run(a)
	if err := a.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "关闭失败: %v\n", err)
	}
	kctx.FatalIfErrorf(runErr)
}

func newApp(ctx context.Context, cli *CLI, out io.Writer) (*app, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if cli.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := applogger.NewLogger(&logCfg, zap.String("component", "planner"))
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(cfg.Planner.CachePath)
	if err != nil {
		return nil, err
	}

	var remote planner.RemoteStore
	if !cli.Offline && cfg.Planner.RemoteURL != "" {
		c, err := client.New(cfg.Planner.RemoteURL, cfg.Planner.RemoteTimeout, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		remote = c
	}

	syncer := planner.NewSynchronizer(store, remote, logger, planner.SyncOptions{
		Title:         cfg.Planner.Title,
		RemoteTimeout: cfg.Planner.RemoteTimeout,
	})
	p, err := planner.New(ctx, syncer, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: store, planner: p, out: out}, nil
}

// Close 等待远端同步落地（最多 RemoteTimeout + 5s），再关闭本地缓存
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Planner.RemoteTimeout+5*time.Second)
	defer cancel()

	err := a.planner.Close(ctx)
	if err != nil {
		a.logger.Warn("远端同步未在退出前完成", zap.Error(err))
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.logger.Sync()
	return err
}
