package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("无配置文件时应使用默认值: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("期望默认端口 5000，实际=%d", cfg.Server.Port)
	}
	if cfg.Planner.PollInterval != 30*time.Second {
		t.Errorf("期望默认轮询间隔 30s，实际=%s", cfg.Planner.PollInterval)
	}
	if cfg.Redis.CacheTTL != 5*time.Minute {
		t.Errorf("期望默认缓存 TTL 5m，实际=%s", cfg.Redis.CacheTTL)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\nplanner:\n  title: Sprint Week\n  poll_interval: 10s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	t.Setenv("PLANNER_PLANNER_REMOTE_URL", "http://store:5000/api")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望端口 9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Planner.Title != "Sprint Week" {
		t.Errorf("期望标题 Sprint Week，实际=%s", cfg.Planner.Title)
	}
	if cfg.Planner.PollInterval != 10*time.Second {
		t.Errorf("期望轮询间隔 10s，实际=%s", cfg.Planner.PollInterval)
	}
	if cfg.Planner.RemoteURL != "http://store:5000/api" {
		t.Errorf("环境变量应覆盖默认值，实际=%s", cfg.Planner.RemoteURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 5000},
		Planner: PlannerConfig{CachePath: "x.db", PollInterval: time.Second, RemoteTimeout: time.Second},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("端口越界应报错")
	}
	cfg.Server.Port = 5000
	cfg.Planner.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("轮询间隔为 0 应报错")
	}
}
