package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weekly-planner/internal/dto"
	apperrors "weekly-planner/pkg/errors"
	"weekly-planner/pkg/response"
)

// Client 远端周计划存储的 HTTP 客户端，实现 planner.RemoteStore
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New 创建客户端；baseURL 形如 http://localhost:5000/api
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("无效的远端地址 %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// SaveSchedule 保存一份完整周计划
// POST /schedules
func (c *Client) SaveSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	var out dto.ScheduleResponse
	if err := c.do(ctx, http.MethodPost, "/schedules", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSchedules 非模板周计划列表（按创建时间倒序）
// GET /schedules
func (c *Client) ListSchedules(ctx context.Context) (*dto.ScheduleListResponse, error) {
	var out dto.ScheduleListResponse
	if err := c.do(ctx, http.MethodGet, "/schedules", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestSchedule 最近保存的周计划；远端为空时返回 ErrNotFound
func (c *Client) LatestSchedule(ctx context.Context) (*dto.ScheduleResponse, error) {
	list, err := c.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if len(list.Schedules) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &list.Schedules[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	rid := uuid.NewString()
	req.Header.Set("X-Request-ID", rid)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("远端请求完成",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", rid),
		zap.Duration("latency", time.Since(start)),
	)

	var env response.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s %s: 解析响应失败 (HTTP %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: HTTP %d (code=%d): %s", method, path, resp.StatusCode, env.Code, env.Message)
	}

	if out == nil || !env.HasData() {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: 解析 data 失败: %w", method, path, err)
	}
	return nil
}
