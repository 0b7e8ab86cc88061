package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coffee-machine-demo/internal/api"
	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"
	"coffee-machine-demo/internal/web"

	"github.com/pkg/errors"
)

// APIError 表示服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "coffee machine: " + http.StatusText(e.StatusCode) + ": " + e.Message
}

// Client 通过 HTTP 调用咖啡机守护进程
type Client struct {
	Endpoint string       // 服务地址 (e.g., http://localhost:8080)
	HTTP     *http.Client // HTTP 客户端
	logger   *slog.Logger
}

// New 创建一个新的客户端实例
func New(endpoint string, logger *slog.Logger) *Client {
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With("remote", endpoint),
	}
}

// Plug 接通咖啡机电源
func (c *Client) Plug(ctx context.Context) (machine.Snapshot, error) {
	var snapshot machine.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/plug", nil, &snapshot)
	return snapshot, err
}

// AddWater 向水箱加水
func (c *Client) AddWater(ctx context.Context, volume float64) (machine.Snapshot, error) {
	var snapshot machine.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/water", api.VolumeRequest{Volume: volume}, &snapshot)
	return snapshot, err
}

// AddBeans 向豆仓加豆
func (c *Client) AddBeans(ctx context.Context, volume float64, coffeeType cupboard.CoffeeType) (machine.Snapshot, error) {
	var snapshot machine.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/beans", api.BeansRequest{Volume: volume, CoffeeType: coffeeType}, &snapshot)
	return snapshot, err
}

// SubmitOrder 提交一份订单，返回服务端分配的订单 ID
func (c *Client) SubmitOrder(ctx context.Context, coffeeType cupboard.CoffeeType, container types.ContainerSpec, priority int) (string, error) {
	var accepted api.OrderAccepted
	req := api.OrderRequest{CoffeeType: coffeeType, Container: container, Priority: priority}
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &accepted); err != nil {
		return "", err
	}
	return accepted.ID, nil
}

// CheckFailure 触发一次故障抽样
func (c *Client) CheckFailure(ctx context.Context) (api.FailureCheckResponse, error) {
	var resp api.FailureCheckResponse
	err := c.do(ctx, http.MethodPost, "/api/failure-check", nil, &resp)
	return resp, err
}

// State 读取机器和订单的当前状态
func (c *Client) State(ctx context.Context) (web.GlobalState, error) {
	var state web.GlobalState
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &state)
	return state, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	logger := c.logger.With("path", path)
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		logger = logger.With("trace_id", traceID)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	// 将 Trace ID 放入 HTTP Header 中，实现跨进程追踪
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		httpReq.Header.Set(util.TraceHeader, traceID)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		logger.Error("远程调用失败", "error", err)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		logger.Warn("服务端返回错误", "status", resp.StatusCode, "error", apiErr.Error)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
