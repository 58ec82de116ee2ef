// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package toolclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"retail-agent/internal/tool"
	"retail-agent/internal/tool/registry"
	"retail-agent/pkg/metrics"
	"retail-agent/pkg/tracing"
)

// LocalClient 进程内调用 Registry 中的工具
type LocalClient struct {
	reg     *registry.Registry
	limiter *RateLimiter
	closed  atomic.Bool
}

// NewLocalClient limiter 可为 nil
func NewLocalClient(reg *registry.Registry, limiter *RateLimiter) *LocalClient {
	return &LocalClient{reg: reg, limiter: limiter}
}

// LocalOpener 每次 Open 返回新的 LocalClient，共享 Registry 与限流器
type LocalOpener struct {
	Registry *registry.Registry
	Limiter  *RateLimiter
}

// Open 实现 Opener
func (o LocalOpener) Open(ctx context.Context) (Client, error) {
	if o.Registry == nil {
		return nil, fmt.Errorf("tool registry not configured")
	}
	return NewLocalClient(o.Registry, o.Limiter), nil
}

// ListTools 实现 Client
func (c *LocalClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("tool client closed")
	}
	return Infos(c.reg), nil
}

// Infos Registry 中全部工具的描述
func Infos(reg *registry.Registry) []ToolInfo {
	ds := reg.Descriptors()
	out := make([]ToolInfo, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToolInfo{Name: d.Name, Description: d.Description, Parameters: schemaMap(d.Parameters)})
	}
	return out
}

func schemaMap(s tool.Schema) map[string]any {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// Call 实现 Client
func (c *LocalClient) Call(ctx context.Context, name string, args map[string]any) Result {
	if c.closed.Load() {
		return ErrorResult("tool client closed")
	}
	t, ok := c.reg.Get(name)
	if !ok {
		metrics.ToolCallTotal.WithLabelValues(name, "unknown").Inc()
		return ErrorResult("unknown tool: %s", name)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, name); err != nil {
			metrics.ToolCallTotal.WithLabelValues(name, "error").Inc()
			return ErrorResult("tool %s rate limited: %v", name, err)
		}
		defer c.limiter.Release(name)
	}
	return Execute(ctx, t, args)
}

// Execute 执行单个工具并转换为 Result；HTTP 工具服务端与本地客户端共用
func Execute(ctx context.Context, t tool.Tool, args map[string]any) Result {
	return DecodeResponse(ExecuteRaw(ctx, t, args))
}

// ExecuteRaw 执行单个工具并编码为响应体，带耗时指标、链路追踪与 panic 保护
func ExecuteRaw(ctx context.Context, t tool.Tool, args map[string]any) (resp CallResponse) {
	name := t.Name()
	ctx, span := tracing.StartToolSpan(ctx, name)
	start := time.Now()
	var execErr error
	defer func() {
		if r := recover(); r != nil {
			execErr = fmt.Errorf("tool %s panicked: %v", name, r)
			resp = EncodeResult(tool.ToolResult{}, execErr)
		}
		metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if resp.IsError {
			outcome = "error"
		}
		metrics.ToolCallTotal.WithLabelValues(name, outcome).Inc()
		tracing.EndWithError(span, execErr)
	}()
	if args == nil {
		args = map[string]any{}
	}
	res, err := t.Execute(ctx, args)
	execErr = err
	return EncodeResult(res, err)
}

// Close 实现 Client；关闭后的调用返回错误结果
func (c *LocalClient) Close() error {
	c.closed.Store(true)
	return nil
}
