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
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient 通过 HTTP 访问独立部署的工具服务（GET /api/tools、POST /api/tools/call）
type HTTPClient struct {
	baseURL string
	client  *resty.Client
	closed  atomic.Bool
}

// HTTPOpener 每次 Open 建立新的 HTTPClient
type HTTPOpener struct {
	BaseURL string
	Timeout time.Duration
	Token   string // 非空时作为 Bearer token
}

// Open 实现 Opener
func (o HTTPOpener) Open(ctx context.Context) (Client, error) {
	c, err := NewHTTPClient(o.BaseURL, o.Timeout, o.Token)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewHTTPClient 创建 HTTP 工具客户端
func NewHTTPClient(baseURL string, timeout time.Duration, token string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tool server base_url is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: rc}, nil
}

// ListTools 实现 Client
func (c *HTTPClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("tool client closed")
	}
	var out ListResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get(c.baseURL + "/api/tools")
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list tools: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Tools, nil
}

// Call 实现 Client；传输错误与非 200 响应转为错误结果
func (c *HTTPClient) Call(ctx context.Context, name string, args map[string]any) Result {
	if c.closed.Load() {
		return ErrorResult("tool client closed")
	}
	if args == nil {
		args = map[string]any{}
	}
	var out CallResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(CallRequest{Name: name, Arguments: args}).
		SetResult(&out).
		Post(c.baseURL + "/api/tools/call")
	if err != nil {
		return ErrorResult("call %s: %v", name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return ErrorResult("call %s: status %d: %s", name, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return DecodeResponse(out)
}

// Close 实现 Client
func (c *HTTPClient) Close() error {
	c.closed.Store(true)
	return nil
}
