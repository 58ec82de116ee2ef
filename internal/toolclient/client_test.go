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

package toolclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/inventory"
	"retail-agent/internal/tool"
	"retail-agent/internal/tool/builtin"
	"retail-agent/internal/tool/registry"
	"retail-agent/internal/toolclient"
)

type panicTool struct{}

func (panicTool) Name() string        { return "explode" }
func (panicTool) Description() string { return "panics" }
func (panicTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }
func (panicTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	panic("boom")
}

type failingTool struct{}

func (failingTool) Name() string        { return "broken" }
func (failingTool) Description() string { return "infra failure" }
func (failingTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }
func (failingTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	return tool.ToolResult{}, errors.New("database unavailable")
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	store := inventory.NewMemoryStore()
	require.NoError(t, inventory.SeedDemo(context.Background(), store))
	reg := registry.New()
	builtin.RegisterInventory(reg, inventory.NewService(store, nil))
	reg.Register(panicTool{})
	reg.Register(failingTool{})
	return reg
}

func TestLocalClient_CallSuccess(t *testing.T) {
	ctx := context.Background()
	c := toolclient.NewLocalClient(newRegistry(t), toolclient.NewRateLimiter(nil, &toolclient.LimitConfig{QPS: 100, MaxConcurrent: 2}))
	defer c.Close()

	res := c.Call(ctx, "get_stock_level_for_product", map[string]any{"sku": "SKU001"})
	require.False(t, res.IsError, res.Error)
	m, ok := res.Value.(map[string]any)
	require.True(t, ok, "value should decode as JSON object, got %T", res.Value)
	assert.Equal(t, "SKU001", m["sku"])
	assert.Equal(t, json.Number("12"), m["stock_on_hand"])
	assert.Contains(t, res.String(), `"stock_on_hand":12`)
}

func TestLocalClient_ErrorsAreResults(t *testing.T) {
	ctx := context.Background()
	c := toolclient.NewLocalClient(newRegistry(t), nil)

	unknown := c.Call(ctx, "does_not_exist", nil)
	assert.True(t, unknown.IsError)
	assert.Contains(t, unknown.Error, "unknown tool")

	badArgs := c.Call(ctx, "order_product", map[string]any{"sku": "SKU001"})
	assert.True(t, badArgs.IsError)
	assert.Contains(t, badArgs.Error, "quantity")

	notFound := c.Call(ctx, "order_product", map[string]any{"sku": "NOPE", "quantity": 5})
	assert.True(t, notFound.IsError)
	assert.Contains(t, notFound.String(), "error: not found")

	p := c.Call(ctx, "explode", nil)
	assert.True(t, p.IsError)
	assert.Contains(t, p.Error, "panicked")

	infra := c.Call(ctx, "broken", nil)
	assert.True(t, infra.IsError)
	assert.Equal(t, "database unavailable", infra.Error)

	require.NoError(t, c.Close())
	closed := c.Call(ctx, "get_stock_levels", nil)
	assert.True(t, closed.IsError)
	_, err := c.ListTools(ctx)
	assert.Error(t, err)
}

func TestLocalClient_ListTools(t *testing.T) {
	c, err := toolclient.LocalOpener{Registry: newRegistry(t)}.Open(context.Background())
	require.NoError(t, err)
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(tools))
	for _, ti := range tools {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "get_products_soon_out_of_stock")
	assert.Contains(t, names, "order_products")
	assert.IsIncreasing(t, names)

	_, err = toolclient.LocalOpener{}.Open(context.Background())
	assert.Error(t, err)
}

func TestDecodeResponse(t *testing.T) {
	r := toolclient.DecodeResponse(toolclient.CallResponse{Content: []toolclient.ContentBlock{{Type: "text", Text: "[1, 2]"}}})
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, r.Value)

	plain := toolclient.DecodeResponse(toolclient.CallResponse{Content: []toolclient.ContentBlock{{Type: "text", Text: "ordered 5 units"}}})
	assert.Equal(t, "ordered 5 units", plain.Value)

	errRes := toolclient.DecodeResponse(toolclient.CallResponse{IsError: true, Content: []toolclient.ContentBlock{{Type: "text", Text: "bad sku"}}})
	assert.True(t, errRes.IsError)
	assert.Equal(t, "error: bad sku", errRes.String())
}

func TestHTTPClient(t *testing.T) {
	reg := newRegistry(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tools":
			_ = json.NewEncoder(w).Encode(toolclient.ListResponse{Tools: toolclient.Infos(reg)})
		case r.Method == http.MethodPost && r.URL.Path == "/api/tools/call":
			var req toolclient.CallRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			tl, ok := reg.Get(req.Name)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"unknown tool"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(toolclient.ExecuteRaw(r.Context(), tl, req.Arguments))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := toolclient.HTTPOpener{BaseURL: srv.URL, Timeout: 5 * time.Second}.Open(context.Background())
	require.NoError(t, err)
	defer c.Close()

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tools)

	res := c.Call(context.Background(), "order_product", map[string]any{"sku": "SKU004", "quantity": 295})
	require.False(t, res.IsError, res.Error)
	m := res.Value.(map[string]any)
	assert.Equal(t, "pending", m["status"])

	missing := c.Call(context.Background(), "nope", nil)
	assert.True(t, missing.IsError)
	assert.Contains(t, missing.Error, "status 404")

	_, err = toolclient.HTTPOpener{}.Open(context.Background())
	assert.Error(t, err)
}

func TestHTTPClient_TransportError(t *testing.T) {
	c, err := toolclient.NewHTTPClient("http://127.0.0.1:1", time.Second, "")
	require.NoError(t, err)
	res := c.Call(context.Background(), "get_stock_levels", nil)
	assert.True(t, res.IsError)
	_, err = c.ListTools(context.Background())
	assert.Error(t, err)
}
