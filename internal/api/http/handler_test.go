package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/agent"
	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/history"
	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/api/http/middleware"
	"retail-agent/internal/inventory"
	"retail-agent/internal/tool/builtin"
	"retail-agent/internal/tool/registry"
	"retail-agent/internal/toolclient"
	"retail-agent/pkg/log"
)

type fakeAgent struct {
	mu    sync.Mutex
	tasks []string
	turns [][]conversation.Turn
	err   error
}

func (f *fakeAgent) Run(ctx context.Context, sessionID, task string, turns []conversation.Turn) (*agent.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	f.turns = append(f.turns, turns)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.RunResult{
		SessionID:  "s-1",
		Answer:     "SKU004 is low. TASK_COMPLETE",
		Status:     agent.Status("completed"),
		Iterations: 2,
		Duration:   15 * time.Millisecond,
	}, nil
}

type fakeSweeper struct {
	actions []replenish.Action
	err     error
}

func (f *fakeSweeper) Run(ctx context.Context) ([]replenish.Action, error) {
	return f.actions, f.err
}

type fixture struct {
	h       *server.Hertz
	svc     *inventory.Service
	agent   *fakeAgent
	convs   *conversation.MemoryStore
	history *history.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inventory.NewMemoryStore()
	require.NoError(t, inventory.SeedDemo(context.Background(), store))
	svc := inventory.NewService(store, nil)
	reg := registry.New()
	builtin.RegisterInventory(reg, svc)

	f := &fixture{
		svc:     svc,
		agent:   &fakeAgent{},
		convs:   conversation.NewMemoryStore(),
		history: history.NewMemorySink(10),
	}
	handler := NewHandler(svc, nil)
	handler.SetTools(reg)
	handler.SetAgent(f.agent)
	handler.SetConversations(f.convs)
	handler.SetHistory(f.history)
	handler.SetSweeper(&fakeSweeper{actions: []replenish.Action{
		{Type: replenish.ActionStockOrder, SKU: "SKU004", OrderedQuantity: 298, Success: true},
		{Type: replenish.ActionStatusCheck, SKU: "SKU001"},
	}})

	f.h = server.Default(server.WithHostPorts(":0"))
	NewRouter(handler).Register(f.h)
	return f
}

func (f *fixture) do(method, path string, body any) *ut.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	return ut.PerformRequest(f.h.Engine, method, path, &ut.Body{Body: bytes.NewReader(b), Len: len(b)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out), string(w.Result().Body()))
	return out
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/api/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["agent"])
	assert.Equal(t, "*", string(w.Result().Header.Peek("Access-Control-Allow-Origin")))
}

func TestAgentQuery(t *testing.T) {
	f := newFixture(t)
	w := f.do("POST", "/api/agent/query", AgentQueryRequest{Task: "  check SKU004  "})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, "s-1", body["session_id"])
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 2, body["iterations"])
	assert.Equal(t, []string{"check SKU004"}, f.agent.tasks)
}

func TestAgentQuery_Validation(t *testing.T) {
	f := newFixture(t)
	w := f.do("POST", "/api/agent/query", AgentQueryRequest{Task: "   "})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
	assert.Empty(t, f.agent.tasks)
}

func TestAgentQuery_AgentFailure(t *testing.T) {
	f := newFixture(t)
	f.agent.err = errors.New("tool server unreachable")
	w := f.do("POST", "/api/agent/query", AgentQueryRequest{Task: "hi"})
	assert.Equal(t, consts.StatusBadGateway, w.Result().StatusCode())
	assert.Contains(t, decode(t, w)["error"], "unreachable")
}

func TestAgentQuery_ConversationTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.do("POST", "/api/agent/query", AgentQueryRequest{Task: "first", ConversationID: "c1"})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	w = f.do("POST", "/api/agent/query", AgentQueryRequest{Task: "second", ConversationID: "c1"})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())

	require.Len(t, f.agent.turns, 2)
	assert.Empty(t, f.agent.turns[0])
	require.Len(t, f.agent.turns[1], 1)
	assert.Equal(t, "first", f.agent.turns[1][0].Query)

	turns, err := f.convs.List(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "SKU004 is low.", turns[0].Response)

	w = f.do("GET", "/api/agent/conversations/c1", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.Len(t, decode(t, w)["turns"], 2)
}

func TestNewConversation(t *testing.T) {
	f := newFixture(t)
	w := f.do("POST", "/api/agent/conversations", nil)
	assert.Equal(t, consts.StatusCreated, w.Result().StatusCode())
	assert.True(t, strings.HasPrefix(decode(t, w)["conversation_id"].(string), "conv-"))
}

func TestReplenish(t *testing.T) {
	f := newFixture(t)
	w := f.do("POST", "/api/agent/replenish", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	body := decode(t, w)
	assert.EqualValues(t, 1, body["orders_placed"])
	assert.Len(t, body["actions"], 2)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.history.Write(ctx, history.Record{
			ID: fmt.Sprintf("r%d", i), SessionID: "s", Type: history.TypeAnswer,
			Response: fmt.Sprintf("answer %d", i), Timestamp: time.Now(),
		}))
	}
	w := f.do("GET", "/api/agent/history?limit=2", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	first := body["records"].([]any)[0].(map[string]any)
	assert.Equal(t, "answer 2", first["response"])
}

func TestUnconfiguredFeatures(t *testing.T) {
	store := inventory.NewMemoryStore()
	h := server.Default(server.WithHostPorts(":0"))
	NewRouter(NewHandler(inventory.NewService(store, nil), log.Nop())).Register(h)

	for _, tc := range []struct{ method, path string }{
		{"POST", "/api/agent/replenish"},
		{"GET", "/api/agent/history"},
		{"GET", "/api/tools"},
	} {
		w := ut.PerformRequest(h.Engine, tc.method, tc.path, nil)
		assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode(), tc.path)
	}
}

func TestTools(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/api/tools", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	var list toolclient.ListResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &list))
	names := make([]string, 0, len(list.Tools))
	for _, ti := range list.Tools {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "get_stock_level_for_product")
	assert.Contains(t, names, "order_product")

	w = f.do("POST", "/api/tools/call", toolclient.CallRequest{
		Name:      "get_stock_level_for_product",
		Arguments: map[string]any{"sku": "SKU004"},
	})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	var resp toolclient.CallResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.False(t, resp.IsError)
	require.Len(t, resp.Content, 1)
	assert.Contains(t, resp.Content[0].Text, `"stock_on_hand":5`)
}

func TestCallTool_Errors(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/api/tools/call", toolclient.CallRequest{Name: "nope"})
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())

	w = f.do("POST", "/api/tools/call", toolclient.CallRequest{})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	// 工具自身失败仍是 200，通过 is_error 表达
	w = f.do("POST", "/api/tools/call", toolclient.CallRequest{
		Name:      "get_stock_level_for_product",
		Arguments: map[string]any{"sku": "SKU999"},
	})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	var resp toolclient.CallResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.True(t, resp.IsError)
}

func TestProductsAndStock(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/api/products", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.EqualValues(t, len(inventory.DemoCatalog), decode(t, w)["total"])

	w = f.do("GET", "/api/products/SKU404", nil)
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())

	w = f.do("POST", "/api/products", inventory.Product{SKU: "SKU100", Name: "Oat Milk", Price: 2.5})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	w = f.do("GET", "/api/stock/SKU100", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.EqualValues(t, 0, decode(t, w)["stock_on_hand"])

	w = f.do("POST", "/api/products", inventory.Product{SKU: "SKU101"})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	w = f.do("PUT", "/api/stock/SKU100", UpdateStockRequest{StockOnHand: 40})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	w = f.do("PUT", "/api/stock/SKU100", UpdateStockRequest{StockOnHand: -1})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	w = f.do("GET", "/api/stock", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.EqualValues(t, len(inventory.DemoCatalog)+1, decode(t, w)["total"])
}

func TestOrdersLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/api/orders", PlaceOrderRequest{SKU: "SKU004", Quantity: 100})
	require.Equal(t, consts.StatusCreated, w.Result().StatusCode())
	id := decode(t, w)["order_id"].(string)

	w = f.do("GET", "/api/stock/SKU004?include_pending=true", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	snap := decode(t, w)
	assert.EqualValues(t, 100, snap["pending_quantity"])
	assert.EqualValues(t, -95, snap["virtual_stock"])

	w = f.do("GET", "/api/orders?status=pending", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = f.do("GET", "/api/orders?status=lost", nil)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	w = f.do("PUT", "/api/orders/"+id+"/status", UpdateOrderStatusRequest{Status: "COMPLETED"})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = f.do("PUT", "/api/orders/"+id+"/status", UpdateOrderStatusRequest{Status: "cancelled"})
	assert.Equal(t, consts.StatusConflict, w.Result().StatusCode())

	w = f.do("GET", "/api/orders/"+id, nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	w = f.do("GET", "/api/orders/ORD-missing", nil)
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())

	w = f.do("GET", "/api/stock/SKU004", nil)
	assert.EqualValues(t, 105, decode(t, w)["stock_on_hand"])
}

func TestSales(t *testing.T) {
	f := newFixture(t)

	w := f.do("POST", "/api/sales", RecordSaleRequest{SKU: "SKU004", Quantity: 5})
	require.Equal(t, consts.StatusCreated, w.Result().StatusCode())
	w = f.do("POST", "/api/sales", RecordSaleRequest{SKU: "SKU004", Quantity: 0})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	w = f.do("GET", "/api/sales?sku=SKU004&days=1", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = f.do("GET", "/api/sales/SKU004/daily?days=3", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	daily := decode(t, w)["daily"].([]any)
	require.Len(t, daily, 3)
	assert.EqualValues(t, 5, daily[2].(map[string]any)["quantity"])

	w = f.do("GET", "/api/inventory/soon-out-of-stock?days=7", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	items := decode(t, w)["products"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "SKU004", items[0].(map[string]any)["sku"])
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do("POST", "/api/tools/call", toolclient.CallRequest{
		Name:      "get_stock_level_for_product",
		Arguments: map[string]any{"sku": "SKU001"},
	})
	w := f.do("GET", "/metrics", nil)
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Header.ContentType()), "text/plain")
	assert.Contains(t, string(w.Result().Body()), "tool_call_total")
}

func TestJWTAuthAndAudit(t *testing.T) {
	store := inventory.NewMemoryStore()
	require.NoError(t, inventory.SeedDemo(context.Background(), store))
	jwtMw, err := middleware.NewJWTAuth([]byte("test-key"), time.Hour, time.Hour, map[string]string{"ops": "s3cret"})
	require.NoError(t, err)

	var auditBuf bytes.Buffer
	r := NewRouter(NewHandler(inventory.NewService(store, nil), nil))
	r.SetJWT(jwtMw)
	r.SetAudit(middleware.NewAuditMiddleware(middleware.NewLogAuditStore(log.NewWithWriter(&log.Config{Format: "json"}, &auditBuf))))
	h := server.Default(server.WithHostPorts(":0"))
	r.Register(h)

	post := func(path, token string, body any) *ut.ResponseRecorder {
		b, _ := json.Marshal(body)
		headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
		if token != "" {
			headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
		}
		return ut.PerformRequest(h.Engine, "POST", path, &ut.Body{Body: bytes.NewReader(b), Len: len(b)}, headers...)
	}

	w := ut.PerformRequest(h.Engine, "GET", "/api/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())

	w = post("/api/sales", "", RecordSaleRequest{SKU: "SKU001", Quantity: 1})
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = post("/api/auth/login", "", map[string]string{"username": "ops", "password": "wrong"})
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = post("/api/auth/login", "", map[string]string{"username": "ops", "password": "s3cret"})
	require.Equal(t, consts.StatusOK, w.Result().StatusCode())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &login))
	require.NotEmpty(t, login.Token)

	w = post("/api/sales", login.Token, RecordSaleRequest{SKU: "SKU001", Quantity: 1})
	require.Equal(t, consts.StatusCreated, w.Result().StatusCode())
	assert.Contains(t, auditBuf.String(), `"action":"record_sale"`)
	assert.Contains(t, auditBuf.String(), `"user":"ops"`)
}
