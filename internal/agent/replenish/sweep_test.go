package replenish_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/agent/history"
	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/inventory"
	"retail-agent/internal/tool/builtin"
	"retail-agent/internal/tool/registry"
	"retail-agent/internal/toolclient"
	"retail-agent/pkg/metrics"
)

func seededService(t *testing.T) *inventory.Service {
	t.Helper()
	store := inventory.NewMemoryStore()
	require.NoError(t, inventory.SeedDemo(context.Background(), store))
	return inventory.NewService(store, nil)
}

func openerFor(svc *inventory.Service) toolclient.Opener {
	reg := registry.New()
	builtin.RegisterInventory(reg, svc)
	return toolclient.LocalOpener{Registry: reg}
}

func TestSweeper_OrdersAtRiskProducts(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)
	// SKU004 库存 5，近 3 天卖出 3 件后剩 2 件
	_, err := svc.RecordSale(ctx, "SKU004", 3, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.SweepOrderTotal.WithLabelValues("ordered"))
	mem := history.NewMemorySink(0)
	rec := history.NewRecorder(mem, nil)
	actions, err := replenish.NewSweeper(openerFor(svc), replenish.WithDays(3), replenish.WithRecorder(rec)).Run(ctx)
	require.NoError(t, err)
	rec.Wait()

	var order *replenish.Action
	for i := range actions {
		if actions[i].SKU == "SKU004" {
			order = &actions[i]
		}
	}
	require.NotNil(t, order)
	assert.Equal(t, replenish.ActionStockOrder, order.Type)
	assert.True(t, order.Success)
	assert.Equal(t, 2, order.CurrentStock)
	assert.Equal(t, 298, order.OrderedQuantity)

	orders, err := svc.Orders(ctx, inventory.OrderPending, 0, 0)
	require.NoError(t, err)
	var found bool
	for _, o := range orders {
		if o.SKU == "SKU004" && o.Quantity == order.OrderedQuantity {
			found = true
		}
	}
	assert.True(t, found)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.SweepOrderTotal.WithLabelValues("ordered")), before+1)

	recs, _ := mem.List(ctx, 0)
	assert.NotEmpty(t, recs)
}

func TestSweeper_NothingAtRisk(t *testing.T) {
	actions, err := replenish.NewSweeper(openerFor(seededService(t))).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, replenish.ActionStatusCheck, actions[0].Type)
	assert.True(t, actions[0].Success)
}

func TestSweeper_OpenFailure(t *testing.T) {
	s := replenish.NewSweeper(toolclient.OpenerFunc(func(context.Context) (toolclient.Client, error) {
		return nil, errors.New("down")
	}))
	_, err := s.Run(context.Background())
	assert.Error(t, err)
}

// stubClient 按工具名返回预设结果
type stubClient struct {
	results map[string]toolclient.Result
	calls   []string
}

func (c *stubClient) ListTools(context.Context) ([]toolclient.ToolInfo, error) { return nil, nil }
func (c *stubClient) Call(_ context.Context, name string, args map[string]any) toolclient.Result {
	c.calls = append(c.calls, name)
	return c.results[name]
}
func (c *stubClient) Close() error { return nil }

func TestSweeper_PerProductErrorsContinue(t *testing.T) {
	c := &stubClient{results: map[string]toolclient.Result{
		"get_products_soon_out_of_stock": {Value: []any{
			map[string]any{"sku": "A", "name": "Alpha"},
			map[string]any{"sku": "B", "name": "Beta"},
		}},
		"get_stock_level_for_product": toolclient.ErrorResult("product not found"),
	}}
	s := replenish.NewSweeper(toolclient.OpenerFunc(func(context.Context) (toolclient.Client, error) { return c, nil }))
	actions, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 2)
	for _, a := range actions {
		assert.Equal(t, replenish.ActionError, a.Type)
		assert.False(t, a.Success)
	}
	assert.NotContains(t, c.calls, "order_product")
}

func TestSweeper_SufficientStockSkipped(t *testing.T) {
	c := &stubClient{results: map[string]toolclient.Result{
		"get_products_soon_out_of_stock": {Value: []any{map[string]any{"sku": "A", "name": "Alpha"}}},
		"get_stock_level_for_product":    {Value: map[string]any{"stock_on_hand": float64(180)}},
	}}
	s := replenish.NewSweeper(toolclient.OpenerFunc(func(context.Context) (toolclient.Client, error) { return c, nil }))
	actions, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, replenish.ActionStatusCheck, actions[0].Type)
	assert.Equal(t, 180, actions[0].CurrentStock)
	assert.NotContains(t, c.calls, "order_product")
}
