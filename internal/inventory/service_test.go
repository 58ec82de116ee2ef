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

package inventory

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/storage/cache"
	"retail-agent/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, SeedDemo(context.Background(), store))
	svc := NewService(store, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithCache(cache.NewMemoryStore(), time.Minute))
	return svc, store
}

func TestService_ProductsSoonOutOfStock(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	// SKU001 在库 12，近 3 天卖出 12 -> 命中；SKU002 在库 35 卖出 10 -> 不命中
	require.NoError(t, store.InsertSale(ctx, SalesTransaction{TransactionID: "t1", SKU: "SKU001", Timestamp: fixedNow.Add(-24 * time.Hour), Quantity: 12}))
	require.NoError(t, store.InsertSale(ctx, SalesTransaction{TransactionID: "t2", SKU: "SKU002", Timestamp: fixedNow.Add(-48 * time.Hour), Quantity: 10}))
	// 窗口外的销售不计入
	require.NoError(t, store.InsertSale(ctx, SalesTransaction{TransactionID: "t3", SKU: "SKU003", Timestamp: fixedNow.Add(-10 * 24 * time.Hour), Quantity: 500}))

	out, err := svc.ProductsSoonOutOfStock(ctx, 3)
	require.NoError(t, err)
	var skus []string
	for _, p := range out {
		skus = append(skus, p.SKU)
	}
	assert.Equal(t, []string{"SKU001"}, skus)
	assert.Equal(t, 12, out[0].SoldLastDays)
	assert.Equal(t, "Whole Milk 1L", out[0].Name)

	_, err = svc.ProductsSoonOutOfStock(ctx, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}

func TestService_VirtualStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.PlaceOrder(ctx, "SKU004", 30)
	require.NoError(t, err)

	snap, err := svc.StockLevel(ctx, "SKU004", true)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.StockOnHand)
	assert.Equal(t, 30, snap.PendingQuantity)
	require.NotNil(t, snap.VirtualStock)
	assert.Equal(t, -25, *snap.VirtualStock)

	plain, err := svc.StockLevel(ctx, "SKU004", false)
	require.NoError(t, err)
	assert.Nil(t, plain.VirtualStock)
}

func TestService_OrderLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.PlaceOrder(ctx, "SKU001", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
	_, err = svc.PlaceOrder(ctx, "NOPE", 5)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	o, err := svc.PlaceOrder(ctx, "SKU001", 288)
	require.NoError(t, err)
	assert.Equal(t, OrderPending, o.Status)
	assert.Contains(t, o.OrderID, "ORD-20260310-")

	done, err := svc.UpdateOrderStatus(ctx, o.OrderID, OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, OrderCompleted, done.Status)
	lvl, err := svc.StockLevel(ctx, "SKU001", false)
	require.NoError(t, err)
	assert.Equal(t, 300, lvl.StockOnHand)

	// 终态订单不可再改
	_, err = svc.UpdateOrderStatus(ctx, o.OrderID, OrderCancelled)
	assert.ErrorIs(t, err, errors.ErrConflict)
	_, err = svc.UpdateOrderStatus(ctx, o.OrderID, "shipped")
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}

// gatedStore 让并发调用方都读到转换前的订单后再继续
type gatedStore struct {
	*MemoryStore
	reads sync.WaitGroup
}

func (g *gatedStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := g.MemoryStore.GetOrder(ctx, orderID)
	g.reads.Done()
	g.reads.Wait()
	return o, err
}

func TestService_ConcurrentOrderTransitions(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mem := NewMemoryStore()
		require.NoError(t, SeedDemo(ctx, mem))
		store := &gatedStore{MemoryStore: mem}
		svc := NewService(store, nil, WithClock(func() time.Time { return fixedNow }))

		o, err := svc.PlaceOrder(ctx, "SKU001", 100)
		require.NoError(t, err)
		before, err := mem.GetStockLevel(ctx, "SKU001")
		require.NoError(t, err)

		store.reads.Add(2)
		targets := []OrderStatus{OrderCompleted, OrderCancelled}
		errs := make([]error, len(targets))
		var wg sync.WaitGroup
		for k, st := range targets {
			wg.Add(1)
			go func(k int, st OrderStatus) {
				defer wg.Done()
				_, errs[k] = svc.UpdateOrderStatus(ctx, o.OrderID, st)
			}(k, st)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, errors.ErrConflict)
				failed++
			}
		}
		assert.Equal(t, 1, failed)

		final, err := mem.GetOrder(ctx, o.OrderID)
		require.NoError(t, err)
		after, err := mem.GetStockLevel(ctx, "SKU001")
		require.NoError(t, err)
		switch final.Status {
		case OrderCompleted:
			assert.Equal(t, before.StockOnHand+100, after.StockOnHand)
		case OrderCancelled:
			assert.Equal(t, before.StockOnHand, after.StockOnHand)
		default:
			t.Fatalf("unexpected final status %s", final.Status)
		}
	}
}

func TestMemoryStore_UpdateOrderStatus_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, SeedDemo(ctx, store))
	require.NoError(t, store.InsertOrder(ctx, Order{OrderID: "o-1", SKU: "SKU004", OrderDate: fixedNow, Quantity: 20, Status: OrderPending}))

	_, err := store.UpdateOrderStatus(ctx, "o-1", OrderCancelled)
	require.NoError(t, err)
	_, err = store.UpdateOrderStatus(ctx, "o-1", OrderCompleted)
	assert.ErrorIs(t, err, errors.ErrConflict)
	// 重复设置相同状态不报错
	o, err := store.UpdateOrderStatus(ctx, "o-1", OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, o.Status)

	lvl, err := store.GetStockLevel(ctx, "SKU004")
	require.NoError(t, err)
	assert.Equal(t, 5, lvl.StockOnHand)
}

func TestService_PlaceOrders_BestEffort(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	out, err := svc.PlaceOrders(ctx, []string{"SKU001", "MISSING", "SKU002"}, []int{10, 5, 20})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.NotNil(t, out[0].Order)
	assert.NotEmpty(t, out[1].Error)
	assert.NotNil(t, out[2].Order)

	_, err = svc.PlaceOrders(ctx, []string{"SKU001"}, []int{1, 2})
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}

func TestService_OrdersOlderThan(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.InsertOrder(ctx, Order{OrderID: "old", SKU: "SKU001", OrderDate: fixedNow.Add(-5 * 24 * time.Hour), Quantity: 10, Status: OrderPending}))
	require.NoError(t, store.InsertOrder(ctx, Order{OrderID: "new", SKU: "SKU001", OrderDate: fixedNow.Add(-time.Hour), Quantity: 10, Status: OrderPending}))
	require.NoError(t, store.InsertOrder(ctx, Order{OrderID: "done", SKU: "SKU001", OrderDate: fixedNow.Add(-9 * 24 * time.Hour), Quantity: 10, Status: OrderCompleted}))

	out, err := svc.Orders(ctx, OrderPending, 2, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "old", out[0].OrderID)

	all, err := svc.Orders(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_DailySales(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.RecordSale(ctx, "SKU003", 4, fixedNow.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, "SKU003", 6, fixedNow.Add(-26*time.Hour))
	require.NoError(t, err)

	days, err := svc.DailySalesForProduct(ctx, "SKU003", 3)
	require.NoError(t, err)
	assert.Equal(t, []DailySales{
		{Date: "2026-03-08", Quantity: 0},
		{Date: "2026-03-09", Quantity: 6},
		{Date: "2026-03-10", Quantity: 4},
	}, days)

	lvl, err := svc.StockLevel(ctx, "SKU003", false)
	require.NoError(t, err)
	assert.Equal(t, 70, lvl.StockOnHand)
}

func TestService_ProductsCacheInvalidated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	before, err := svc.Products(ctx)
	require.NoError(t, err)
	_, err = svc.SaveProduct(ctx, Product{SKU: "SKU900", Name: "Olive Oil", Category: "Pantry", Price: 9})
	require.NoError(t, err)
	after, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	lvl, err := svc.StockLevel(ctx, "SKU900", false)
	require.NoError(t, err)
	assert.Equal(t, 0, lvl.StockOnHand)

	_, err = svc.UpdateStock(ctx, "SKU900", -1)
	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}

func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TEST_INVENTORY_DSN")
	if dsn == "" {
		t.Skip("TEST_INVENTORY_DSN not set, skipping Postgres inventory test")
	}
	ctx := context.Background()
	store, err := NewPgStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, SeedDemo(ctx, store))

	sku := "SKU001"
	require.NoError(t, store.SetStockLevel(ctx, sku, 10))
	id := "ORD-TEST-" + time.Now().Format("150405.000000")
	require.NoError(t, store.InsertOrder(ctx, Order{OrderID: id, SKU: sku, OrderDate: time.Now().UTC(), Quantity: 5, Status: OrderPending}))
	assert.ErrorIs(t, store.InsertOrder(ctx, Order{OrderID: id, SKU: sku, OrderDate: time.Now().UTC(), Quantity: 5, Status: OrderPending}), errors.ErrConflict)

	o, err := store.UpdateOrderStatus(ctx, id, OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, OrderCompleted, o.Status)
	lvl, err := store.GetStockLevel(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, 15, lvl.StockOnHand)

	_, err = store.UpdateOrderStatus(ctx, id, OrderCancelled)
	assert.ErrorIs(t, err, errors.ErrConflict)

	_, err = store.GetOrder(ctx, "missing-order")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
