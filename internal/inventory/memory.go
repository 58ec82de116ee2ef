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
	"sort"
	"sync"

	"retail-agent/pkg/errors"
)

// MemoryStore 内存实现，适合开发与测试
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	stock    map[string]int
	sales    []SalesTransaction
	orders   map[string]Order
}

// NewMemoryStore 创建内存库存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]Product),
		stock:    make(map[string]int),
		orders:   make(map[string]Order),
	}
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, sku string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[sku]
	if !ok {
		return Product{}, errors.NotFoundf("product %s", sku)
	}
	return p, nil
}

func (m *MemoryStore) UpsertProduct(ctx context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.SKU] = p
	return nil
}

func (m *MemoryStore) ListStockLevels(ctx context.Context) ([]StockLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StockLevel, 0, len(m.stock))
	for sku, n := range m.stock {
		out = append(out, StockLevel{SKU: sku, StockOnHand: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *MemoryStore) GetStockLevel(ctx context.Context, sku string) (StockLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.stock[sku]
	if !ok {
		return StockLevel{}, errors.NotFoundf("stock level for %s", sku)
	}
	return StockLevel{SKU: sku, StockOnHand: n}, nil
}

func (m *MemoryStore) SetStockLevel(ctx context.Context, sku string, onHand int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[sku] = onHand
	return nil
}

func (m *MemoryStore) AdjustStockLevel(ctx context.Context, sku string, delta int) (StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.stock[sku]
	if !ok {
		return StockLevel{}, errors.NotFoundf("stock level for %s", sku)
	}
	n += delta
	if n < 0 {
		n = 0
	}
	m.stock[sku] = n
	return StockLevel{SKU: sku, StockOnHand: n}, nil
}

func (m *MemoryStore) InsertSale(ctx context.Context, s SalesTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, s)
	return nil
}

func (m *MemoryStore) ListSales(ctx context.Context, f SalesFilter) ([]SalesTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SalesTransaction
	for _, s := range m.sales {
		if f.SKU != "" && s.SKU != f.SKU {
			continue
		}
		if !f.Since.IsZero() && s.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !s.Timestamp.Before(f.Until) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) InsertOrder(ctx context.Context, o Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.OrderID]; ok {
		return errors.Wrapf(errors.ErrConflict, "order %s already exists", o.OrderID)
	}
	m.orders[o.OrderID] = o
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, errors.NotFoundf("order %s", orderID)
	}
	return o, nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.orders {
		if f.SKU != "" && o.SKU != f.SKU {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.Before.IsZero() && !o.OrderDate.Before(f.Before) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, errors.NotFoundf("order %s", orderID)
	}
	if o.Status == status {
		return o, nil
	}
	if o.Status != OrderPending {
		return Order{}, errors.Wrapf(errors.ErrConflict, "order %s is already %s", orderID, o.Status)
	}
	if status == OrderCompleted {
		m.stock[o.SKU] += o.Quantity
	}
	o.Status = status
	m.orders[orderID] = o
	return o, nil
}

// Close 内存实现无需关闭
func (m *MemoryStore) Close() {}
