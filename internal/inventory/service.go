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
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"retail-agent/internal/storage/cache"
	"retail-agent/pkg/errors"
	"retail-agent/pkg/log"
)

const catalogCacheKey = "inventory:products"

// SoonOutOfStock 近期销量已不低于在库数量的商品
type SoonOutOfStock struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	StockOnHand  int    `json:"stock_on_hand"`
	SoldLastDays int    `json:"sold_last_days"`
	Days         int    `json:"days"`
}

// DailySales 单日销量
type DailySales struct {
	Date     string `json:"date"` // YYYY-MM-DD (UTC)
	Quantity int    `json:"quantity"`
}

// OrderOutcome 批量下单中单个商品的结果
type OrderOutcome struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Order    *Order `json:"order,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service 库存领域服务，供工具、HTTP 与补货巡检共用
type Service struct {
	store    Store
	cache    cache.Store
	cacheTTL time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// ServiceOption 可选配置
type ServiceOption func(*Service)

// WithCache 商品目录缓存
func WithCache(c cache.Store, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService 创建库存服务
func NewService(store Store, logger *log.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Products 商品目录（优先读缓存）
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		var cached []Product
		err := s.cache.Get(ctx, catalogCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !stderrors.Is(err, cache.ErrMiss) {
			s.logger.Warn("读取商品缓存失败", "error", err)
		}
	}
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, products, s.cacheTTL); err != nil {
			s.logger.Warn("写入商品缓存失败", "error", err)
		}
	}
	return products, nil
}

// Product 单个商品
func (s *Service) Product(ctx context.Context, sku string) (Product, error) {
	return s.store.GetProduct(ctx, sku)
}

// SaveProduct 新增或更新商品；新商品同时建立 0 库存记录
func (s *Service) SaveProduct(ctx context.Context, p Product) (Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	if p.SKU == "" || strings.TrimSpace(p.Name) == "" {
		return Product{}, errors.InvalidArgf("sku and name are required")
	}
	if p.Price < 0 {
		return Product{}, errors.InvalidArgf("price must be non-negative")
	}
	if err := s.store.UpsertProduct(ctx, p); err != nil {
		return Product{}, err
	}
	if _, err := s.store.GetStockLevel(ctx, p.SKU); errors.Is(err, errors.ErrNotFound) {
		if err := s.store.SetStockLevel(ctx, p.SKU, 0); err != nil {
			return Product{}, err
		}
	}
	s.invalidateCatalog(ctx)
	return p, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("清理商品缓存失败", "error", err)
	}
}

// StockLevels 全部库存快照；includePending 时计算扣除在途订单后的虚拟库存
func (s *Service) StockLevels(ctx context.Context, includePending bool) ([]StockSnapshot, error) {
	levels, err := s.store.ListStockLevels(ctx)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	if products, err := s.Products(ctx); err == nil {
		for _, p := range products {
			names[p.SKU] = p.Name
		}
	}
	var pending map[string]int
	if includePending {
		if pending, err = s.pendingBySKU(ctx, ""); err != nil {
			return nil, err
		}
	}
	out := make([]StockSnapshot, 0, len(levels))
	for _, l := range levels {
		out = append(out, snapshot(l, names[l.SKU], pending, includePending))
	}
	return out, nil
}

// StockLevel 单个商品的库存快照
func (s *Service) StockLevel(ctx context.Context, sku string, includePending bool) (StockSnapshot, error) {
	l, err := s.store.GetStockLevel(ctx, sku)
	if err != nil {
		return StockSnapshot{}, err
	}
	name := ""
	if p, err := s.store.GetProduct(ctx, sku); err == nil {
		name = p.Name
	}
	var pending map[string]int
	if includePending {
		if pending, err = s.pendingBySKU(ctx, sku); err != nil {
			return StockSnapshot{}, err
		}
	}
	return snapshot(l, name, pending, includePending), nil
}

func snapshot(l StockLevel, name string, pending map[string]int, includePending bool) StockSnapshot {
	snap := StockSnapshot{SKU: l.SKU, Name: name, StockOnHand: l.StockOnHand}
	if includePending {
		snap.PendingQuantity = pending[l.SKU]
		v := l.StockOnHand - snap.PendingQuantity
		snap.VirtualStock = &v
	}
	return snap
}

func (s *Service) pendingBySKU(ctx context.Context, sku string) (map[string]int, error) {
	orders, err := s.store.ListOrders(ctx, OrderFilter{SKU: sku, Status: OrderPending})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, o := range orders {
		out[o.SKU] += o.Quantity
	}
	return out, nil
}

// UpdateStock 设置在库数量
func (s *Service) UpdateStock(ctx context.Context, sku string, onHand int) (StockLevel, error) {
	if onHand < 0 {
		return StockLevel{}, errors.InvalidArgf("stock quantity must be non-negative")
	}
	if _, err := s.store.GetProduct(ctx, sku); err != nil {
		return StockLevel{}, err
	}
	if err := s.store.SetStockLevel(ctx, sku, onHand); err != nil {
		return StockLevel{}, err
	}
	return StockLevel{SKU: sku, StockOnHand: onHand}, nil
}

// RecordSale 记录一笔销售并扣减在库
func (s *Service) RecordSale(ctx context.Context, sku string, quantity int, at time.Time) (SalesTransaction, error) {
	if quantity < 1 {
		return SalesTransaction{}, errors.InvalidArgf("quantity must be at least 1")
	}
	if _, err := s.store.GetProduct(ctx, sku); err != nil {
		return SalesTransaction{}, err
	}
	if at.IsZero() {
		at = s.now()
	}
	t := SalesTransaction{
		TransactionID: "TX-" + uuid.New().String(),
		SKU:           sku,
		Timestamp:     at.UTC(),
		Quantity:      quantity,
	}
	if err := s.store.InsertSale(ctx, t); err != nil {
		return SalesTransaction{}, err
	}
	if _, err := s.store.AdjustStockLevel(ctx, sku, -quantity); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return SalesTransaction{}, err
	}
	return t, nil
}

// Sales 按条件查询销售
func (s *Service) Sales(ctx context.Context, f SalesFilter) ([]SalesTransaction, error) {
	return s.store.ListSales(ctx, f)
}

// RecentSales 最近 days 天的销售
func (s *Service) RecentSales(ctx context.Context, days, limit int) ([]SalesTransaction, error) {
	if days <= 0 {
		days = 1
	}
	return s.store.ListSales(ctx, SalesFilter{Since: s.now().Add(-time.Duration(days) * 24 * time.Hour), Limit: limit})
}

// DailySalesForProduct 最近 days 天每日销量，按日期升序，无销售的日期记 0
func (s *Service) DailySalesForProduct(ctx context.Context, sku string, days int) ([]DailySales, error) {
	if days <= 0 {
		return nil, errors.InvalidArgf("days must be positive")
	}
	if _, err := s.store.GetProduct(ctx, sku); err != nil {
		return nil, err
	}
	end := s.now().UTC()
	start := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	sales, err := s.store.ListSales(ctx, SalesFilter{SKU: sku, Since: start})
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int, days)
	for _, t := range sales {
		totals[t.Timestamp.UTC().Format("2006-01-02")] += t.Quantity
	}
	out := make([]DailySales, 0, days)
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d).Format("2006-01-02")
		out = append(out, DailySales{Date: day, Quantity: totals[day]})
	}
	return out, nil
}

// ProductsSoonOutOfStock 在库数量减去最近 days 天销量 <= 0 的商品
func (s *Service) ProductsSoonOutOfStock(ctx context.Context, days int) ([]SoonOutOfStock, error) {
	if days <= 0 {
		return nil, errors.InvalidArgf("days must be positive")
	}
	levels, err := s.store.ListStockLevels(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.ListSales(ctx, SalesFilter{Since: s.now().Add(-time.Duration(days) * 24 * time.Hour)})
	if err != nil {
		return nil, err
	}
	sold := make(map[string]int)
	for _, t := range sales {
		sold[t.SKU] += t.Quantity
	}
	names := map[string]string{}
	if products, err := s.Products(ctx); err == nil {
		for _, p := range products {
			names[p.SKU] = p.Name
		}
	}
	var out []SoonOutOfStock
	for _, l := range levels {
		if l.StockOnHand-sold[l.SKU] > 0 {
			continue
		}
		out = append(out, SoonOutOfStock{
			SKU:          l.SKU,
			Name:         names[l.SKU],
			StockOnHand:  l.StockOnHand,
			SoldLastDays: sold[l.SKU],
			Days:         days,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// PlaceOrder 创建一张 pending 补货订单
func (s *Service) PlaceOrder(ctx context.Context, sku string, quantity int) (Order, error) {
	if quantity < 1 {
		return Order{}, errors.InvalidArgf("quantity must be at least 1, got %d", quantity)
	}
	if _, err := s.store.GetProduct(ctx, sku); err != nil {
		return Order{}, err
	}
	now := s.now().UTC()
	o := Order{
		OrderID:   newOrderID(now),
		SKU:       sku,
		OrderDate: now,
		Quantity:  quantity,
		Status:    OrderPending,
	}
	if err := s.store.InsertOrder(ctx, o); err != nil {
		return Order{}, err
	}
	s.logger.Info("创建补货订单", "order_id", o.OrderID, "sku", sku, "quantity", quantity)
	return o, nil
}

// PlaceOrders 批量下单；逐个执行，单个失败不影响其余
func (s *Service) PlaceOrders(ctx context.Context, skus []string, quantities []int) ([]OrderOutcome, error) {
	if len(skus) != len(quantities) {
		return nil, errors.InvalidArgf("skus and quantities must have the same length (%d != %d)", len(skus), len(quantities))
	}
	out := make([]OrderOutcome, 0, len(skus))
	for i, sku := range skus {
		res := OrderOutcome{SKU: sku, Quantity: quantities[i]}
		o, err := s.PlaceOrder(ctx, sku, quantities[i])
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Order = &o
		}
		out = append(out, res)
	}
	return out, nil
}

// Orders 按状态与下单时长查询；olderThanDays<=0 表示不限
func (s *Service) Orders(ctx context.Context, status OrderStatus, olderThanDays, limit int) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, errors.InvalidArgf("unknown order status %q", status)
	}
	f := OrderFilter{Status: status, Limit: limit}
	if olderThanDays > 0 {
		f.Before = s.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	}
	return s.store.ListOrders(ctx, f)
}

// Order 单个订单
func (s *Service) Order(ctx context.Context, orderID string) (Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// UpdateOrderStatus 修改订单状态；completed/cancelled 为终态
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error) {
	if !status.Valid() {
		return Order{}, errors.InvalidArgf("unknown order status %q", status)
	}
	cur, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if cur.Status == status {
		return cur, nil
	}
	// 快速失败，存储层会在锁内再次校验
	if cur.Status != OrderPending {
		return Order{}, errors.Wrapf(errors.ErrConflict, "order %s is already %s", orderID, cur.Status)
	}
	o, err := s.store.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("订单状态更新", "order_id", orderID, "status", status)
	return o, nil
}

func newOrderID(now time.Time) string {
	return "ORD-" + now.Format("20060102") + "-" + strings.ToUpper(uuid.New().String()[:8])
}
