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

// Package inventory 商品、库存、销售与补货订单
package inventory

import (
	"context"
	"time"
)

// OrderStatus 补货订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid 是否为已知状态
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Product 商品
type Product struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// StockLevel 在库数量
type StockLevel struct {
	SKU         string `json:"sku"`
	StockOnHand int    `json:"stock_on_hand"`
}

// StockSnapshot 库存快照；VirtualStock = StockOnHand - PendingQuantity
type StockSnapshot struct {
	SKU             string `json:"sku"`
	Name            string `json:"name,omitempty"`
	StockOnHand     int    `json:"stock_on_hand"`
	PendingQuantity int    `json:"pending_quantity,omitempty"`
	VirtualStock    *int   `json:"virtual_stock,omitempty"`
}

// SalesTransaction 一笔销售
type SalesTransaction struct {
	TransactionID string    `json:"transaction_id"`
	SKU           string    `json:"sku"`
	Timestamp     time.Time `json:"timestamp"`
	Quantity      int       `json:"quantity"`
}

// Order 补货订单
type Order struct {
	OrderID   string      `json:"order_id"`
	SKU       string      `json:"sku"`
	OrderDate time.Time   `json:"order_date"`
	Quantity  int         `json:"quantity"`
	Status    OrderStatus `json:"status"`
}

// SalesFilter 销售查询条件，零值字段不参与过滤
type SalesFilter struct {
	SKU   string
	Since time.Time
	Until time.Time
	Limit int
}

// OrderFilter 订单查询条件
type OrderFilter struct {
	SKU    string
	Status OrderStatus
	Before time.Time // 仅返回 order_date 早于该时间的订单
	Limit  int
}

// Store 库存持久化接口，memory 与 postgres 两种实现
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, sku string) (Product, error)
	UpsertProduct(ctx context.Context, p Product) error

	ListStockLevels(ctx context.Context) ([]StockLevel, error)
	GetStockLevel(ctx context.Context, sku string) (StockLevel, error)
	SetStockLevel(ctx context.Context, sku string, onHand int) error
	// AdjustStockLevel 在库数量增减 delta，结果小于 0 时截断为 0
	AdjustStockLevel(ctx context.Context, sku string, delta int) (StockLevel, error)

	InsertSale(ctx context.Context, s SalesTransaction) error
	ListSales(ctx context.Context, f SalesFilter) ([]SalesTransaction, error)

	InsertOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	// UpdateOrderStatus 更新状态，只允许从 pending 转出，否则返回 ErrConflict；pending → completed 时把订单数量计入在库
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error)

	Close()
}
