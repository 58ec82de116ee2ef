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

// Package builtin 基于库存服务的内置工具
package builtin

import (
	"context"

	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/inventory"
	"retail-agent/internal/tool"
	"retail-agent/pkg/errors"
)

// fromErr 参数/业务错误转为失败结果，其余作为基础设施错误返回
func fromErr(err error) (tool.ToolResult, error) {
	if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrInvalidArg) || errors.Is(err, errors.ErrConflict) {
		return tool.Fail(err.Error()), nil
	}
	return tool.ToolResult{}, err
}

func argFail(err error) (tool.ToolResult, error) {
	return tool.Fail(err.Error()), nil
}

// SoonOutOfStockTool get_products_soon_out_of_stock
type SoonOutOfStockTool struct{ svc *inventory.Service }

func (t *SoonOutOfStockTool) Name() string { return "get_products_soon_out_of_stock" }
func (t *SoonOutOfStockTool) Description() string {
	return "List products whose stock on hand is less than or equal to the units sold over the last `days` days (default 3)."
}
func (t *SoonOutOfStockTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"days": {Type: "integer", Description: "sales window in days", Default: 3},
		},
	}
}
func (t *SoonOutOfStockTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	days, err := intArgDefault(input, "days", 3)
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.ProductsSoonOutOfStock(ctx, days)
	if err != nil {
		return fromErr(err)
	}
	if out == nil {
		out = []inventory.SoonOutOfStock{}
	}
	return tool.OK(out), nil
}

// StockLevelsTool get_stock_levels
type StockLevelsTool struct{ svc *inventory.Service }

func (t *StockLevelsTool) Name() string { return "get_stock_levels" }
func (t *StockLevelsTool) Description() string {
	return "Return the stock on hand of every product. With include_pending=true also returns pending order quantity and virtual stock."
}
func (t *StockLevelsTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"include_pending": {Type: "boolean", Description: "subtract pending orders", Default: false},
		},
	}
}
func (t *StockLevelsTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	out, err := t.svc.StockLevels(ctx, boolArgDefault(input, "include_pending", false))
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(out), nil
}

// StockLevelTool get_stock_level_for_product
type StockLevelTool struct{ svc *inventory.Service }

func (t *StockLevelTool) Name() string { return "get_stock_level_for_product" }
func (t *StockLevelTool) Description() string {
	return "Return stock_on_hand, pending_quantity and virtual_stock for one product SKU."
}
func (t *StockLevelTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"sku": {Type: "string", Description: "product SKU"},
		},
		Required: []string{"sku"},
	}
}
func (t *StockLevelTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	sku, err := stringArg(input, "sku")
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.StockLevel(ctx, sku, boolArgDefault(input, "include_pending", true))
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(out), nil
}

// DailySalesTool get_daily_sales_for_product
type DailySalesTool struct{ svc *inventory.Service }

func (t *DailySalesTool) Name() string { return "get_daily_sales_for_product" }
func (t *DailySalesTool) Description() string {
	return "Return units sold per day for one product over the last `days` days (default 3)."
}
func (t *DailySalesTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"sku":  {Type: "string", Description: "product SKU"},
			"days": {Type: "integer", Description: "number of days", Default: 3},
		},
		Required: []string{"sku"},
	}
}
func (t *DailySalesTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	sku, err := stringArg(input, "sku")
	if err != nil {
		return argFail(err)
	}
	days, err := intArgDefault(input, "days", 3)
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.DailySalesForProduct(ctx, sku, days)
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(map[string]any{"sku": sku, "days": days, "daily_sales": out}), nil
}

// RecentSalesTool get_recent_sales
type RecentSalesTool struct{ svc *inventory.Service }

func (t *RecentSalesTool) Name() string { return "get_recent_sales" }
func (t *RecentSalesTool) Description() string {
	return "List the most recent sales transactions over the last `days` days (default 1), newest first."
}
func (t *RecentSalesTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"days":  {Type: "integer", Description: "window in days", Default: 1},
			"limit": {Type: "integer", Description: "maximum number of transactions", Default: 50},
		},
	}
}
func (t *RecentSalesTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	days, err := intArgDefault(input, "days", 1)
	if err != nil {
		return argFail(err)
	}
	limit, err := intArgDefault(input, "limit", 50)
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.RecentSales(ctx, days, limit)
	if err != nil {
		return fromErr(err)
	}
	if out == nil {
		out = []inventory.SalesTransaction{}
	}
	return tool.OK(out), nil
}

// ListOrdersTool list_orders
type ListOrdersTool struct{ svc *inventory.Service }

func (t *ListOrdersTool) Name() string { return "list_orders" }
func (t *ListOrdersTool) Description() string {
	return "List replenishment orders, optionally filtered by status (pending, completed, cancelled) and minimum age in days."
}
func (t *ListOrdersTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"status":          {Type: "string", Description: "pending | completed | cancelled"},
			"older_than_days": {Type: "integer", Description: "only orders placed more than N days ago", Default: 0},
		},
	}
}
func (t *ListOrdersTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	older, err := intArgDefault(input, "older_than_days", 0)
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.Orders(ctx, inventory.OrderStatus(optionalString(input, "status")), older, 100)
	if err != nil {
		return fromErr(err)
	}
	if out == nil {
		out = []inventory.Order{}
	}
	return tool.OK(out), nil
}

// OrderProductTool order_product
type OrderProductTool struct{ svc *inventory.Service }

func (t *OrderProductTool) Name() string { return "order_product" }
func (t *OrderProductTool) Description() string {
	return "Place a pending replenishment order for one product."
}
func (t *OrderProductTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"sku":      {Type: "string", Description: "product SKU"},
			"quantity": {Type: "integer", Description: "units to order, at least 1"},
		},
		Required: []string{"sku", "quantity"},
	}
}
func (t *OrderProductTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	sku, err := stringArg(input, "sku")
	if err != nil {
		return argFail(err)
	}
	qty, err := intArg(input, "quantity")
	if err != nil {
		return argFail(err)
	}
	o, err := t.svc.PlaceOrder(ctx, sku, qty)
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(o), nil
}

// OrderProductsTool order_products
type OrderProductsTool struct{ svc *inventory.Service }

func (t *OrderProductsTool) Name() string { return "order_products" }
func (t *OrderProductsTool) Description() string {
	return "Place several replenishment orders at once. skus and quantities are lists of the same length."
}
func (t *OrderProductsTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"skus":       {Type: "array", Description: "product SKUs", Items: &tool.SchemaProperty{Type: "string"}},
			"quantities": {Type: "array", Description: "units per SKU", Items: &tool.SchemaProperty{Type: "integer"}},
		},
		Required: []string{"skus", "quantities"},
	}
}
func (t *OrderProductsTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	skus, err := stringListArg(input, "skus")
	if err != nil {
		return argFail(err)
	}
	qtys, err := intListArg(input, "quantities")
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.PlaceOrders(ctx, skus, qtys)
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(out), nil
}

// UpdateOrderStatusTool update_order_status
type UpdateOrderStatusTool struct{ svc *inventory.Service }

func (t *UpdateOrderStatusTool) Name() string { return "update_order_status" }
func (t *UpdateOrderStatusTool) Description() string {
	return "Change a pending order to completed (adds its quantity to stock) or cancelled."
}
func (t *UpdateOrderStatusTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"order_id": {Type: "string", Description: "order identifier"},
			"status":   {Type: "string", Description: "completed | cancelled"},
		},
		Required: []string{"order_id", "status"},
	}
}
func (t *UpdateOrderStatusTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	id, err := stringArg(input, "order_id")
	if err != nil {
		return argFail(err)
	}
	status, err := stringArg(input, "status")
	if err != nil {
		return argFail(err)
	}
	o, err := t.svc.UpdateOrderStatus(ctx, id, inventory.OrderStatus(status))
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(o), nil
}

// UpdateStockTool update_stock_level
type UpdateStockTool struct{ svc *inventory.Service }

func (t *UpdateStockTool) Name() string { return "update_stock_level" }
func (t *UpdateStockTool) Description() string {
	return "Overwrite the stock on hand of a product after a physical count."
}
func (t *UpdateStockTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"sku":           {Type: "string", Description: "product SKU"},
			"stock_on_hand": {Type: "integer", Description: "counted units, >= 0"},
		},
		Required: []string{"sku", "stock_on_hand"},
	}
}
func (t *UpdateStockTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	sku, err := stringArg(input, "sku")
	if err != nil {
		return argFail(err)
	}
	n, err := intArg(input, "stock_on_hand")
	if err != nil {
		return argFail(err)
	}
	out, err := t.svc.UpdateStock(ctx, sku, n)
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(out), nil
}

// RecommendTool recommend_order_quantity
type RecommendTool struct{ svc *inventory.Service }

func (t *RecommendTool) Name() string { return "recommend_order_quantity" }
func (t *RecommendTool) Description() string {
	return "Recommend how many units to reorder for a product based on its current stock on hand."
}
func (t *RecommendTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"sku": {Type: "string", Description: "product SKU"},
		},
		Required: []string{"sku"},
	}
}
func (t *RecommendTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	sku, err := stringArg(input, "sku")
	if err != nil {
		return argFail(err)
	}
	lvl, err := t.svc.StockLevel(ctx, sku, false)
	if err != nil {
		return fromErr(err)
	}
	return tool.OK(replenish.Decide(sku, lvl.StockOnHand)), nil
}
