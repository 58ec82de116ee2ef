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

package http

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"retail-agent/internal/inventory"
)

// ListProducts GET /api/products
func (h *Handler) ListProducts(c context.Context, ctx *app.RequestContext) {
	products, err := h.inventory.Products(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"products": products, "total": len(products)})
}

// GetProduct GET /api/products/:sku
func (h *Handler) GetProduct(c context.Context, ctx *app.RequestContext) {
	p, err := h.inventory.Product(c, ctx.Param("sku"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, p)
}

// SaveProduct POST /api/products
func (h *Handler) SaveProduct(c context.Context, ctx *app.RequestContext) {
	var p inventory.Product
	if err := ctx.BindJSON(&p); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	saved, err := h.inventory.SaveProduct(c, p)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, saved)
}

// ListStock GET /api/stock?include_pending=true
func (h *Handler) ListStock(c context.Context, ctx *app.RequestContext) {
	levels, err := h.inventory.StockLevels(c, ctx.Query("include_pending") == "true")
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"stock": levels, "total": len(levels)})
}

// GetStock GET /api/stock/:sku?include_pending=true
func (h *Handler) GetStock(c context.Context, ctx *app.RequestContext) {
	snap, err := h.inventory.StockLevel(c, ctx.Param("sku"), ctx.Query("include_pending") == "true")
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, snap)
}

// UpdateStockRequest PUT /api/stock/:sku
type UpdateStockRequest struct {
	StockOnHand int `json:"stock_on_hand"`
}

// UpdateStock PUT /api/stock/:sku
func (h *Handler) UpdateStock(c context.Context, ctx *app.RequestContext) {
	var req UpdateStockRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	level, err := h.inventory.UpdateStock(c, ctx.Param("sku"), req.StockOnHand)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, level)
}

// ListOrders GET /api/orders?status=pending&older_than_days=7&limit=100
func (h *Handler) ListOrders(c context.Context, ctx *app.RequestContext) {
	status := inventory.OrderStatus(strings.ToLower(ctx.Query("status")))
	orders, err := h.inventory.Orders(c, status, queryInt(ctx, "older_than_days", 0), queryInt(ctx, "limit", 0))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"orders": orders, "total": len(orders)})
}

// PlaceOrderRequest POST /api/orders
type PlaceOrderRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// PlaceOrder POST /api/orders
func (h *Handler) PlaceOrder(c context.Context, ctx *app.RequestContext) {
	var req PlaceOrderRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	o, err := h.inventory.PlaceOrder(c, req.SKU, req.Quantity)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, o)
}

// GetOrder GET /api/orders/:id
func (h *Handler) GetOrder(c context.Context, ctx *app.RequestContext) {
	o, err := h.inventory.Order(c, ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, o)
}

// UpdateOrderStatusRequest PUT /api/orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus PUT /api/orders/:id/status
func (h *Handler) UpdateOrderStatus(c context.Context, ctx *app.RequestContext) {
	var req UpdateOrderStatusRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	o, err := h.inventory.UpdateOrderStatus(c, ctx.Param("id"), inventory.OrderStatus(strings.ToLower(req.Status)))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, o)
}

// ListSales GET /api/sales?sku=SKU001&days=7&limit=100
func (h *Handler) ListSales(c context.Context, ctx *app.RequestContext) {
	f := inventory.SalesFilter{SKU: ctx.Query("sku"), Limit: queryInt(ctx, "limit", 0)}
	if days := queryInt(ctx, "days", 0); days > 0 {
		f.Since = time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	}
	sales, err := h.inventory.Sales(c, f)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"sales": sales, "total": len(sales)})
}

// RecordSaleRequest POST /api/sales
type RecordSaleRequest struct {
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// RecordSale POST /api/sales
func (h *Handler) RecordSale(c context.Context, ctx *app.RequestContext) {
	var req RecordSaleRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	t, err := h.inventory.RecordSale(c, req.SKU, req.Quantity, req.Timestamp)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, t)
}

// DailySales GET /api/sales/:sku/daily?days=7
func (h *Handler) DailySales(c context.Context, ctx *app.RequestContext) {
	series, err := h.inventory.DailySalesForProduct(c, ctx.Param("sku"), queryInt(ctx, "days", 7))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"sku": ctx.Param("sku"), "daily": series})
}

// SoonOutOfStock GET /api/inventory/soon-out-of-stock?days=7
func (h *Handler) SoonOutOfStock(c context.Context, ctx *app.RequestContext) {
	items, err := h.inventory.ProductsSoonOutOfStock(c, queryInt(ctx, "days", 7))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"products": items, "total": len(items)})
}
