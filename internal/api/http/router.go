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
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"retail-agent/internal/api/http/middleware"
)

// Router HTTP 路由器（Hertz）
type Router struct {
	handler *Handler
	jwt     *jwt.HertzJWTMiddleware
	audit   *middleware.AuditMiddleware
}

// NewRouter 创建路由器
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// SetJWT 启用 JWT 认证；未设置时 /api 下接口不鉴权
func (r *Router) SetJWT(mw *jwt.HertzJWTMiddleware) { r.jwt = mw }

// SetAudit 启用写操作审计
func (r *Router) SetAudit(a *middleware.AuditMiddleware) { r.audit = a }

// Build 创建 Hertz 实例并注册路由；opts 用于追加 tracer 等服务端选项
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	r.Register(h)
	return h
}

// Register 在已有 Hertz 实例上注册全部路由
func (r *Router) Register(h *server.Hertz) {
	h.Use(middleware.CORS())

	h.GET("/api/health", r.handler.HealthCheck)
	h.GET("/metrics", r.handler.Metrics)

	var chain []app.HandlerFunc
	if r.jwt != nil {
		auth := h.Group("/api/auth")
		auth.POST("/login", r.jwt.LoginHandler)
		auth.GET("/refresh", r.jwt.RefreshHandler)
		chain = append(chain, r.jwt.MiddlewareFunc())
	}
	if r.audit != nil {
		chain = append(chain, r.audit.AuditAccess())
	}
	api := h.Group("/api", chain...)

	agent := api.Group("/agent")
	{
		agent.POST("/query", r.handler.AgentQuery)
		agent.POST("/replenish", r.handler.Replenish)
		agent.GET("/history", r.handler.History)
		agent.POST("/conversations", r.handler.NewConversation)
		agent.GET("/conversations/:id", r.handler.GetConversation)
	}

	tools := api.Group("/tools")
	{
		tools.GET("", r.handler.ListTools)
		tools.POST("/call", r.handler.CallTool)
	}

	products := api.Group("/products")
	{
		products.GET("", r.handler.ListProducts)
		products.POST("", r.handler.SaveProduct)
		products.GET("/:sku", r.handler.GetProduct)
	}

	stock := api.Group("/stock")
	{
		stock.GET("", r.handler.ListStock)
		stock.GET("/:sku", r.handler.GetStock)
		stock.PUT("/:sku", r.handler.UpdateStock)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", r.handler.ListOrders)
		orders.POST("", r.handler.PlaceOrder)
		orders.GET("/:id", r.handler.GetOrder)
		orders.PUT("/:id/status", r.handler.UpdateOrderStatus)
	}

	sales := api.Group("/sales")
	{
		sales.GET("", r.handler.ListSales)
		sales.POST("", r.handler.RecordSale)
		sales.GET("/:sku/daily", r.handler.DailySales)
	}

	api.GET("/inventory/soon-out-of-stock", r.handler.SoonOutOfStock)
}
