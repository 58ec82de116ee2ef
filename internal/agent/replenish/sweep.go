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

package replenish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"retail-agent/internal/agent/history"
	"retail-agent/internal/toolclient"
	"retail-agent/pkg/log"
	"retail-agent/pkg/metrics"
)

// ActionType 巡检动作类型
type ActionType string

const (
	ActionStockOrder  ActionType = "stock_order"
	ActionStatusCheck ActionType = "status_check"
	ActionError       ActionType = "error"
)

// Action 巡检中的一个动作
type Action struct {
	Type            ActionType `json:"type"`
	Product         string     `json:"product,omitempty"`
	SKU             string     `json:"sku,omitempty"`
	CurrentStock    int        `json:"current_stock,omitempty"`
	OrderedQuantity int        `json:"ordered_quantity,omitempty"`
	Reason          string     `json:"reason"`
	Success         bool       `json:"success"`
}

// Sweeper 不经过模型的自动补货：找出即将缺货的商品，按 Recommend 下单
type Sweeper struct {
	opener   toolclient.Opener
	days     int
	recorder *history.Recorder
	logger   *log.Logger
}

// SweeperOption 可选配置
type SweeperOption func(*Sweeper)

// WithDays 缺货判断的销量窗口（天）
func WithDays(days int) SweeperOption {
	return func(s *Sweeper) {
		if days > 0 {
			s.days = days
		}
	}
}

// WithRecorder 下单结果写入历史
func WithRecorder(r *history.Recorder) SweeperOption {
	return func(s *Sweeper) { s.recorder = r }
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

// NewSweeper 创建 Sweeper
func NewSweeper(opener toolclient.Opener, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{opener: opener, days: 3}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	return s
}

// Run 执行一次巡检；单个商品失败记为 error 动作并继续。只有打开工具客户端失败会返回 error
func (s *Sweeper) Run(ctx context.Context) ([]Action, error) {
	client, err := s.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("打开工具客户端失败: %w", err)
	}
	defer client.Close()

	res := client.Call(ctx, "get_products_soon_out_of_stock", map[string]any{"days": s.days})
	if res.IsError {
		s.logger.Warn("获取缺货风险商品失败", "error", res.Error)
		return []Action{{Type: ActionError, Reason: "inventory check failed: " + res.Error}}, nil
	}
	products, ok := res.Value.([]any)
	if !ok || len(products) == 0 {
		s.logger.Info("没有缺货风险商品")
		return []Action{{Type: ActionStatusCheck, Reason: "no products at risk", Success: true}}, nil
	}

	s.logger.Info("发现缺货风险商品", "count", len(products))
	var actions []Action
	for _, p := range products {
		m, _ := p.(map[string]any)
		sku, _ := m["sku"].(string)
		if sku == "" {
			continue
		}
		name, _ := m["name"].(string)
		actions = append(actions, s.replenish(ctx, client, sku, name))
	}
	return actions, nil
}

func (s *Sweeper) replenish(ctx context.Context, client toolclient.Client, sku, name string) Action {
	stockRes := client.Call(ctx, "get_stock_level_for_product", map[string]any{"sku": sku})
	if stockRes.IsError {
		metrics.SweepOrderTotal.WithLabelValues("error").Inc()
		s.logger.Warn("读取库存失败", "sku", sku, "error", stockRes.Error)
		return Action{Type: ActionError, Product: name, SKU: sku, Reason: "stock lookup failed: " + stockRes.Error}
	}
	stock, ok := numberField(stockRes.Value, "stock_on_hand")
	if !ok {
		metrics.SweepOrderTotal.WithLabelValues("error").Inc()
		return Action{Type: ActionError, Product: name, SKU: sku, Reason: "stock lookup returned no stock_on_hand"}
	}

	d := Decide(sku, stock)
	if d.RecommendedQuantity <= 0 {
		metrics.SweepOrderTotal.WithLabelValues("skipped").Inc()
		return Action{Type: ActionStatusCheck, Product: name, SKU: sku, CurrentStock: stock,
			Reason: fmt.Sprintf("stock sufficient (%d units)", stock), Success: true}
	}

	orderRes := client.Call(ctx, "order_product", map[string]any{"sku": sku, "quantity": d.RecommendedQuantity})
	action := Action{
		Type:            ActionStockOrder,
		Product:         name,
		SKU:             sku,
		CurrentStock:    stock,
		OrderedQuantity: d.RecommendedQuantity,
		Reason:          fmt.Sprintf("critical stock (%d units left)", stock),
		Success:         !orderRes.IsError,
	}
	if orderRes.IsError {
		metrics.SweepOrderTotal.WithLabelValues("error").Inc()
		action.Reason += ": " + orderRes.Error
		s.logger.Warn("自动下单失败", "sku", sku, "quantity", d.RecommendedQuantity, "error", orderRes.Error)
	} else {
		metrics.SweepOrderTotal.WithLabelValues("ordered").Inc()
		s.logger.Info("自动下单", "sku", sku, "current_stock", stock, "quantity", d.RecommendedQuantity)
	}
	s.recorder.Record("", history.TypeTool,
		fmt.Sprintf("order_product(sku=%s, quantity=%d) -> %s", sku, d.RecommendedQuantity, orderRes.String()))
	return action
}

// numberField 读取工具结果中的整数字段，兼容 json.Number、float64 与 int
func numberField(v any, key string) (int, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	switch n := m[key].(type) {
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
