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

// Package replenish 补货数量策略与自动补货巡检
package replenish

// 库存分段阈值与目标量
const (
	lowStockThreshold    = 20
	mediumStockThreshold = 50

	lowTarget     = 300
	lowMinimum    = 100
	mediumTarget  = 200
	mediumMinimum = 50
	highTarget    = 150
)

// Decision 单个商品的补货建议
type Decision struct {
	SKU                 string `json:"sku"`
	CurrentStock        int    `json:"current_stock"`
	RecommendedQuantity int    `json:"recommended_quantity"`
}

// Recommend 根据在库数量给出补货量：
// <20 补到 300 且至少 100；20..49 补到 200 且至少 50；>=50 补到 150，不足时为 0
func Recommend(stock int) int {
	switch {
	case stock < lowStockThreshold:
		return max(lowTarget-stock, lowMinimum)
	case stock < mediumStockThreshold:
		return max(mediumTarget-stock, mediumMinimum)
	default:
		return max(highTarget-stock, 0)
	}
}

// Decide 生成补货建议
func Decide(sku string, stock int) Decision {
	return Decision{SKU: sku, CurrentStock: stock, RecommendedQuantity: Recommend(stock)}
}
