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

package builtin

import (
	"retail-agent/internal/inventory"
	"retail-agent/internal/tool"
	"retail-agent/internal/tool/registry"
)

// InventoryTools 全部库存工具
func InventoryTools(svc *inventory.Service) []tool.Tool {
	return []tool.Tool{
		&SoonOutOfStockTool{svc: svc},
		&StockLevelsTool{svc: svc},
		&StockLevelTool{svc: svc},
		&DailySalesTool{svc: svc},
		&RecentSalesTool{svc: svc},
		&ListOrdersTool{svc: svc},
		&OrderProductTool{svc: svc},
		&OrderProductsTool{svc: svc},
		&UpdateOrderStatusTool{svc: svc},
		&UpdateStockTool{svc: svc},
		&RecommendTool{svc: svc},
	}
}

// RegisterInventory 将库存工具注册到 Registry
func RegisterInventory(reg *registry.Registry, svc *inventory.Service) {
	if reg == nil || svc == nil {
		return
	}
	for _, t := range InventoryTools(svc) {
		reg.Register(t)
	}
}
