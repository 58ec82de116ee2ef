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

import "context"

// DemoCatalog 本地开发用的小型商品目录
var DemoCatalog = []struct {
	Product
	Stock int
}{
	{Product{SKU: "SKU001", Name: "Whole Milk 1L", Category: "Dairy", Price: 1.29}, 12},
	{Product{SKU: "SKU002", Name: "Sourdough Bread", Category: "Bakery", Price: 3.49}, 35},
	{Product{SKU: "SKU003", Name: "Free Range Eggs x12", Category: "Dairy", Price: 4.10}, 80},
	{Product{SKU: "SKU004", Name: "Bananas 1kg", Category: "Produce", Price: 1.99}, 5},
	{Product{SKU: "SKU005", Name: "Ground Coffee 250g", Category: "Pantry", Price: 6.75}, 140},
}

// SeedDemo 写入 DemoCatalog；已存在的商品会被覆盖
func SeedDemo(ctx context.Context, store Store) error {
	for _, item := range DemoCatalog {
		if err := store.UpsertProduct(ctx, item.Product); err != nil {
			return err
		}
		if err := store.SetStockLevel(ctx, item.SKU, item.Stock); err != nil {
			return err
		}
	}
	return nil
}
