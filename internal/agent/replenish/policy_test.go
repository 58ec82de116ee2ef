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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	cases := []struct {
		stock int
		want  int
	}{
		{0, 300},
		{10, 290},
		{19, 281},
		{20, 180},
		{30, 170},
		{49, 151},
		{50, 100},
		{100, 50},
		{150, 0},
		{200, 0},
		{-5, 305},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Recommend(c.stock), "stock=%d", c.stock)
	}
}

func TestRecommend_Minimums(t *testing.T) {
	// 各段下限
	for s := 0; s < 20; s++ {
		assert.GreaterOrEqual(t, Recommend(s), 100)
	}
	for s := 20; s < 50; s++ {
		assert.GreaterOrEqual(t, Recommend(s), 50)
	}
	for s := 50; s < 400; s++ {
		assert.GreaterOrEqual(t, Recommend(s), 0)
	}
}

func TestDecide(t *testing.T) {
	d := Decide("SKU001", 30)
	assert.Equal(t, Decision{SKU: "SKU001", CurrentStock: 30, RecommendedQuantity: 170}, d)
}
