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

package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/tool"
)

type stubTool struct{ name string }

func (s stubTool) Name() string        { return s.name }
func (s stubTool) Description() string { return "stub " + s.name }
func (s stubTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }
func (s stubTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	return tool.OK(s.name), nil
}

func TestRegistry_RegisterGetList(t *testing.T) {
	r := New()
	r.Register(stubTool{"order_product"})
	r.Register(stubTool{"get_stock_levels"})

	got, ok := r.Get("order_product")
	require.True(t, ok)
	assert.Equal(t, "order_product", got.Name())
	_, ok = r.Get("missing")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "get_stock_levels", list[0].Name())
	assert.Equal(t, "order_product", list[1].Name())
}

func TestRegistry_SchemasJSON(t *testing.T) {
	r := New()
	r.Register(stubTool{"b"})
	r.Register(stubTool{"a"})
	raw, err := r.SchemasJSON()
	require.NoError(t, err)
	var ds []Descriptor
	require.NoError(t, json.Unmarshal(raw, &ds))
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].Name)
	assert.Equal(t, "stub a", ds[0].Description)
	assert.Equal(t, "object", ds[0].Parameters.Type)
}
