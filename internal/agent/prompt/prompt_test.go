package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/session"
	"retail-agent/internal/toolclient"
)

func TestSystem(t *testing.T) {
	p := System([]toolclient.ToolInfo{
		{Name: "get_stock_levels", Description: "List stock levels"},
		{Name: "order_product", Description: "Place an order"},
	})
	assert.Contains(t, p, "- get_stock_levels: List stock levels\n")
	assert.Contains(t, p, "- order_product: Place an order\n")
	assert.Contains(t, p, "TOOL_CALL:")
	assert.Contains(t, p, "TASK_COMPLETE")
	assert.Contains(t, p, "Never invent")
	assert.Contains(t, p, "Do not repeat")
}

func TestWithHistory(t *testing.T) {
	turns := []conversation.Turn{
		{Query: "What is low?", Response: "SKU004 is low.\nTOOL_CALL: x()\nTASK_COMPLETE", Timestamp: time.Now()},
	}
	p := WithHistory("SYSTEM", turns, "Order it.")
	assert.Equal(t, "SYSTEM\n\nUser: What is low?\n\nAssistant: SKU004 is low.\n\nUser: Order it.\n\nAssistant:", p)
}

func TestIteration_FirstRoundUnchanged(t *testing.T) {
	s := session.New("s", "task", nil)
	assert.Equal(t, "BASE\nAssistant:", Iteration("BASE\nAssistant:", s))
}

func TestIteration_Recap(t *testing.T) {
	s := session.New("s", "task", nil)
	long := strings.Repeat("x", MaxResultRunes+50)
	s.AddToolResult(0, "get_stock_level_for_product", map[string]any{"sku": "SKU001"}, `{"sku":"SKU001","stock_on_hand":12}`, false)
	s.AddToolResult(1, "order_product", map[string]any{"sku": "SKU001", "quantity": 288}, long, false)
	s.AddToolResult(2, "order_product", map[string]any{"sku": "NOPE", "quantity": 1}, "error: product NOPE: not found", true)
	s.Iteration = 1

	p := Iteration("BASE\n\nUser: task\n\nAssistant:", s)
	assert.True(t, strings.HasSuffix(p, "Assistant:"))
	assert.Equal(t, 1, strings.Count(p, "Assistant:"))

	first := strings.Index(p, `1. get_stock_level_for_product({"sku":"SKU001"})`)
	second := strings.Index(p, `2. order_product({"quantity":288,"sku":"SKU001"})`)
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, p, "result: "+strings.Repeat("x", MaxResultRunes)+"...")
	assert.NotContains(t, p, strings.Repeat("x", MaxResultRunes+1))
	assert.Contains(t, p, "failed: error: product NOPE: not found")
	assert.Contains(t, p, "Do not repeat any of the actions above")
}

func TestIteration_ReasoningNote(t *testing.T) {
	s := session.New("s", "task", nil)
	s.AddReasoning("I should check the stock first.")
	s.Iteration = 1
	p := Iteration("BASE\nAssistant:", s)
	assert.Contains(t, p, "[Your previous reasoning]\nI should check the stock first.")
	assert.NotContains(t, p, "Actions already performed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "库存...", Truncate("库存不足", 2))
}
