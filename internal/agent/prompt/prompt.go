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

// Package prompt 组装系统提示、带历史的会话提示与每轮迭代提示
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"retail-agent/internal/agent/callparse"
	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/sanitize"
	"retail-agent/internal/agent/session"
	"retail-agent/internal/toolclient"
)

// MaxResultRunes 回顾中每条工具结果保留的最大字符数
const MaxResultRunes = 400

// System 系统提示：工具目录、调用语法与行为规则
func System(tools []toolclient.ToolInfo) string {
	var b strings.Builder
	b.WriteString("You are a retail inventory management assistant. You have access to the following tools:\n\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nTo use a tool, write one line per call:\n")
	fmt.Fprintf(&b, "%s tool_name(arg1=value1, arg2=\"text\", arg3=[\"a\", \"b\"])\n", callparse.CallMarker)
	b.WriteString("\nFor example:\n")
	fmt.Fprintf(&b, "%s get_products_soon_out_of_stock(days=5)\n", callparse.CallMarker)
	b.WriteString("\nRules:\n")
	b.WriteString("- Never invent SKUs, quantities or any other value that was not returned by a tool.\n")
	b.WriteString("- Do not repeat a tool call that has already been made with the same arguments.\n")
	b.WriteString("- You may make several tool calls in one reply; they run in the order written.\n")
	fmt.Fprintf(&b, "- Write %s only once the task is fully done, after your final answer.\n", sanitize.CompletionMarker)
	b.WriteString("- Do not repeat tool call lines in your final answer.\n")
	return b.String()
}

// WithHistory 系统提示 + 历史轮次 + 当前任务，以 "Assistant:" 结尾
func WithHistory(system string, turns []conversation.Turn, task string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(system, "\n"))
	b.WriteString("\n\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\n\n", t.Query)
		fmt.Fprintf(&b, "Assistant: %s\n\n", sanitize.Clean(t.Response))
	}
	fmt.Fprintf(&b, "User: %s\n\nAssistant:", task)
	return b.String()
}

// Iteration 第 0 轮返回 base；之后追加已执行工具的回顾与最近一次推理
func Iteration(base string, s *session.Session) string {
	if s.Iteration == 0 {
		return base
	}
	tools := s.ToolActions()
	note, hasNote := s.LastReasoning()
	if len(tools) == 0 && !hasNote {
		return base
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "Assistant:"))
	if len(tools) > 0 {
		b.WriteString("[Actions already performed in this session]\n")
		for i, a := range tools {
			fmt.Fprintf(&b, "%d. %s(%s)\n", i+1, a.Tool, RenderArgs(a.Args))
			if a.IsError {
				fmt.Fprintf(&b, "   failed: %s\n", Truncate(a.Result, MaxResultRunes))
			} else {
				fmt.Fprintf(&b, "   result: %s\n", Truncate(a.Result, MaxResultRunes))
			}
		}
		b.WriteString("Do not repeat any of the actions above. Use their results, call other tools if more data is needed, ")
		fmt.Fprintf(&b, "or give the final answer followed by %s.\n\n", sanitize.CompletionMarker)
	}
	if hasNote {
		fmt.Fprintf(&b, "[Your previous reasoning]\n%s\n\n", Truncate(strings.TrimSpace(note), MaxResultRunes))
	}
	b.WriteString("Assistant:")
	return b.String()
}

// RenderArgs 以键排序的 JSON 渲染参数，结果稳定
func RenderArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

// Truncate 按字符截断，超出时追加省略号
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
