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

package tool

import (
	"context"
)

// Schema 工具参数的 JSON Schema
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Items       *SchemaProperty `json:"items,omitempty"`
	Default     any             `json:"default,omitempty"`
}

// ToolResult 工具执行结果；Value 为可 JSON 序列化的结构化输出，Err 非空表示业务失败
type ToolResult struct {
	Value any    `json:"value,omitempty"`
	Err   string `json:"error,omitempty"`
}

// OK 成功结果
func OK(v any) ToolResult { return ToolResult{Value: v} }

// Fail 业务失败结果
func Fail(msg string) ToolResult { return ToolResult{Err: msg} }

// Tool 可被 Agent 调用的工具
// Execute 返回 error 仅表示基础设施故障，参数或业务错误放在 ToolResult.Err
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, input map[string]any) (ToolResult, error)
}
