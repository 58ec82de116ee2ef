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

// Package toolclient 工具注册表客户端：列出工具、按名称调用并返回结构化结果
package toolclient

import (
	"context"
	"fmt"
)

// ToolInfo 工具的名称与描述
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Result 一次工具调用的结果；失败同样以 Result 表达，不会以 error 返回
type Result struct {
	Value   any    `json:"value,omitempty"` // 文本内容可解析为 JSON 时为解析结果，否则为原始文本
	Text    string `json:"text,omitempty"`
	IsError bool   `json:"is_error"`
	Error   string `json:"error,omitempty"`
}

// String 写入 prompt 与历史记录的文本形式
func (r Result) String() string {
	if r.IsError {
		if r.Error != "" {
			return "error: " + r.Error
		}
		return "error: " + r.Text
	}
	return r.Text
}

// ErrorResult 构造错误结果
func ErrorResult(format string, args ...any) Result {
	return Result{IsError: true, Error: fmt.Sprintf(format, args...)}
}

// Client 工具注册表会话；一个 Agent 会话独占一个 Client
type Client interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	// Call 调用工具；工具不存在、参数错误、执行失败与传输错误都体现在 Result.IsError
	Call(ctx context.Context, name string, args map[string]any) Result
	Close() error
}

// Opener 为每个会话打开新的 Client
type Opener interface {
	Open(ctx context.Context) (Client, error)
}

// OpenerFunc 函数适配为 Opener
type OpenerFunc func(ctx context.Context) (Client, error)

// Open 实现 Opener
func (f OpenerFunc) Open(ctx context.Context) (Client, error) { return f(ctx) }
