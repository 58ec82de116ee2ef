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

// Package session 单次任务执行的状态：任务、历史轮次与按序记录的动作
package session

import (
	"time"

	"github.com/google/uuid"

	"retail-agent/internal/agent/conversation"
)

// Kind 动作类型
type Kind string

const (
	KindReasoning Kind = "reasoning"
	KindTool      Kind = "tool"
)

// Status 会话结束状态
type Status string

const (
	StatusRunning          Status = "running"
	StatusCompleted        Status = "completed"
	StatusIterationLimit   Status = "iteration_limit"
	StatusEmptyCompletion  Status = "empty_completion"
	StatusModelUnavailable Status = "model_unavailable"
)

// ActionContext 一条已记录的步骤，追加后不再修改
type ActionContext struct {
	Kind      Kind           `json:"kind"`
	Text      string         `json:"text,omitempty"` // reasoning 的原始文本
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Result    string         `json:"result,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
	Seq       int            `json:"seq"` // 同一轮内的序号
	Iteration int            `json:"iteration"`
	At        time.Time      `json:"at"`
}

// Session 一次 Agent.Run 独占的状态，不在任务之间共享
type Session struct {
	ID             string
	Task           string
	History        []conversation.Turn
	Actions        []ActionContext
	Iteration      int
	Done           bool
	LastCompletion string
	Answer         string
	Status         Status
	StartedAt      time.Time
}

// New 创建会话；id 为空时自动生成
func New(id, task string, history []conversation.Turn) *Session {
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	return &Session{
		ID:        id,
		Task:      task,
		History:   history,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}

// AddReasoning 追加一条推理记录
func (s *Session) AddReasoning(text string) {
	s.Actions = append(s.Actions, ActionContext{
		Kind:      KindReasoning,
		Text:      text,
		Iteration: s.Iteration,
		At:        time.Now(),
	})
}

// AddToolResult 追加一条工具调用记录
func (s *Session) AddToolResult(seq int, tool string, args map[string]any, result string, isError bool) {
	s.Actions = append(s.Actions, ActionContext{
		Kind:      KindTool,
		Tool:      tool,
		Args:      args,
		Result:    result,
		IsError:   isError,
		Seq:       seq,
		Iteration: s.Iteration,
		At:        time.Now(),
	})
}

// ToolActions 按记录顺序返回全部工具动作
func (s *Session) ToolActions() []ActionContext {
	var out []ActionContext
	for _, a := range s.Actions {
		if a.Kind == KindTool {
			out = append(out, a)
		}
	}
	return out
}

// LastReasoning 最近一条推理文本
func (s *Session) LastReasoning() (string, bool) {
	for i := len(s.Actions) - 1; i >= 0; i-- {
		if s.Actions[i].Kind == KindReasoning {
			return s.Actions[i].Text, true
		}
	}
	return "", false
}

// Finish 标记结束
func (s *Session) Finish(status Status, answer string) {
	s.Done = true
	s.Status = status
	s.Answer = answer
}
