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

// Package agent 编排循环：构建提示 -> 调用模型 -> 解析工具调用 -> 执行 -> 回填上下文，直到完成或达到迭代上限
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"retail-agent/internal/agent/callparse"
	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/history"
	"retail-agent/internal/agent/prompt"
	"retail-agent/internal/agent/sanitize"
	"retail-agent/internal/agent/session"
	"retail-agent/internal/model/llm"
	"retail-agent/internal/toolclient"
	"retail-agent/pkg/log"
	"retail-agent/pkg/metrics"
	"retail-agent/pkg/tracing"
)

type (
	Session       = session.Session
	ActionContext = session.ActionContext
	Status        = session.Status
)

const (
	DefaultMaxIterations    = 20
	DefaultMaxModelFailures = 3

	iterationLimitNote   = "(Stopped after reaching the iteration limit; the task may be incomplete.)"
	emptyCompletionReply = "Sorry, the model returned no answer for this request."
	modelDownReply       = "Sorry, the language model is currently unavailable. Please try again later."
)

// DefaultGenerateOptions 每次模型调用使用的固定参数
func DefaultGenerateOptions() llm.GenerateOptions {
	return llm.GenerateOptions{MaxTokens: 512, Temperature: 0.7, Stop: []string{"User:"}}
}

// RunResult Agent 单次 Run 的结果
type RunResult struct {
	SessionID  string          `json:"session_id"`
	Answer     string          `json:"answer"`
	Status     Status          `json:"status"`
	Iterations int             `json:"iterations"`
	Steps      []ActionContext `json:"steps"`
	Duration   time.Duration   `json:"duration"`
}

// Agent 持有模型、工具客户端工厂与循环参数；可被多个会话并发使用
type Agent struct {
	model            llm.Client
	opener           toolclient.Opener
	parser           *callparse.Parser
	recorder         *history.Recorder
	logger           *log.Logger
	maxIterations    int
	maxModelFailures int
	rejectDuplicates bool
	genOpts          llm.GenerateOptions
}

// AgentOption 可选配置
type AgentOption func(*Agent)

// WithMaxIterations 设置单次 Run 最大迭代次数
func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithMaxModelFailures 连续模型调用失败达到 n 次后结束会话
func WithMaxModelFailures(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxModelFailures = n
		}
	}
}

// WithDuplicateGuard 同一会话内拒绝执行工具名与参数完全相同的重复调用
func WithDuplicateGuard(enabled bool) AgentOption {
	return func(a *Agent) { a.rejectDuplicates = enabled }
}

// WithGenerateOptions 覆盖模型调用参数
func WithGenerateOptions(opts llm.GenerateOptions) AgentOption {
	return func(a *Agent) { a.genOpts = opts }
}

// WithHistory 设置历史记录器
func WithHistory(r *history.Recorder) AgentOption {
	return func(a *Agent) { a.recorder = r }
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

// New 创建 Agent
func New(model llm.Client, opener toolclient.Opener, opts ...AgentOption) *Agent {
	a := &Agent{
		model:            model,
		opener:           opener,
		maxIterations:    DefaultMaxIterations,
		maxModelFailures: DefaultMaxModelFailures,
		genOpts:          DefaultGenerateOptions(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.logger == nil {
		a.logger = log.Nop()
	}
	a.parser = callparse.New(callparse.WithLogger(a.logger))
	return a
}

// run 单次会话的可变状态，只在一个 Run 调用内使用
type run struct {
	sess     *session.Session
	client   toolclient.Client
	base     string
	seen     map[string]struct{}
	failures int
	logger   *log.Logger
}

// Run 执行一次任务。只有打开工具客户端或列出工具失败会返回 error，其余失败都体现在结果中
func (a *Agent) Run(ctx context.Context, sessionID, task string, turns []conversation.Turn) (*RunResult, error) {
	start := time.Now()
	sess := session.New(sessionID, task, turns)
	ctx, span := tracing.StartSessionSpan(ctx, sess.ID)
	var runErr error
	defer func() { tracing.EndWithError(span, runErr) }()

	logger := a.logger.With("session_id", sess.ID)

	client, err := a.opener.Open(ctx)
	if err != nil {
		runErr = fmt.Errorf("打开工具客户端失败: %w", err)
		return nil, runErr
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("关闭工具客户端失败", "error", err)
		}
	}()

	tools, err := client.ListTools(ctx)
	if err != nil {
		runErr = fmt.Errorf("获取工具列表失败: %w", err)
		return nil, runErr
	}

	r := &run{
		sess:   sess,
		client: client,
		base:   prompt.WithHistory(prompt.System(tools), turns, task),
		seen:   make(map[string]struct{}),
		logger: logger,
	}
	logger.Info("开始执行任务", "task", task, "tools", len(tools), "history_turns", len(turns))

	for !sess.Done && sess.Iteration < a.maxIterations {
		a.iterate(ctx, r)
	}
	if !sess.Done {
		answer := sanitize.Clean(sess.LastCompletion)
		if answer == "" {
			answer = iterationLimitNote
		} else {
			answer += "\n\n" + iterationLimitNote
		}
		sess.Finish(session.StatusIterationLimit, answer)
		logger.Warn("达到最大迭代次数", "max_iterations", a.maxIterations)
	}

	a.recorder.Record(sess.ID, history.TypeAnswer, sess.Answer)
	metrics.SessionTotal.WithLabelValues(string(sess.Status)).Inc()
	metrics.SessionIterations.Observe(float64(sess.Iteration))
	logger.Info("任务结束", "status", sess.Status, "iterations", sess.Iteration, "steps", len(sess.Actions))

	return &RunResult{
		SessionID:  sess.ID,
		Answer:     sess.Answer,
		Status:     sess.Status,
		Iterations: sess.Iteration,
		Steps:      sess.Actions,
		Duration:   time.Since(start),
	}, nil
}

// iterate 一轮 REASONING -> EXECUTING；无论结果如何迭代计数加一
func (a *Agent) iterate(ctx context.Context, r *run) {
	sess := r.sess
	defer func() { sess.Iteration++ }()

	text, err := a.generate(ctx, sess, prompt.Iteration(r.base, sess))
	if err != nil {
		r.failures++
		r.logger.Warn("模型调用失败", "iteration", sess.Iteration, "consecutive", r.failures, "error", err)
		if r.failures >= a.maxModelFailures {
			sess.Finish(session.StatusModelUnavailable, bestEffort(sess, modelDownReply))
			return
		}
		sess.AddReasoning("model call failed: " + err.Error())
		return
	}
	r.failures = 0

	if strings.TrimSpace(text) == "" {
		r.logger.Warn("模型返回空内容", "iteration", sess.Iteration)
		sess.Finish(session.StatusEmptyCompletion, bestEffort(sess, emptyCompletionReply))
		return
	}
	sess.LastCompletion = text

	parsed := a.parser.Parse(text)
	complete := sanitize.HasCompletion(text)
	cleaned := sanitize.Clean(text)
	if cleaned != "" {
		sess.Answer = cleaned
	}

	switch {
	case complete && !parsed.HasCalls():
		sess.Finish(session.StatusCompleted, cleaned)
	case parsed.HasCalls():
		a.execute(ctx, r, parsed.Calls)
		if complete {
			if cleaned == "" {
				cleaned = summarize(parsed.Calls)
			}
			sess.Finish(session.StatusCompleted, cleaned)
		}
	default:
		sess.AddReasoning(text)
	}
}

func (a *Agent) generate(ctx context.Context, sess *session.Session, p string) (string, error) {
	ctx, span := tracing.StartModelSpan(ctx, a.model.Provider(), a.model.Model(), sess.Iteration)
	text, err := a.model.GenerateWithContext(ctx, p, a.genOpts)
	tracing.EndWithError(span, err)
	return text, err
}

// execute 按解析顺序逐个调用工具；后续调用失败不回滚已执行的调用
func (a *Agent) execute(ctx context.Context, r *run, calls []callparse.ToolCall) {
	sess := r.sess
	for i, call := range calls {
		key := callKey(call)
		var res toolclient.Result
		if _, dup := r.seen[key]; dup && a.rejectDuplicates {
			metrics.ToolCallTotal.WithLabelValues(call.Name, "duplicate").Inc()
			res = toolclient.ErrorResult("duplicate call skipped: %s was already called with these arguments", call.Name)
		} else {
			r.seen[key] = struct{}{}
			res = r.client.Call(ctx, call.Name, call.Args)
		}
		text := res.String()
		sess.AddToolResult(i, call.Name, call.Args, text, res.IsError)
		a.recorder.Record(sess.ID, history.TypeTool, fmt.Sprintf("%s(%s) -> %s", call.Name, prompt.RenderArgs(call.Args), text))
		r.logger.Info("工具调用完成", "iteration", sess.Iteration, "seq", i, "tool", call.Name, "is_error", res.IsError)
	}
}

// callKey 工具名与规范化参数，用于识别重复调用
func callKey(call callparse.ToolCall) string {
	data, err := json.Marshal(call.Args)
	if err != nil {
		return call.Name + "|" + fmt.Sprint(call.Args)
	}
	return call.Name + "|" + string(data)
}

func summarize(calls []callparse.ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return "Executed: " + strings.Join(names, ", ") + "."
}

func bestEffort(sess *session.Session, fallback string) string {
	if sess.Answer != "" {
		return sess.Answer
	}
	return fallback
}
