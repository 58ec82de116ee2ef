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

package http

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"retail-agent/internal/agent"
	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/history"
	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/inventory"
	"retail-agent/internal/tool/registry"
	"retail-agent/pkg/errors"
	"retail-agent/pkg/log"
)

// AgentRunner 执行一次 Agent 任务
type AgentRunner interface {
	Run(ctx context.Context, sessionID, task string, turns []conversation.Turn) (*agent.RunResult, error)
}

// SweepRunner 执行一次自动补货巡检
type SweepRunner interface {
	Run(ctx context.Context) ([]replenish.Action, error)
}

// Handler HTTP 处理器；依赖通过 Set* 注入，未注入的功能返回 503
type Handler struct {
	inventory     *inventory.Service
	tools         *registry.Registry
	agent         AgentRunner
	sweeper       SweepRunner
	history       history.Lister
	conversations conversation.Store
	logger        *log.Logger
	version       string
}

// NewHandler 创建处理器
func NewHandler(svc *inventory.Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{inventory: svc, logger: logger, version: "dev"}
}

// SetTools 注入工具注册表（/api/tools）
func (h *Handler) SetTools(reg *registry.Registry) { h.tools = reg }

// SetAgent 注入 Agent
func (h *Handler) SetAgent(a AgentRunner) { h.agent = a }

// SetSweeper 注入补货巡检
func (h *Handler) SetSweeper(s SweepRunner) { h.sweeper = s }

// SetHistory 注入历史记录读取
func (h *Handler) SetHistory(l history.Lister) { h.history = l }

// SetConversations 注入多轮对话存储
func (h *Handler) SetConversations(s conversation.Store) { h.conversations = s }

// SetVersion 设置 /api/health 返回的版本号
func (h *Handler) SetVersion(v string) { h.version = v }

// writeError 按错误类别映射状态码
func (h *Handler) writeError(ctx *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, errors.ErrInvalidArg):
		status = consts.StatusBadRequest
	case errors.Is(err, errors.ErrConflict):
		status = consts.StatusConflict
	default:
		h.logger.Error("请求处理失败", "path", string(ctx.Path()), "error", err)
	}
	ctx.JSON(status, utils.H{"error": err.Error()})
}

func badRequest(ctx *app.RequestContext, msg string) {
	ctx.JSON(consts.StatusBadRequest, utils.H{"error": msg})
}

func unavailable(ctx *app.RequestContext, what string) {
	ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": what + " not configured"})
}

// queryInt 读取整数查询参数，缺省或非法时返回 def
func queryInt(ctx *app.RequestContext, key string, def int) int {
	v := ctx.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{
		"status":  "ok",
		"service": "retail-agent",
		"version": h.version,
		"agent":   h.agent != nil,
	})
}
