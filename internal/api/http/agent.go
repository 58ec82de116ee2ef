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
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/agent/sanitize"
)

const maxConversationTurns = 10

// AgentQueryRequest POST /api/agent/query
type AgentQueryRequest struct {
	Task           string              `json:"task"`
	History        []conversation.Turn `json:"history,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
}

// AgentQuery 提交一个自然语言任务，返回回答与步骤
// POST /api/agent/query
func (h *Handler) AgentQuery(c context.Context, ctx *app.RequestContext) {
	if h.agent == nil {
		unavailable(ctx, "agent")
		return
	}
	var req AgentQueryRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	req.Task = strings.TrimSpace(req.Task)
	if req.Task == "" {
		badRequest(ctx, "task is required")
		return
	}

	turns := req.History
	if req.ConversationID != "" && h.conversations != nil && len(turns) == 0 {
		stored, err := h.conversations.List(c, req.ConversationID, maxConversationTurns)
		if err != nil {
			h.writeError(ctx, err)
			return
		}
		turns = stored
	}

	res, err := h.agent.Run(c, "", req.Task, turns)
	if err != nil {
		h.logger.Error("Agent 执行失败", "error", err)
		ctx.JSON(consts.StatusBadGateway, utils.H{"error": err.Error()})
		return
	}

	if req.ConversationID != "" && h.conversations != nil {
		turn := conversation.Turn{Query: req.Task, Response: sanitize.Clean(res.Answer), Timestamp: time.Now().UTC()}
		if err := h.conversations.Append(c, req.ConversationID, turn); err != nil {
			h.logger.Warn("保存对话轮次失败", "conversation_id", req.ConversationID, "error", err)
		}
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"session_id":      res.SessionID,
		"conversation_id": req.ConversationID,
		"answer":          res.Answer,
		"status":          res.Status,
		"iterations":      res.Iterations,
		"steps":           res.Steps,
		"duration_ms":     res.Duration.Milliseconds(),
	})
}

// NewConversation 分配一个对话 ID
// POST /api/agent/conversations
func (h *Handler) NewConversation(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusCreated, utils.H{"conversation_id": "conv-" + uuid.New().String()})
}

// GetConversation 读取对话轮次
// GET /api/agent/conversations/:id
func (h *Handler) GetConversation(c context.Context, ctx *app.RequestContext) {
	if h.conversations == nil {
		unavailable(ctx, "conversation store")
		return
	}
	id := ctx.Param("id")
	turns, err := h.conversations.List(c, id, queryInt(ctx, "limit", 0))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	ctx.JSON(consts.StatusOK, utils.H{"conversation_id": id, "turns": turns})
}

// Replenish 执行一次自动补货巡检
// POST /api/agent/replenish
func (h *Handler) Replenish(c context.Context, ctx *app.RequestContext) {
	if h.sweeper == nil {
		unavailable(ctx, "replenishment sweep")
		return
	}
	actions, err := h.sweeper.Run(c)
	if err != nil {
		ctx.JSON(consts.StatusBadGateway, utils.H{"error": err.Error()})
		return
	}
	ordered := 0
	for _, a := range actions {
		if a.Type == replenish.ActionStockOrder && a.Success {
			ordered++
		}
	}
	ctx.JSON(consts.StatusOK, utils.H{"actions": actions, "orders_placed": ordered})
}

// History 最近的 Agent 历史记录
// GET /api/agent/history?limit=50
func (h *Handler) History(c context.Context, ctx *app.RequestContext) {
	if h.history == nil {
		unavailable(ctx, "history listing")
		return
	}
	recs, err := h.history.List(c, queryInt(ctx, "limit", 50))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"records": recs, "total": len(recs)})
}
