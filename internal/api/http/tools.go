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

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"retail-agent/internal/toolclient"
)

// ListTools 工具目录；HTTPOpener 远程模式下 Agent 通过该接口发现工具
// GET /api/tools
func (h *Handler) ListTools(c context.Context, ctx *app.RequestContext) {
	if h.tools == nil {
		unavailable(ctx, "tool registry")
		return
	}
	ctx.JSON(consts.StatusOK, toolclient.ListResponse{Tools: toolclient.Infos(h.tools)})
}

// CallTool 执行单个工具，工具自身失败以 is_error=true 返回 200
// POST /api/tools/call
func (h *Handler) CallTool(c context.Context, ctx *app.RequestContext) {
	if h.tools == nil {
		unavailable(ctx, "tool registry")
		return
	}
	var req toolclient.CallRequest
	if err := ctx.BindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(ctx, "name is required")
		return
	}
	t, ok := h.tools.Get(req.Name)
	if !ok {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "unknown tool: " + req.Name})
		return
	}
	ctx.JSON(consts.StatusOK, toolclient.ExecuteRaw(c, t, req.Arguments))
}
