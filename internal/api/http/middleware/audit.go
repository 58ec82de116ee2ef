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

package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"retail-agent/pkg/log"
)

// AuditLog 一次变更类请求的审计记录
type AuditLog struct {
	User         string
	Action       string
	ResourceType string
	ResourceID   string
	Status       int
	DurationMS   int64
	CreatedAt    time.Time
}

// AuditStore 审计日志存储
type AuditStore interface {
	LogAccess(ctx context.Context, log AuditLog) error
}

// LogAuditStore 将审计记录写入结构化日志
type LogAuditStore struct {
	logger *log.Logger
}

// NewLogAuditStore 创建基于日志的审计存储
func NewLogAuditStore(logger *log.Logger) *LogAuditStore {
	return &LogAuditStore{logger: logger}
}

func (s *LogAuditStore) LogAccess(_ context.Context, a AuditLog) error {
	s.logger.Info("audit",
		"user", a.User,
		"action", a.Action,
		"resource_type", a.ResourceType,
		"resource_id", a.ResourceID,
		"status", a.Status,
		"duration_ms", a.DurationMS,
	)
	return nil
}

// AuditMiddleware 记录会修改库存或触发 Agent 的请求
type AuditMiddleware struct {
	auditStore AuditStore
}

// NewAuditMiddleware 创建审计中间件
func NewAuditMiddleware(auditStore AuditStore) *AuditMiddleware {
	return &AuditMiddleware{auditStore: auditStore}
}

// AuditAccess 只审计 POST/PUT/DELETE
func (a *AuditMiddleware) AuditAccess() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		method := string(c.Method())
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			c.Next(ctx)
			return
		}
		start := time.Now()
		c.Next(ctx)

		path := string(c.Path())
		resourceType, resourceID := extractResource(path)
		_ = a.auditStore.LogAccess(ctx, AuditLog{
			User:         UserFromContext(c),
			Action:       determineAction(method, path),
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Status:       c.Response.StatusCode(),
			DurationMS:   time.Since(start).Milliseconds(),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

// determineAction 根据方法与路径确定操作类型
func determineAction(method, path string) string {
	switch {
	case strings.HasPrefix(path, "/api/agent/query"):
		return "agent_query"
	case strings.HasPrefix(path, "/api/agent/replenish"):
		return "replenish_sweep"
	case strings.HasPrefix(path, "/api/tools/call"):
		return "call_tool"
	case strings.HasPrefix(path, "/api/orders") && strings.HasSuffix(path, "/status"):
		return "update_order_status"
	case strings.HasPrefix(path, "/api/orders"):
		return "place_order"
	case strings.HasPrefix(path, "/api/stock"):
		return "update_stock"
	case strings.HasPrefix(path, "/api/sales"):
		return "record_sale"
	case strings.HasPrefix(path, "/api/products"):
		return "save_product"
	}
	return strings.ToLower(method) + "_unknown"
}

// extractResource /api/<type>/<id>/... -> (type, id)
func extractResource(path string) (resourceType, resourceID string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 {
		resourceType = parts[1]
	}
	if len(parts) >= 3 {
		resourceID = parts[2]
	}
	return resourceType, resourceID
}
