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

// Package conversation 跨任务的对话轮次存储
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retail-agent/pkg/config"
)

// Turn 一轮对话：用户请求与整理后的回答
type Turn struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Store 按会话 ID 追加与读取对话轮次
type Store interface {
	Append(ctx context.Context, conversationID string, turn Turn) error
	// List 返回最近 limit 轮（按时间正序）；limit<=0 返回全部
	List(ctx context.Context, conversationID string, limit int) ([]Turn, error)
}

// MemoryStore 内存实现
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, turn Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.turns[conversationID] = append(s.turns[conversationID], turn)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, conversationID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.turns[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]Turn(nil), all...), nil
}

// NewStore 根据配置创建存储
func NewStore(ctx context.Context, cfg config.ConversationConfig) (Store, func(), error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), func() {}, nil
	case "postgres":
		pg, err := NewPgStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("未知的对话存储类型: %s", cfg.Type)
	}
}
