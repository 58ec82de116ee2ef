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

package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamSink 以 XADD 追加到 Redis Stream，按 MaxLen 近似裁剪
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink 连接 Redis
func NewRedisStreamSink(ctx context.Context, addr, password string, db int, stream string, maxLen int64) (*RedisStreamSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewRedisStreamSinkWithClient(client, stream, maxLen), nil
}

// NewRedisStreamSinkWithClient 复用已有 client
func NewRedisStreamSinkWithClient(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = "agent:history"
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Write(ctx context.Context, rec Record) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":         rec.ID,
			"session_id": rec.SessionID,
			"timestamp":  rec.Timestamp.Format(time.RFC3339Nano),
			"response":   rec.Response,
			"type":       string(rec.Type),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.client.XAdd(ctx, args).Err()
}

func (s *RedisStreamSink) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(msgs))
	for _, m := range msgs {
		rec := Record{
			ID:        fieldString(m.Values, "id"),
			SessionID: fieldString(m.Values, "session_id"),
			Response:  fieldString(m.Values, "response"),
			Type:      Type(fieldString(m.Values, "type")),
		}
		if ts, err := time.Parse(time.RFC3339Nano, fieldString(m.Values, "timestamp")); err == nil {
			rec.Timestamp = ts
		}
		out = append(out, rec)
	}
	return out, nil
}

func fieldString(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func (s *RedisStreamSink) Close() error {
	return s.client.Close()
}
