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

// Package history 将 Agent 的回答与工具事件追加到外部日志；写入失败只记录日志，不影响调用方
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-agent/pkg/log"
	"retail-agent/pkg/metrics"
)

// Type 记录类型
type Type string

const (
	TypeAnswer Type = "answer"
	TypeTool   Type = "tool"
)

// Record 一条历史记录
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Response  string    `json:"response"`
	Type      Type      `json:"type"`
}

// Sink 历史记录写入端，须支持并发写入
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Lister 可按时间倒序读取最近记录的 Sink
type Lister interface {
	List(ctx context.Context, limit int) ([]Record, error)
}

const defaultWriteTimeout = 5 * time.Second

// Recorder 异步写入历史；Record 立即返回，记录按调用顺序由单个后台协程写入 sink
type Recorder struct {
	sink    Sink
	logger  *log.Logger
	timeout time.Duration

	mu       sync.Mutex
	idle     *sync.Cond
	queue    []Record
	draining bool
	closed   bool
}

// NewRecorder 创建 Recorder；sink 为 nil 时丢弃所有记录
func NewRecorder(sink Sink, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Nop()
	}
	r := &Recorder{sink: sink, logger: logger, timeout: defaultWriteTimeout}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// Record 追加一条记录（fire-and-forget）；Close 之后调用直接丢弃
func (r *Recorder) Record(sessionID string, typ Type, response string) {
	if r == nil || r.sink == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, Record{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Response:  response,
		Type:      typ,
	})
	if !r.draining {
		r.draining = true
		go r.drain()
	}
}

func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.idle.Broadcast()
			r.mu.Unlock()
			return
		}
		rec := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.write(rec)
	}
}

func (r *Recorder) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.Write(ctx, rec); err != nil {
		metrics.HistoryWriteFailTotal.WithLabelValues(r.sink.Name()).Inc()
		r.logger.Warn("历史记录写入失败", "sink", r.sink.Name(), "session_id", rec.SessionID, "type", string(rec.Type), "error", err)
	}
}

// Wait 等待已提交的写入完成
func (r *Recorder) Wait() {
	if r == nil || r.sink == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.draining {
		r.idle.Wait()
	}
}

// Close 拒绝新记录，等待已提交的写入完成后关闭 sink；重复调用只关闭一次
func (r *Recorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for r.draining {
		r.idle.Wait()
	}
	r.mu.Unlock()
	return r.sink.Close()
}
