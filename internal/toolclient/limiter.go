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

package toolclient

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig 单个 Tool 的限流配置
type LimitConfig struct {
	QPS           float64
	MaxConcurrent int
	Burst         int // 为 0 时取 QPS
}

// RateLimiter Tool 维度的限流器，支持 QPS + 并发控制；多个会话共享
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*toolLimiter
	defaults LimitConfig
}

type toolLimiter struct {
	rate      *rate.Limiter
	semaphore chan struct{}
}

// NewRateLimiter 创建限流器；未配置的工具使用 defaults，defaults 为 nil 时不限流
func NewRateLimiter(configs map[string]LimitConfig, defaults *LimitConfig) *RateLimiter {
	l := &RateLimiter{limiters: make(map[string]*toolLimiter)}
	if defaults != nil {
		l.defaults = *defaults
	}
	for name, cfg := range configs {
		l.limiters[name] = newToolLimiter(cfg)
	}
	return l
}

func newToolLimiter(cfg LimitConfig) *toolLimiter {
	tl := &toolLimiter{}
	if cfg.QPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.QPS)
		}
		if burst < 1 {
			burst = 1
		}
		tl.rate = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	if cfg.MaxConcurrent > 0 {
		tl.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return tl
}

func (l *RateLimiter) get(name string) *toolLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl, ok := l.limiters[name]
	if !ok {
		tl = newToolLimiter(l.defaults)
		l.limiters[name] = tl
	}
	return tl
}

// Wait 阻塞直到可以执行；成功后必须调用 Release
func (l *RateLimiter) Wait(ctx context.Context, name string) error {
	tl := l.get(name)
	if tl.rate != nil {
		if err := tl.rate.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if tl.semaphore != nil {
		select {
		case tl.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot
func (l *RateLimiter) Release(name string) {
	tl := l.get(name)
	if tl.semaphore == nil {
		return
	}
	select {
	case <-tl.semaphore:
	default:
	}
}
