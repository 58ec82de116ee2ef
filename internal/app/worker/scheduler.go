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

package worker

import (
	"context"
	"sync"
	"time"

	"retail-agent/internal/agent/replenish"
	"retail-agent/pkg/log"
)

// SweepRunner 一次补货巡检
type SweepRunner interface {
	Run(ctx context.Context) ([]replenish.Action, error)
}

// Scheduler 按固定间隔运行补货巡检；同一时刻最多一次巡检在执行
type Scheduler struct {
	sweeper  SweepRunner
	interval time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler 创建调度器；interval <= 0 时 Start 不做任何事
func NewScheduler(sweeper SweepRunner, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// Start 启动后台循环，首次巡检在启动时立即执行
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("补货巡检已启动", "interval", s.interval.String())
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	actions, err := s.sweeper.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("补货巡检失败", "error", err)
		}
		return
	}
	ordered, failed := 0, 0
	for _, a := range actions {
		switch {
		case a.Type == replenish.ActionStockOrder && a.Success:
			ordered++
		case a.Type == replenish.ActionError || (a.Type == replenish.ActionStockOrder && !a.Success):
			failed++
		}
	}
	s.logger.Info("补货巡检完成", "actions", len(actions), "ordered", ordered, "failed", failed,
		"duration_ms", time.Since(start).Milliseconds())
}

// Stop 停止循环并等待进行中的巡检返回
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
