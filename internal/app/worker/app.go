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
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"retail-agent/internal/app"
	"retail-agent/pkg/tracing"
)

// defaultSweepInterval worker 进程未配置 agent.sweep.interval 时使用
const defaultSweepInterval = time.Hour

// App 补货 Worker：独立进程中定时执行补货巡检
type App struct {
	bootstrap *app.Bootstrap
	scheduler *Scheduler
	tracer    *sdktrace.TracerProvider
}

// NewApp 创建 Worker 应用
func NewApp(b *app.Bootstrap) (*App, error) {
	interval := defaultSweepInterval
	if s := b.Config.Agent.Sweep.Interval; s != "" {
		d, err := time.ParseDuration(s)
		if err == nil && d > 0 {
			interval = d
		}
	}
	a := &App{bootstrap: b, scheduler: NewScheduler(b.Sweeper, interval, b.Logger)}

	tc := b.Config.Monitoring.Tracing
	if tc.Enable {
		endpoint := tc.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint != "" {
			name := tc.ServiceName
			if name == "" {
				name = "retail-agent"
			}
			tp, err := tracing.InitTracer(tracing.OTelConfig{
				ServiceName:    name + "-worker",
				ExportEndpoint: endpoint,
				Insecure:       tc.Insecure,
			})
			if err != nil {
				b.Logger.Warn("链路追踪初始化失败", "error", err)
			} else {
				a.tracer = tp
			}
		}
	}
	return a, nil
}

// Start 启动巡检循环
func (a *App) Start() error {
	a.bootstrap.Logger.Info("启动 worker 应用")
	a.scheduler.Start(context.Background())
	return nil
}

// Shutdown 停止巡检并释放资源
func (a *App) Shutdown(ctx context.Context) error {
	a.bootstrap.Logger.Info("关闭 worker 应用")
	a.scheduler.Stop()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.bootstrap.Logger.Error("关闭 tracer 失败", "error", err)
		}
	}
	a.bootstrap.Close()
	return nil
}
