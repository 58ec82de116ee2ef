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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"retail-agent/internal/api/http"
	"retail-agent/internal/api/http/middleware"
	"retail-agent/internal/app"
	"retail-agent/internal/app/worker"
	"retail-agent/pkg/secrets"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware 与可选的进程内补货巡检）
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
	scheduler    *worker.Scheduler
}

// Version 由 ldflags 注入
var Version = "dev"

// NewApp 创建 API 应用
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config

	handler := http.NewHandler(bootstrap.Inventory, bootstrap.Logger)
	handler.SetTools(bootstrap.Tools)
	if bootstrap.Agent != nil {
		handler.SetAgent(bootstrap.Agent)
	}
	handler.SetSweeper(bootstrap.Sweeper)
	if bootstrap.HistoryLister != nil {
		handler.SetHistory(bootstrap.HistoryLister)
	}
	handler.SetConversations(bootstrap.Conversations)
	handler.SetVersion(Version)

	router := http.NewRouter(handler)
	router.SetAudit(middleware.NewAuditMiddleware(middleware.NewLogAuditStore(bootstrap.Logger)))

	if cfg.API.Middleware.Auth {
		mw := cfg.API.Middleware
		key, err := secrets.Resolve(context.Background(), bootstrap.Secrets, mw.JWTKey)
		if err != nil {
			return nil, fmt.Errorf("解析 jwt_key 失败: %w", err)
		}
		users := make(map[string]string, len(mw.Users))
		for name, pw := range mw.Users {
			if users[name], err = secrets.Resolve(context.Background(), bootstrap.Secrets, pw); err != nil {
				return nil, fmt.Errorf("解析用户 %s 的密码失败: %w", name, err)
			}
		}
		timeout := parseDuration(mw.JWTTimeout, time.Hour)
		maxRefresh := parseDuration(mw.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(key), timeout, maxRefresh, users)
		if err != nil {
			bootstrap.Logger.Warn("JWT 初始化失败，将跳过认证", "error", err)
		} else {
			router.SetJWT(jwtAuth)
			bootstrap.Logger.Info("JWT 认证已启用", "users", len(users))
		}
	}

	appObj := &App{config: bootstrap, router: router}
	if interval := parseDuration(cfg.Agent.Sweep.Interval, 0); interval > 0 {
		appObj.scheduler = worker.NewScheduler(bootstrap.Sweeper, interval, bootstrap.Logger)
	}
	return appObj, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.config.Config
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）；provider 同时注册为全局 TracerProvider，会话/模型/工具 span 一并导出
	a.hertz = nil
	if tc := cfg.Monitoring.Tracing; tc.Enable {
		serviceName := tc.ServiceName
		if serviceName == "" {
			serviceName = "retail-agent"
		}
		exportEndpoint := tc.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if tc.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
			a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		}
	}
	if a.hertz == nil {
		a.hertz = a.router.Build(addr)
	}

	if a.scheduler != nil {
		a.scheduler.Start(context.Background())
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	a.config.Close()
	return nil
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
