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

package app

import (
	"context"
	"fmt"
	"time"

	"retail-agent/internal/agent"
	"retail-agent/internal/agent/conversation"
	"retail-agent/internal/agent/history"
	"retail-agent/internal/agent/replenish"
	"retail-agent/internal/inventory"
	"retail-agent/internal/model/llm"
	"retail-agent/internal/storage/cache"
	"retail-agent/internal/tool/builtin"
	"retail-agent/internal/tool/registry"
	"retail-agent/internal/toolclient"
	"retail-agent/pkg/config"
	"retail-agent/pkg/log"
	"retail-agent/pkg/secrets"
)

// Bootstrap 统一初始化：库存、工具、历史记录、对话存储、模型与 Agent，供 cmd/api 使用
type Bootstrap struct {
	Config        *config.Config
	Logger        *log.Logger
	Secrets       secrets.Store
	Inventory     *inventory.Service
	Tools         *registry.Registry
	ToolOpener    toolclient.Opener
	History       *history.Recorder
	HistoryLister history.Lister
	Conversations conversation.Store
	Model         llm.Client
	Agent         *agent.Agent // 未配置 model.defaults.llm 时为 nil
	Sweeper       *replenish.Sweeper

	closers []func()
}

// NewBootstrap 根据配置创建 Bootstrap；失败时已创建的资源会被释放
func NewBootstrap(ctx context.Context, cfg *config.Config) (_ *Bootstrap, err error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	b := &Bootstrap{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	b.Secrets, err = secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store 失败: %w", err)
	}

	if err = b.initInventory(ctx); err != nil {
		return nil, err
	}

	b.Tools = registry.New()
	builtin.RegisterInventory(b.Tools, b.Inventory)
	if b.ToolOpener, err = b.newToolOpener(ctx); err != nil {
		return nil, err
	}

	sink, err := history.NewSinkFromConfig(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("初始化历史记录失败: %w", err)
	}
	b.History = history.NewRecorder(sink, logger)
	b.HistoryLister, _ = sink.Lister()
	b.closers = append(b.closers, func() { _ = b.History.Close() })

	convStore, closeConv, err := conversation.NewStore(ctx, cfg.Conversation)
	if err != nil {
		return nil, fmt.Errorf("初始化对话存储失败: %w", err)
	}
	b.Conversations = convStore
	b.closers = append(b.closers, closeConv)

	b.Model, err = NewLLMClientFromConfig(ctx, cfg, b.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化 LLM 失败: %w", err)
	}
	if b.Model != nil {
		b.Agent = agent.New(b.Model, b.ToolOpener,
			agent.WithMaxIterations(cfg.Agent.MaxIterations),
			agent.WithMaxModelFailures(cfg.Agent.MaxModelFailures),
			agent.WithDuplicateGuard(cfg.Agent.RejectDuplicateCalls),
			agent.WithGenerateOptions(generateOptions(cfg.Agent.Generation)),
			agent.WithHistory(b.History),
			agent.WithLogger(logger),
		)
		logger.Info("Agent 已初始化", "provider", b.Model.Provider(), "model", b.Model.Model())
	} else {
		logger.Warn("未配置 model.defaults.llm，/api/agent/query 不可用")
	}

	b.Sweeper = replenish.NewSweeper(b.ToolOpener,
		replenish.WithDays(cfg.Agent.Sweep.Days),
		replenish.WithRecorder(b.History),
		replenish.WithLogger(logger),
	)
	return b, nil
}

func (b *Bootstrap) initInventory(ctx context.Context) error {
	cfg := b.Config
	var store inventory.Store
	switch cfg.Inventory.Type {
	case "", "memory":
		store = inventory.NewMemoryStore()
	case "postgres":
		pg, err := inventory.NewPgStore(ctx, cfg.Inventory.DSN)
		if err != nil {
			return fmt.Errorf("初始化库存存储失败: %w", err)
		}
		store = pg
	default:
		return fmt.Errorf("未知的库存存储类型: %s", cfg.Inventory.Type)
	}
	b.closers = append(b.closers, store.Close)
	if cfg.Inventory.Seed {
		if err := inventory.SeedDemo(ctx, store); err != nil {
			return fmt.Errorf("写入示例商品失败: %w", err)
		}
	}

	var opts []inventory.ServiceOption
	if cfg.Cache.Type != "none" {
		c, err := cache.NewCache(ctx, cfg.Cache)
		if err != nil {
			return fmt.Errorf("初始化缓存失败: %w", err)
		}
		b.closers = append(b.closers, func() { _ = c.Close() })
		opts = append(opts, inventory.WithCache(c, parseDuration(cfg.Cache.TTL, 5*time.Minute)))
	}
	b.Inventory = inventory.NewService(store, b.Logger, opts...)
	return nil
}

func (b *Bootstrap) newToolOpener(ctx context.Context) (toolclient.Opener, error) {
	tc := b.Config.Agent.Tools
	switch tc.Transport {
	case "", "local":
		var limiter *toolclient.RateLimiter
		if len(b.Config.RateLimits.Tools) > 0 {
			limits := make(map[string]toolclient.LimitConfig, len(b.Config.RateLimits.Tools))
			for name, l := range b.Config.RateLimits.Tools {
				limits[name] = toolclient.LimitConfig{QPS: l.QPS, MaxConcurrent: l.MaxConcurrent, Burst: l.Burst}
			}
			limiter = toolclient.NewRateLimiter(limits, nil)
		}
		return toolclient.LocalOpener{Registry: b.Tools, Limiter: limiter}, nil
	case "http":
		token, err := secrets.Resolve(ctx, b.Secrets, tc.Token)
		if err != nil {
			return nil, err
		}
		return toolclient.HTTPOpener{BaseURL: tc.BaseURL, Timeout: parseDuration(tc.Timeout, 10*time.Second), Token: token}, nil
	default:
		return nil, fmt.Errorf("未知的工具传输方式: %s", tc.Transport)
	}
}

func generateOptions(g config.GenerationConfig) llm.GenerateOptions {
	opts := agent.DefaultGenerateOptions()
	if g.MaxTokens > 0 {
		opts.MaxTokens = g.MaxTokens
	}
	if g.Temperature != nil && *g.Temperature >= 0 {
		opts.Temperature = *g.Temperature
	}
	if len(g.Stop) > 0 {
		opts.Stop = g.Stop
	}
	return opts
}

// Close 按创建的逆序释放资源
func (b *Bootstrap) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
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
