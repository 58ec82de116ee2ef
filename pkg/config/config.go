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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Agent        AgentConfig        `mapstructure:"agent"`
	Model        ModelConfig        `mapstructure:"model"`
	Inventory    InventoryConfig    `mapstructure:"inventory"`
	Cache        CacheConfig        `mapstructure:"cache"`
	History      HistoryConfig      `mapstructure:"history"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Log          LogConfig          `mapstructure:"log"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	RateLimits   RateLimitsConfig   `mapstructure:"rate_limits"`
}

// RateLimitsConfig 限流配置（Tool + LLM）
type RateLimitsConfig struct {
	Tools map[string]ToolRateLimitConfig `mapstructure:"tools"`
	LLM   map[string]LLMRateLimitConfig  `mapstructure:"llm"`
}

// ToolRateLimitConfig 单个 Tool 的限流配置
type ToolRateLimitConfig struct {
	QPS           float64 `mapstructure:"qps"`
	MaxConcurrent int     `mapstructure:"max_concurrent"`
	Burst         int     `mapstructure:"burst"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// AgentConfig 编排循环配置
type AgentConfig struct {
	MaxIterations        int                 `mapstructure:"max_iterations"`         // <=0 使用默认 20
	MaxModelFailures     int                 `mapstructure:"max_model_failures"`     // 连续模型失败上限，<=0 使用默认 3
	RejectDuplicateCalls bool                `mapstructure:"reject_duplicate_calls"` // 同一会话内完全相同的工具调用不再执行
	Generation           GenerationConfig    `mapstructure:"generation"`
	Tools                ToolTransportConfig `mapstructure:"tools"`
	Sweep                SweepConfig         `mapstructure:"sweep"`
}

// GenerationConfig 每次模型调用的固定参数
type GenerationConfig struct {
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"` // 0 表示确定性解码，未设置时取默认值
	Stop        []string `mapstructure:"stop"`
}

// ToolTransportConfig 工具注册表客户端的传输方式
type ToolTransportConfig struct {
	Transport string `mapstructure:"transport"` // local | http
	BaseURL   string `mapstructure:"base_url"`  // transport=http 时的工具服务地址
	Timeout   string `mapstructure:"timeout"`   // 如 "10s"
	Token     string `mapstructure:"token"`     // 工具服务开启 JWT 时使用，支持 secret: 引用
}

// SweepConfig 自动补货巡检
type SweepConfig struct {
	Interval string `mapstructure:"interval"` // 为空或 "0" 时不在 API 进程内定时运行
	Days     int    `mapstructure:"days"`     // 统计销量的天数窗口，<=0 使用默认 3
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
	// Users 登录用户名到密码；密码可为 secret: 引用
	Users map[string]string `mapstructure:"users"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name          string  `mapstructure:"name"`
	ContextWindow int     `mapstructure:"context_window"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置，格式 "provider.model_key"
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// InventoryConfig 库存存储配置
type InventoryConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`  // type=postgres 时必填
	Seed bool   `mapstructure:"seed"` // memory 时写入示例商品
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // 商品目录缓存时长，如 "5m"
}

// HistoryConfig 历史记录 sink 配置；多个 sink 同时写入
type HistoryConfig struct {
	Sinks []string          `mapstructure:"sinks"` // memory | postgres | redis | nats
	DSN   string            `mapstructure:"dsn"`
	Redis RedisStreamConfig `mapstructure:"redis"`
	NATS  NATSConfig        `mapstructure:"nats"`
}

// RedisStreamConfig Redis Stream sink
type RedisStreamConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// NATSConfig NATS 发布配置
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// ConversationConfig 多轮对话存储
type ConversationConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`
}

// SecretsConfig Secret 存储配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault | memory
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("agent.max_iterations", 20)
	v.SetDefault("agent.max_model_failures", 3)
	v.SetDefault("agent.generation.max_tokens", 512)
	v.SetDefault("agent.generation.temperature", 0.7)
	v.SetDefault("agent.generation.stop", []string{"User:"})
	v.SetDefault("agent.tools.transport", "local")
	v.SetDefault("agent.sweep.days", 3)
	v.SetDefault("inventory.type", "memory")
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("history.sinks", []string{"memory"})
	v.SetDefault("history.redis.stream", "agent:history")
	v.SetDefault("history.nats.subject", "retail.agent.history")
	v.SetDefault("conversation.type", "memory")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("monitoring.tracing.service_name", "retail-agent")
}

// replaceEnvVars 将 "${VAR}" 形式的 API Key 替换为环境变量值
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if val, ok := expandEnv(providerConfig.APIKey); ok {
			providerConfig.APIKey = val
			config.Model.LLM.Providers[provider] = providerConfig
		}
	}
	for _, dsn := range []*string{&config.Inventory.DSN, &config.History.DSN, &config.Conversation.DSN} {
		if val, ok := expandEnv(*dsn); ok {
			*dsn = val
		}
	}
}

func expandEnv(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "$") {
		return "", false
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(raw, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	val := os.Getenv(envVar)
	return val, val != ""
}

// LoadAPIConfig 加载 API 配置；RETAIL_AGENT_CONFIG 非空时覆盖默认路径 configs/api.yaml
func LoadAPIConfig() (*Config, error) {
	return LoadConfig(configPath("configs/api.yaml"))
}

// LoadWorkerConfig 加载补货 Worker 配置，默认 configs/worker.yaml
func LoadWorkerConfig() (*Config, error) {
	return LoadConfig(configPath("configs/worker.yaml"))
}

func configPath(def string) string {
	if p := os.Getenv("RETAIL_AGENT_CONFIG"); p != "" {
		return p
	}
	return def
}
