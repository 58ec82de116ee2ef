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

	"retail-agent/internal/model/llm"
	"retail-agent/pkg/config"
	"retail-agent/pkg/secrets"
)

// keylessProviders 本地推理服务（OpenAI 兼容）通常不需要 api_key
var keylessProviders = map[string]bool{"llamacpp": true, "ollama": true}

// NewLLMClientFromConfig 根据 model.defaults.llm（如 "llamacpp.qwen"）创建 LLM 客户端；未配置时返回 nil
// api_key 支持 secret: 引用，经 store 解析；rate_limits.llm 中有对应 provider 时包一层限流
func NewLLMClientFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (llm.Client, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, nil
	}
	provider, modelKey, err := llm.SplitModelRef(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q 未在 provider %q 中配置", modelKey, provider)
	}
	apiKey, err := secrets.Resolve(ctx, store, pc.APIKey)
	if err != nil {
		return nil, err
	}
	if apiKey == "" && !keylessProviders[provider] {
		return nil, fmt.Errorf("LLM provider %q 的 api_key 未配置", provider)
	}
	name := mi.Name
	if name == "" {
		name = modelKey
	}
	client, err := llm.NewClient(provider, name, apiKey, pc.BaseURL)
	if err != nil {
		return nil, err
	}

	if len(cfg.RateLimits.LLM) == 0 {
		return client, nil
	}
	limits := make(map[string]llm.LimitConfig, len(cfg.RateLimits.LLM))
	for p, l := range cfg.RateLimits.LLM {
		limits[p] = llm.LimitConfig{RequestsPerMinute: l.RequestsPerMinute, MaxConcurrent: l.MaxConcurrent}
	}
	return llm.NewRateLimitedClient(client, llm.NewRateLimiter(limits, nil)), nil
}
