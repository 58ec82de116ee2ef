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

package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client 文本补全能力：输入 prompt，返回一段文本
type Client interface {
	// GenerateWithContext 使用上下文生成文本
	GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项；编排循环每次调用使用同一组固定值
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// NewClient 创建 LLM 客户端；baseURL 用于 OpenAI 兼容端点（llama.cpp server、Ollama 等），空则用默认或环境变量
func NewClient(provider, model, apiKey, baseURL string) (Client, error) {
	switch provider {
	case "openai", "llamacpp", "ollama":
		return NewOpenAIClientWithBaseURL(provider, model, apiKey, baseURL)
	case "gemini":
		return NewGeminiClient(model, apiKey, baseURL)
	case "eino":
		return NewEinoOpenAIClient(context.Background(), model, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// SplitModelRef 解析 "provider.model_key"
func SplitModelRef(ref string) (provider, modelKey string, err error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("模型引用格式应为 provider.model_key: %q", ref)
	}
	return parts[0], parts[1], nil
}
