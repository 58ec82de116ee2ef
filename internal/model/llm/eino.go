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
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 将 Eino ChatModel 适配为文本补全 Client
type EinoClient struct {
	chat      model.BaseChatModel
	provider  string
	modelName string
}

// NewEinoClient 包装任意 Eino ChatModel
func NewEinoClient(chat model.BaseChatModel, provider, modelName string) *EinoClient {
	return &EinoClient{chat: chat, provider: provider, modelName: modelName}
}

// NewEinoOpenAIClient 通过 eino-ext 的 OpenAI ChatModel 创建客户端
func NewEinoOpenAIClient(ctx context.Context, modelName, apiKey, baseURL string) (*EinoClient, error) {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	cfg := &openai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: 60 * time.Second,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	chat, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 Eino ChatModel 失败: %w", err)
	}
	return NewEinoClient(chat, "eino", modelName), nil
}

// GenerateWithContext 以单条 user 消息调用 ChatModel
func (c *EinoClient) GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	opts := []model.Option{model.WithTemperature(float32(options.Temperature))}
	if options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(options.MaxTokens))
	}
	if len(options.Stop) > 0 {
		opts = append(opts, model.WithStop(options.Stop))
	}
	msg, err := c.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("eino generate: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.modelName }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return c.provider }
