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
	"bytes"
	"encoding/json"
	"strings"

	"retail-agent/internal/tool"
)

// ContentBlock 工具返回的内容块
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallRequest POST /api/tools/call 请求体
type CallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallResponse POST /api/tools/call 响应体
type CallResponse struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"is_error"`
}

// ListResponse GET /api/tools 响应体
type ListResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// EncodeResult 将工具执行结果编码为响应体；结构化值序列化为 JSON 文本块
func EncodeResult(res tool.ToolResult, execErr error) CallResponse {
	if execErr != nil {
		return CallResponse{IsError: true, Content: []ContentBlock{{Type: "text", Text: execErr.Error()}}}
	}
	if res.Err != "" {
		return CallResponse{IsError: true, Content: []ContentBlock{{Type: "text", Text: res.Err}}}
	}
	var text string
	switch v := res.Value.(type) {
	case nil:
		text = "null"
	case string:
		text = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return CallResponse{IsError: true, Content: []ContentBlock{{Type: "text", Text: "encode result: " + err.Error()}}}
		}
		text = string(raw)
	}
	return CallResponse{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// DecodeResponse 拼接文本块，并尽量把文本解析为 JSON
func DecodeResponse(resp CallResponse) Result {
	parts := make([]string, 0, len(resp.Content))
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if resp.IsError {
		return Result{IsError: true, Error: text, Text: text}
	}
	return Result{Value: decodeJSON(text), Text: text}
}

func decodeJSON(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return text
	}
	return v
}
