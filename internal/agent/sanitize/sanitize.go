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

// Package sanitize 将模型原始输出整理为面向用户的回答
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"retail-agent/internal/agent/callparse"
)

// CompletionMarker 模型认为任务已完成时输出的标记
const CompletionMarker = "TASK_COMPLETE"

// bareCall 匹配去掉首尾空白后整行都是函数调用形式的文本，如 order_product(sku="SKU001")
var bareCall = regexp.MustCompile(`^[A-Za-z_][\w.]*\(.*\)$`)

// HasCompletion 文本是否包含完成标记
func HasCompletion(text string) bool {
	return strings.Contains(text, CompletionMarker)
}

// Clean 删除完成标记与调用行，合并连续空行并去掉首尾空白。Clean(Clean(s)) == Clean(s)
func Clean(text string) string {
	for strings.Contains(text, CompletionMarker) {
		text = strings.ReplaceAll(text, CompletionMarker, "")
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		// 按 Unicode 空白判断，与最终的 TrimSpace 保持一致
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, callparse.CallMarker) || bareCall.MatchString(trimmed) {
			continue
		}
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, strings.TrimRightFunc(line, unicode.IsSpace))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
