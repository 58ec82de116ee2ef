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

package builtin

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 模型给出的参数可能是 int、float64、json.Number 或带引号的字符串，这里统一转换

func stringArg(input map[string]any, key string) (string, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return "", fmt.Errorf("argument %q must not be empty", key)
		}
		return s, nil
	case json.Number:
		return x.String(), nil
	default:
		return fmt.Sprint(x), nil
	}
}

func optionalString(input map[string]any, key string) string {
	s, err := stringArg(input, key)
	if err != nil {
		return ""
	}
	return s
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(x), `'"`))
		return n, err == nil
	}
	return 0, false
}

func intArg(input map[string]any, key string) (int, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("argument %q must be an integer, got %v", key, v)
	}
	return n, nil
}

func intArgDefault(input map[string]any, key string, def int) (int, error) {
	if v, ok := input[key]; !ok || v == nil {
		return def, nil
	}
	return intArg(input, key)
}

func boolArgDefault(input map[string]any, key string, def bool) bool {
	switch x := input[key].(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
	case int:
		return x != 0
	}
	return def
}

// listArg 接受 JSON 列表，或单个值（视为长度 1 的列表），或逗号分隔字符串
func listArg(input map[string]any, key string) ([]any, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("missing required argument %q", key)
	}
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, nil
	case string:
		var out []any
		for _, part := range strings.Split(strings.Trim(x, "[]"), ",") {
			if p := strings.Trim(strings.TrimSpace(part), `'"`); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return []any{x}, nil
	}
}

func stringListArg(input map[string]any, key string) ([]string, error) {
	items, err := listArg(input, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, strings.TrimSpace(fmt.Sprint(it)))
	}
	return out, nil
}

func intListArg(input map[string]any, key string) ([]int, error) {
	items, err := listArg(input, key)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		n, ok := toInt(it)
		if !ok {
			return nil, fmt.Errorf("argument %q must contain integers, got %v", key, it)
		}
		out = append(out, n)
	}
	return out, nil
}
