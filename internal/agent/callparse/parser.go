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

// Package callparse 从模型输出文本中提取工具调用
//
// 调用语法：
//
//	TOOL_CALL: tool_name(key1=value1, key2="text", key3=['a', 'b'])
//
// 一段文本中可以出现任意多个调用，按出现顺序返回。无法解析的片段记录为 Failure，不中断其余解析。
package callparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"retail-agent/pkg/log"
	"retail-agent/pkg/metrics"
)

// CallMarker 工具调用标记
const CallMarker = "TOOL_CALL:"

// FailureReason 解析失败原因
type FailureReason string

const (
	ReasonMissingName   FailureReason = "missing_name"
	ReasonUnterminated  FailureReason = "unterminated_arguments"
	ReasonMissingEquals FailureReason = "missing_equals"
	ReasonInvalidKey    FailureReason = "invalid_key"
)

// ToolCall 一次工具调用；Args 的值为 string、int、float64、bool、[]any、map[string]any 或 nil
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Failure 无法解析的调用或参数片段
type Failure struct {
	Reason   FailureReason `json:"reason"`
	Call     string        `json:"call,omitempty"`     // 所属调用名，未知时为空
	Fragment string        `json:"fragment,omitempty"` // 原始片段
}

func (f Failure) Error() string {
	if f.Call != "" {
		return fmt.Sprintf("%s in %s: %q", f.Reason, f.Call, f.Fragment)
	}
	return fmt.Sprintf("%s: %q", f.Reason, f.Fragment)
}

// Outcome 单个片段的解析结果，Call 与 Failure 恰有一个非空
type Outcome struct {
	Call    *ToolCall
	Failure *Failure
}

// Result 一段文本的全部解析结果
type Result struct {
	Calls    []ToolCall
	Failures []Failure
}

// HasCalls 是否包含至少一个调用
func (r Result) HasCalls() bool { return len(r.Calls) > 0 }

// Parser 工具调用解析器，无状态，可并发使用
type Parser struct {
	marker string
	logger *log.Logger
}

// Option Parser 配置
type Option func(*Parser)

// WithMarker 替换调用标记
func WithMarker(marker string) Option {
	return func(p *Parser) {
		if marker != "" {
			p.marker = marker
		}
	}
}

// WithLogger 记录解析失败
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New 创建 Parser
func New(opts ...Option) *Parser {
	p := &Parser{marker: CallMarker}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = log.Nop()
	}
	return p
}

// Parse 提取 text 中全部调用
func (p *Parser) Parse(text string) Result {
	var res Result
	pos := 0
	for {
		idx := strings.Index(text[pos:], p.marker)
		if idx < 0 {
			break
		}
		start := pos + idx + len(p.marker)
		outcomes, next := p.parseCall(text, start)
		for _, o := range outcomes {
			if o.Call != nil {
				res.Calls = append(res.Calls, *o.Call)
			}
			if o.Failure != nil {
				p.recordFailure(*o.Failure)
				res.Failures = append(res.Failures, *o.Failure)
			}
		}
		pos = next
	}
	return res
}

func (p *Parser) recordFailure(f Failure) {
	metrics.ParseFailureTotal.WithLabelValues(string(f.Reason)).Inc()
	p.logger.Warn("工具调用解析失败", "reason", f.Reason, "call", f.Call, "fragment", f.Fragment)
}

// parseCall 从 start（标记之后）解析一个调用，返回结果与下一次搜索的起点
func (p *Parser) parseCall(text string, start int) ([]Outcome, int) {
	// 标记与名称之间允许换行
	i := skipSpace(text, start)
	nameEnd := scanIdent(text, i, true)
	if nameEnd == i {
		return []Outcome{{Failure: &Failure{Reason: ReasonMissingName, Fragment: firstLine(text[start:])}}}, start
	}
	name := text[i:nameEnd]
	j := skipBlank(text, nameEnd)
	if j >= len(text) || text[j] != '(' {
		return []Outcome{{Call: &ToolCall{Name: name, Args: map[string]any{}}}}, nameEnd
	}
	end, ok := matchParen(text, j)
	if !ok {
		return []Outcome{{Failure: &Failure{Reason: ReasonUnterminated, Call: name, Fragment: firstLine(text[i:])}}}, j + 1
	}

	call := &ToolCall{Name: name, Args: map[string]any{}}
	var outcomes []Outcome
	for _, frag := range splitTopLevel(text[j+1 : end]) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		key, val, f := decodeFragment(name, frag)
		if f != nil {
			outcomes = append(outcomes, Outcome{Failure: f})
			continue
		}
		call.Args[key] = val
	}
	return append([]Outcome{{Call: call}}, outcomes...), end + 1
}

func skipBlank(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte, allowDot bool) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || (allowDot && c == '.')
}

// scanIdent 返回标识符结束位置；不是标识符时返回 i
func scanIdent(s string, i int, allowDot bool) int {
	if i >= len(s) || !isIdentStart(s[i]) {
		return i
	}
	j := i + 1
	for j < len(s) && isIdentPart(s[j], allowDot) {
		j++
	}
	// 去掉结尾的点，如 "order_product." 句号
	for j > i+1 && s[j-1] == '.' {
		j--
	}
	return j
}

// opensQuote 引号只在值的起始位置才开启字符串，单词内部的撇号（如 O'Brien）不算
func opensQuote(s string, i int) bool {
	for k := i - 1; k >= 0; k-- {
		switch s[k] {
		case ' ', '\t', '\n', '\r':
			continue
		case '=', '(', '[', '{', ',', ':':
			return true
		default:
			return false
		}
	}
	return true
}

// matchParen 从 s[open]=='(' 开始找到匹配的 ')'，跳过引号内与嵌套括号
func matchParen(s string, open int) (int, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote == '"' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			if opensQuote(s, i) {
				quote = c
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if c != ')' {
					return 0, false
				}
				return i, true
			}
		}
	}
	return 0, false
}

// splitTopLevel 按不在引号或括号内的逗号切分
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote == '"' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			if opensQuote(s, i) {
				quote = c
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// decodeFragment 解析 key=value；失败时返回 Failure
func decodeFragment(call, frag string) (string, any, *Failure) {
	eq := strings.IndexByte(frag, '=')
	if eq < 0 {
		return "", nil, &Failure{Reason: ReasonMissingEquals, Call: call, Fragment: frag}
	}
	key := strings.TrimSpace(frag[:eq])
	if key == "" || scanIdent(key, 0, false) != len(key) {
		return "", nil, &Failure{Reason: ReasonInvalidKey, Call: call, Fragment: frag}
	}
	return key, DecodeValue(frag[eq+1:]), nil
}

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

// DecodeValue 按固定优先级解码参数值：
// 严格 JSON；单引号列表转双引号后按 JSON；去引号后的整数；去引号后的原始字符串
func DecodeValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if v, ok := decodeJSON(raw); ok {
		return v
	}
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		if v, ok := decodeJSON(singleQuoted.ReplaceAllString(raw, `"$1"`)); ok {
			return v
		}
	}
	stripped := strings.Trim(raw, `'"`)
	if n, err := strconv.Atoi(stripped); err == nil {
		return n
	}
	return stripped
}

func decodeJSON(raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// 只接受一个完整的 JSON 值，尾部不能有多余内容
	if strings.TrimSpace(raw[dec.InputOffset():]) != "" {
		return nil, false
	}
	return normalizeNumbers(v), true
}

// normalizeNumbers 整数转 int，其余数字转 float64
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	}
	return v
}
