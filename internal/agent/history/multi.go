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

package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retail-agent/pkg/config"
)

// MultiSink 依次写入多个 sink，返回合并后的错误
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink 组合多个 sink
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (m *MultiSink) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Lister 返回第一个支持读取的 sink
func (m *MultiSink) Lister() (Lister, bool) {
	for _, s := range m.sinks {
		if l, ok := s.(Lister); ok {
			return l, true
		}
	}
	return nil, false
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSinkFromConfig 按配置创建 sink，多个 sink 时组合为 MultiSink
func NewSinkFromConfig(ctx context.Context, cfg config.HistoryConfig) (*MultiSink, error) {
	names := cfg.Sinks
	if len(names) == 0 {
		names = []string{"memory"}
	}
	var sinks []Sink
	fail := func(err error) (*MultiSink, error) {
		_ = NewMultiSink(sinks...).Close()
		return nil, err
	}
	for _, name := range names {
		switch name {
		case "memory":
			sinks = append(sinks, NewMemorySink(0))
		case "postgres":
			s, err := NewPgSink(ctx, cfg.DSN)
			if err != nil {
				return fail(fmt.Errorf("history postgres: %w", err))
			}
			sinks = append(sinks, s)
		case "redis":
			r := cfg.Redis
			s, err := NewRedisStreamSink(ctx, r.Addr, r.Password, r.DB, r.Stream, r.MaxLen)
			if err != nil {
				return fail(fmt.Errorf("history redis: %w", err))
			}
			sinks = append(sinks, s)
		case "nats":
			s, err := NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject)
			if err != nil {
				return fail(fmt.Errorf("history nats: %w", err))
			}
			sinks = append(sinks, s)
		default:
			return fail(fmt.Errorf("未知的历史记录 sink: %s", name))
		}
	}
	return NewMultiSink(sinks...), nil
}
