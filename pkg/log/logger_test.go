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

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "sku", "SKU001")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"sku":"SKU001"`)
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Format: "text"}, &buf).With("component", "agent")
	l.Info("hello")
	assert.Contains(t, buf.String(), "component=agent")
}

func TestNewLogger_File(t *testing.T) {
	path := t.TempDir() + "/agent.log"
	l, err := NewLogger(&Config{File: path})
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Info("to file")
}
