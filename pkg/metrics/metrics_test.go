package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	SessionTotal.WithLabelValues("completed").Inc()
	ToolCallTotal.WithLabelValues("order_product", "ok").Inc()

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, "retail_agent_session_total")
	assert.Contains(t, out, `tool="order_product"`)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(ParseFailureTotal.WithLabelValues("missing_equals"))
	ParseFailureTotal.WithLabelValues("missing_equals").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ParseFailureTotal.WithLabelValues("missing_equals")))
}
