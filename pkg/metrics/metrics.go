package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/CLI 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		SessionTotal, SessionIterations,
		ToolDuration, ToolCallTotal,
		ParseFailureTotal, HistoryWriteFailTotal,
		LLMRequestDuration, LLMRequestFailTotal, RateLimitWaitSeconds,
		SweepOrderTotal,
	)
}

// SessionTotal Agent 会话总数（按结束状态）
var SessionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_session_total",
		Help: "Agent 会话总数（按结束状态）",
	},
	[]string{"status"}, // completed | iteration_limit | empty_completion | model_unavailable
)

// SessionIterations 单次会话迭代次数
var SessionIterations = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "retail_agent_session_iterations",
		Help:    "单次会话迭代次数",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20, 30},
	},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "retail_agent_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolCallTotal 工具调用次数（按结果）
var ToolCallTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_tool_call_total",
		Help: "工具调用次数",
	},
	[]string{"tool", "outcome"}, // ok | error | duplicate
)

// ParseFailureTotal 工具调用文本解析失败次数
var ParseFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_parse_failure_total",
		Help: "工具调用文本解析失败次数",
	},
	[]string{"reason"},
)

// HistoryWriteFailTotal 历史写入失败次数
var HistoryWriteFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_history_write_fail_total",
		Help: "历史记录写入失败次数",
	},
	[]string{"sink"},
)

// LLMRequestDuration 模型调用耗时（秒）
var LLMRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "retail_agent_llm_request_duration_seconds",
		Help:    "模型调用耗时（秒）",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	},
	[]string{"provider"},
)

// LLMRequestFailTotal 模型调用失败次数
var LLMRequestFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_llm_request_fail_total",
		Help: "模型调用失败次数",
	},
	[]string{"provider"},
)

// RateLimitWaitSeconds 限流等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "retail_agent_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	},
	[]string{"kind", "name"}, // kind: tool | llm
)

// SweepOrderTotal 自动补货下单次数（按结果）
var SweepOrderTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retail_agent_sweep_order_total",
		Help: "自动补货下单次数",
	},
	[]string{"result"}, // ordered | skipped | error
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
