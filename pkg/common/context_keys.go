package common

type contextKey string

const (
	TraceIdKey        contextKey = "trace_id"
	LatencyContextKey contextKey = "__execution_time"
)

const TraceIdHeader = "X-Trace-Id"
