// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratflow_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stratflow_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	aiCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratflow_ai_calls_total",
		Help: "Calls to the generative AI collaborator by kind and result",
	}, []string{"kind", "result"})

	workspaceSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratflow_workspace_resource_saves_total",
		Help: "Per-resource outcomes of whole-workspace saves",
	}, []string{"resource", "result"})

	processEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratflow_process_events_total",
		Help: "Process publish events handled by the indexing pipeline",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAICall 记录一次 AI 调用，kind 如 okr_review / pad_review / sketch。
func ObserveAICall(kind string, err error) {
	aiCalls.WithLabelValues(kind, result(err)).Inc()
}

// ObserveWorkspaceSave 记录整体保存中单个资源的结果。
func ObserveWorkspaceSave(resource string, err error) {
	workspaceSaves.WithLabelValues(resource, result(err)).Inc()
}

// ObserveProcessEvent 记录索引管道处理一次发布事件的结果。
func ObserveProcessEvent(err error) {
	processEvents.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
