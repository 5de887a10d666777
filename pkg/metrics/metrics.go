// Package metrics 提供 Prometheus helper，包含本服务的 counter/gauge/histogram 集合
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/supervision/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 报告提交计数，按最终状态分类
	SubmissionsTotal *prometheus.CounterVec
	// 提交管线各阶段耗时
	PipelineStageDuration *prometheus.HistogramVec
	// 判定服务调用计数，按 agent 和结果分类
	JudgeCallsTotal *prometheus.CounterVec
	// 判定服务调用耗时
	JudgeCallDuration *prometheus.HistogramVec

	// 审核决定计数，approve / reject
	ReviewDecisionsTotal *prometheus.CounterVec
	// 待审核报告数
	ReportsPending prometheus.Gauge

	// 通知发送计数
	NotificationsTotal prometheus.Counter
	// 实时推送订阅数
	RealtimeSubscribers prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "submissions_total",
			Help:      "Total report submissions by resulting status",
		}, []string{"status"}),
		PipelineStageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Submission pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		JudgeCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "judge_calls_total",
			Help:      "Total judgment provider calls by agent and result",
		}, []string{"agent", "result"}),
		JudgeCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "judge_call_duration_seconds",
			Help:      "Judgment provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"agent"}),

		ReviewDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "review_decisions_total",
			Help:      "Total review decisions by kind",
		}, []string{"decision"}),
		ReportsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "reports_pending",
			Help:      "Number of reports awaiting review",
		}),

		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "notifications_total",
			Help:      "Total notifications created",
		}),
		RealtimeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "supervision",
			Subsystem: serviceName,
			Name:      "realtime_subscribers",
			Help:      "Number of active realtime subscriber channels",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubmissionsTotal,
		m.PipelineStageDuration,
		m.JudgeCallsTotal,
		m.JudgeCallDuration,
		m.ReviewDecisionsTotal,
		m.ReportsPending,
		m.NotificationsTotal,
		m.RealtimeSubscribers,
	}

	for _, collector := range collectors {
		if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
