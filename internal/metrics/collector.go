// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 任务指标
	tasksTotal    *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	agentsPerTask prometheus.Histogram

	// Worker 指标
	workerSpawnsTotal      *prometheus.CounterVec
	workerExecutionsTotal  *prometheus.CounterVec
	workerExecutionSeconds *prometheus.HistogramVec

	// 池指标
	poolActiveWorkers prometheus.GaugeFunc
	poolMaxWorkers    prometheus.GaugeFunc

	logger *zap.Logger
}

// PoolStatsFunc 返回池的即时统计，由 GaugeFunc 在抓取时调用。
type PoolStatsFunc func() (active, max int)

// NewCollector 创建指标收集器
func NewCollector(namespace string, poolStats PoolStatsFunc, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	c.tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of orchestrated tasks",
		},
		[]string{"outcome"}, // outcome: success, failure
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "End-to-end task duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"vertical"},
	)

	c.agentsPerTask = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agents_per_task",
			Help:      "Number of workers used per task",
			Buckets:   []float64{1, 2, 3, 5, 8, 10},
		},
	)

	// Worker 指标
	c.workerSpawnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_spawns_total",
			Help:      "Total number of worker spawn attempts",
		},
		[]string{"role", "status"}, // status: ok, capacity, not_found
	)

	c.workerExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_executions_total",
			Help:      "Total number of worker executions",
		},
		[]string{"role", "status"},
	)

	c.workerExecutionSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_execution_duration_seconds",
			Help:      "Worker execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"role"},
	)

	// 池指标
	if poolStats != nil {
		c.poolActiveWorkers = promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_active_workers",
				Help:      "Number of live workers in the pool",
			},
			func() float64 {
				active, _ := poolStats()
				return float64(active)
			},
		)
		c.poolMaxWorkers = promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_max_workers",
				Help:      "Configured maximum pool population",
			},
			func() float64 {
				_, max := poolStats()
				return float64(max)
			},
		)
	}

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🎭 任务与 Worker 指标记录
// =============================================================================

// RecordTask 记录一次编排任务
func (c *Collector) RecordTask(success bool, vertical string, duration time.Duration, agentsUsed int) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	if vertical == "" {
		vertical = "none"
	}
	c.tasksTotal.WithLabelValues(outcome).Inc()
	c.taskDuration.WithLabelValues(vertical).Observe(duration.Seconds())
	c.agentsPerTask.Observe(float64(agentsUsed))
}

// RecordWorkerSpawn 记录一次 Worker 创建尝试
func (c *Collector) RecordWorkerSpawn(role, status string) {
	c.workerSpawnsTotal.WithLabelValues(role, status).Inc()
}

// RecordWorkerExecution 记录一次 Worker 执行
func (c *Collector) RecordWorkerExecution(role, status string, duration time.Duration) {
	c.workerExecutionsTotal.WithLabelValues(role, status).Inc()
	c.workerExecutionSeconds.WithLabelValues(role).Observe(duration.Seconds())
}

func statusCode(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
