package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weekly_planner"

var (
	remoteReplications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "remote_replications_total",
		Help:      "Remote schedule replication attempts by result.",
	}, []string{"result"})
	remotePolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "remote_polls_total",
		Help:      "Remote schedule refresh polls by result (applied, stale, failed).",
	}, []string{"result"})
	localWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "local_cache_writes_total",
		Help:      "Local durable cache writes by result.",
	}, []string{"result"})
	lastReplicated = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "last_replicated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful remote replication.",
	})
	scheduleWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "schedule_writes_total",
		Help:      "Schedule store write operations by operation.",
	}, []string{"operation"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(remoteReplications, remotePolls, localWrites, lastReplicated, scheduleWrites, httpDuration)
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordReplication 记录一次远端复制结果
func RecordReplication(err error, at time.Time) {
	remoteReplications.WithLabelValues(result(err)).Inc()
	if err == nil && !at.IsZero() {
		lastReplicated.Set(float64(at.Unix()))
	}
}

// RecordPoll 记录一次远端轮询结果: applied | stale | failed
func RecordPoll(outcome string) {
	remotePolls.WithLabelValues(outcome).Inc()
}

// RecordLocalWrite 记录一次本地缓存写入结果
func RecordLocalWrite(err error) {
	localWrites.WithLabelValues(result(err)).Inc()
}

// RecordScheduleWrite 记录服务端周计划写操作
func RecordScheduleWrite(operation string) {
	scheduleWrites.WithLabelValues(operation).Inc()
}

// ObserveHTTP 记录 HTTP 请求耗时
func ObserveHTTP(method, route string, status int, latency time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latency.Seconds())
}
