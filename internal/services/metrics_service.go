package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService RAG操作指标服务
type MetricsService struct {
	ingestCounter  *prometheus.CounterVec
	queryCounter   *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
	indexEntrySize *prometheus.GaugeVec
}

var globalMetrics *MetricsService

// NewMetricsService 创建指标服务（进程内单例，重复创建返回同一实例）
func NewMetricsService() *MetricsService {
	if globalMetrics != nil {
		return globalMetrics
	}

	globalMetrics = &MetricsService{
		ingestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docquery_ingest_total",
				Help: "Total document ingestions by outcome",
			},
			[]string{"outcome"},
		),
		queryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docquery_query_total",
				Help: "Total queries by outcome",
			},
			[]string{"outcome"},
		),
		opDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docquery_operation_duration_seconds",
				Help:    "Duration of RAG operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		indexEntrySize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docquery_index_entries",
				Help: "Entry count of the last persisted index by name",
			},
			[]string{"index"},
		),
	}
	return globalMetrics
}

// RecordIngest 记录一次摄入结果
func (ms *MetricsService) RecordIngest(outcome string, duration time.Duration) {
	ms.ingestCounter.WithLabelValues(outcome).Inc()
	ms.opDuration.WithLabelValues("ingest").Observe(duration.Seconds())
}

// RecordQuery 记录一次查询结果
func (ms *MetricsService) RecordQuery(outcome string, duration time.Duration) {
	ms.queryCounter.WithLabelValues(outcome).Inc()
	ms.opDuration.WithLabelValues("query").Observe(duration.Seconds())
}

// SetIndexEntries 更新索引entry数量
func (ms *MetricsService) SetIndexEntries(name string, count int) {
	ms.indexEntrySize.WithLabelValues(name).Set(float64(count))
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}
