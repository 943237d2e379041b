// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントとセッションから利用する。
type MetricsCollector interface {
	RecordBackendRequest(endpoint string, statusCode int, duration time.Duration)
	RecordBackendFailure(endpoint string, reason string)
	RecordBackendRetry(endpoint string)
	RecordEntitiesUpserted(kind string, count int)
	RecordBootstrap(status string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests  *prometheus.CounterVec
	backendFailures  *prometheus.CounterVec
	backendRetries   *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	entitiesUpserted *prometheus.CounterVec
	bootstraps       *prometheus.CounterVec
	bootstrapLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingctx_backend_requests_total",
			Help: "エンドポイントとステータスコード別のバックエンドリクエスト数",
		}, []string{"endpoint", "status_code"}),
		backendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingctx_backend_failures_total",
			Help: "バックエンド呼び出し失敗の合計数",
		}, []string{"endpoint", "reason"}),
		backendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingctx_backend_retries_total",
			Help: "バックエンド呼び出しのリトライ回数",
		}, []string{"endpoint"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainingctx_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		entitiesUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingctx_entities_upserted_total",
			Help: "種別ごとにアップサートされたエンティティ数",
		}, []string{"kind"}),
		bootstraps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingctx_bootstrap_total",
			Help: "最終ステータス別のセッション初期化回数",
		}, []string{"status"}),
		bootstrapLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainingctx_bootstrap_duration_seconds",
			Help:    "セッション初期化の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendFailures,
		c.backendRetries,
		c.backendLatency,
		c.entitiesUpserted,
		c.bootstraps,
		c.bootstrapLatency,
	)

	return c
}

// RecordBackendRequest はレスポンスを受け取ったバックエンド呼び出しを記録する。
func (c *Collector) RecordBackendRequest(endpoint string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordBackendFailure はバックエンド呼び出しの失敗を記録する。
func (c *Collector) RecordBackendFailure(endpoint string, reason string) {
	c.backendFailures.WithLabelValues(endpoint, reason).Inc()
}

// RecordBackendRetry はリトライを記録する。
func (c *Collector) RecordBackendRetry(endpoint string) {
	c.backendRetries.WithLabelValues(endpoint).Inc()
}

// RecordEntitiesUpserted はアップサートされたエンティティ数を記録する。
func (c *Collector) RecordEntitiesUpserted(kind string, count int) {
	c.entitiesUpserted.WithLabelValues(kind).Add(float64(count))
}

// RecordBootstrap はセッション初期化の結果を記録する。
func (c *Collector) RecordBootstrap(status string, duration time.Duration) {
	c.bootstraps.WithLabelValues(status).Inc()
	c.bootstrapLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordBackendRequest(string, int, time.Duration) {}
func (NopCollector) RecordBackendFailure(string, string)             {}
func (NopCollector) RecordBackendRetry(string)                       {}
func (NopCollector) RecordEntitiesUpserted(string, int)              {}
func (NopCollector) RecordBootstrap(string, time.Duration)           {}
