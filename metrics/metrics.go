// Package metrics 提供推荐链路的 Prometheus 指标。
//
// 指标：
//   - hybridrec_requests_total{source}: 按最终结果来源计数（hybrid / content / category / popularity）
//   - hybridrec_request_duration_seconds: 单次推荐耗时
//   - hybridrec_candidates{signal}: 每个信号源产生的候选数
//   - hybridrec_cold_start_total: 协同过滤冷启动次数
//   - hybridrec_catalog_miss_total: 因目录缺失被丢弃的候选数
//   - hybridrec_artifact_loaded: 当前是否有可用模型包（1/0）
//   - hybridrec_artifact_reloads_total{result}: 热更新结果
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_requests_total",
			Help: "Total number of recommendation requests by result source",
		},
		[]string{"source"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hybridrec_request_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	Candidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hybridrec_candidates",
			Help:    "Number of candidates produced per signal source",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"signal"},
	)

	ColdStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridrec_cold_start_total",
			Help: "Total number of requests whose user had no encoder index",
		},
	)

	CatalogMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridrec_catalog_miss_total",
			Help: "Total number of ranked candidates dropped because the catalog had no record",
		},
	)

	ArtifactLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridrec_artifact_loaded",
			Help: "Whether a model bundle is loaded (1) or the service runs in degraded mode (0)",
		},
	)

	ArtifactReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_artifact_reloads_total",
			Help: "Total number of model bundle reload attempts by result",
		},
		[]string{"result"}, // "ok", "error"
	)
)

// RecordRequest 记录一次推荐请求。
func RecordRequest(source string, d time.Duration) {
	RequestsTotal.WithLabelValues(source).Inc()
	RequestDuration.Observe(d.Seconds())
}

// RecordCandidates 记录某个信号源的候选数。
func RecordCandidates(signal string, n int) {
	Candidates.WithLabelValues(signal).Observe(float64(n))
}

// SetArtifactLoaded 更新模型包可用状态。
func SetArtifactLoaded(loaded bool) {
	if loaded {
		ArtifactLoaded.Set(1)
		return
	}
	ArtifactLoaded.Set(0)
}

// RecordReload 记录一次热更新。
func RecordReload(err error) {
	if err != nil {
		ArtifactReloads.WithLabelValues("error").Inc()
		return
	}
	ArtifactReloads.WithLabelValues("ok").Inc()
}

// Handler 返回 /metrics 的 HTTP handler。
func Handler() http.Handler {
	return promhttp.Handler()
}
