// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// アクション結果のラベル値。
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
)

// キャッシュイベントのラベル値。
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheInvalidate = "invalidate"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordAuthAction(action, outcome string)
	RecordIssueAction(action, outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordCacheEvent(event string)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authActions     *prometheus.CounterVec
	issueActions    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	cacheEvents     *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuetracker_auth_actions_total",
			Help: "認証アクション（signin/signup/signout）の結果別の合計数",
		}, []string{"action", "outcome"}),
		issueActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuetracker_issue_actions_total",
			Help: "Issue操作の結果別の合計数",
		}, []string{"action", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuetracker_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "issuetracker_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuetracker_issue_cache_total",
			Help: "Issue一覧キャッシュのイベント数（hit/miss/invalidate）",
		}, []string{"event"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "issuetracker_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.authActions,
		c.issueActions,
		c.httpStatus,
		c.requestLatency,
		c.cacheEvents,
		c.sessionsCleaned,
	)

	return c
}

// RecordAuthAction は認証アクションの結果を記録する。
func (c *Collector) RecordAuthAction(action, outcome string) {
	c.authActions.WithLabelValues(action, outcome).Inc()
}

// RecordIssueAction はIssue操作の結果を記録する。
func (c *Collector) RecordIssueAction(action, outcome string) {
	c.issueActions.WithLabelValues(action, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordCacheEvent はキャッシュイベントを記録する。
func (c *Collector) RecordCacheEvent(event string) {
	c.cacheEvents.WithLabelValues(event).Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordAuthAction(string, string)    {}
func (Nop) RecordIssueAction(string, string)   {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordCacheEvent(string)            {}
func (Nop) RecordSessionsCleaned(int64)        {}

// Handler はgathererの内容をPrometheusのテキスト形式で返すハンドラーを返す。
// 収集中のエラーは500として返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
