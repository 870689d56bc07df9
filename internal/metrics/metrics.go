// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// サインイン結果のラベル値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// セッション解決結果のラベル値
const (
	LookupAuthenticated   = "authenticated"
	LookupUnauthenticated = "unauthenticated"
	LookupError           = "error"
)

// 期限切れレコード削除の種別ラベル値
const (
	KindSession           = "session"
	KindVerificationToken = "verification_token"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordSignIn(provider, result string)
	RecordSignOut()
	RecordSessionLookup(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordExpiredPurged(kind string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn         *prometheus.CounterVec
	signOut        prometheus.Counter
	sessionLookups *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	requestLatency prometheus.Histogram
	expiredPurged  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authpage_sign_in_total",
			Help: "プロバイダー・結果別のサインイン試行数",
		}, []string{"provider", "result"}),
		signOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authpage_sign_out_total",
			Help: "サインアウトの合計数",
		}),
		sessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authpage_session_lookups_total",
			Help: "結果別のセッション解決数",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authpage_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authpage_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		expiredPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authpage_expired_records_purged_total",
			Help: "クリーンアップで削除した期限切れレコード数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.signIn,
		c.signOut,
		c.sessionLookups,
		c.httpRequests,
		c.requestLatency,
		c.expiredPurged,
	)

	return c
}

// RecordSignIn はサインインの結果を記録する。
func (c *Collector) RecordSignIn(provider, result string) {
	c.signIn.WithLabelValues(provider, result).Inc()
}

// RecordSignOut はサインアウトを記録する。
func (c *Collector) RecordSignOut() {
	c.signOut.Inc()
}

// RecordSessionLookup はセッション解決の結果を記録する。
func (c *Collector) RecordSessionLookup(result string) {
	c.sessionLookups.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordExpiredPurged は削除した期限切れレコード数を記録する。
func (c *Collector) RecordExpiredPurged(kind string, count int64) {
	c.expiredPurged.WithLabelValues(kind).Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。メトリクスを使わない構成とテストで使う。
type Nop struct{}

func (Nop) RecordSignIn(string, string)        {}
func (Nop) RecordSignOut()                     {}
func (Nop) RecordSessionLookup(string)         {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordExpiredPurged(string, int64)  {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
