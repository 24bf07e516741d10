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
// ハンドラー、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(role string)
	RecordLoginFailure()
	RecordTokenRejection()
	RecordCheckinSuccess(conferenceID string)
	RecordCheckinFailure(conferenceID string, reason string)
	RecordDirectorySearch(conferenceID string)
	RecordSnapshotRefreshSuccess(conferenceID string)
	RecordSnapshotRefreshFailure(conferenceID string)
	RecordSheetLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess   *prometheus.CounterVec
	loginFail      prometheus.Counter
	tokenReject    prometheus.Counter
	checkinSuccess *prometheus.CounterVec
	checkinFail    *prometheus.CounterVec
	searchTotal    *prometheus.CounterVec
	refreshSuccess *prometheus.CounterVec
	refreshFail    *prometheus.CounterVec
	sheetLatency   prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_login_success_total",
			Help: "ログイン成功の合計数（権限区分別）",
		}, []string{"role"}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxntry_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		tokenReject: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxntry_token_rejection_total",
			Help: "認証トークン検証拒否の合計数",
		}),
		checkinSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_checkin_success_total",
			Help: "チェックイン成功の合計数（カンファレンス別）",
		}, []string{"conference_id"}),
		checkinFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_checkin_fail_total",
			Help: "チェックイン失敗の合計数（カンファレンス・理由別）",
		}, []string{"conference_id", "reason"}),
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_directory_search_total",
			Help: "名簿検索の合計数（カンファレンス別）",
		}, []string{"conference_id"}),
		refreshSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_snapshot_refresh_success_total",
			Help: "名簿スナップショット更新成功の合計数（カンファレンス別）",
		}, []string{"conference_id"}),
		refreshFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_snapshot_refresh_fail_total",
			Help: "名簿スナップショット更新失敗の合計数（カンファレンス別）",
		}, []string{"conference_id"}),
		sheetLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxntry_sheet_latency_seconds",
			Help:    "スプレッドシートAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxntry_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.tokenReject,
		c.checkinSuccess,
		c.checkinFail,
		c.searchTotal,
		c.refreshSuccess,
		c.refreshFail,
		c.sheetLatency,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を権限区分付きで記録する。
func (c *Collector) RecordLoginSuccess(role string) {
	c.loginSuccess.WithLabelValues(role).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordTokenRejection は認証トークン検証拒否を記録する。
func (c *Collector) RecordTokenRejection() {
	c.tokenReject.Inc()
}

// RecordCheckinSuccess はチェックイン成功を記録する。
func (c *Collector) RecordCheckinSuccess(conferenceID string) {
	c.checkinSuccess.WithLabelValues(conferenceID).Inc()
}

// RecordCheckinFailure はチェックイン失敗を理由付きで記録する。
func (c *Collector) RecordCheckinFailure(conferenceID string, reason string) {
	c.checkinFail.WithLabelValues(conferenceID, reason).Inc()
}

// RecordDirectorySearch は名簿検索を記録する。
func (c *Collector) RecordDirectorySearch(conferenceID string) {
	c.searchTotal.WithLabelValues(conferenceID).Inc()
}

// RecordSnapshotRefreshSuccess はスナップショット更新成功を記録する。
func (c *Collector) RecordSnapshotRefreshSuccess(conferenceID string) {
	c.refreshSuccess.WithLabelValues(conferenceID).Inc()
}

// RecordSnapshotRefreshFailure はスナップショット更新失敗を記録する。
func (c *Collector) RecordSnapshotRefreshFailure(conferenceID string) {
	c.refreshFail.WithLabelValues(conferenceID).Inc()
}

// RecordSheetLatency はスプレッドシートAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordSheetLatency(duration time.Duration) {
	c.sheetLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
