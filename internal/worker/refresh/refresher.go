// Package refresh は参加者名簿スナップショットの定期更新ワーカーを提供する。
// 有効なカンファレンスを列挙し、semaphoreパターンで並列数を制御しながら
// 名簿キャッシュを温め直す。受付画面の検索が常に新しい名簿に当たるようにする。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// ConferenceLister はリフレッシュ対象カンファレンスの列挙インターフェース。
type ConferenceLister interface {
	// ListActive は有効なカンファレンスの一覧を返す。
	ListActive(ctx context.Context) ([]*model.Conference, error)
}

// SnapshotRefresher は名簿スナップショットの強制更新インターフェース。
type SnapshotRefresher interface {
	// Refresh はキャッシュの状態に関わらずシートから名簿を取得し直す。
	Refresh(ctx context.Context, conf *model.Conference) ([]model.Attendee, error)
}

// RefreshMetrics はリフレッシュ結果のメトリクス記録インターフェース。
type RefreshMetrics interface {
	RecordSnapshotRefreshSuccess(conferenceID string)
	RecordSnapshotRefreshFailure(conferenceID string)
}

// Refresher は名簿リフレッシュのスケジューリングと並列制御を行う。
// 連続して失敗しているカンファレンスにはバックオフを適用し、
// 外部ストア側の障害中に同じ失敗を繰り返さないようにする。
type Refresher struct {
	conferences    ConferenceLister
	directory      SnapshotRefresher
	metrics        RefreshMetrics
	logger         *slog.Logger
	maxConcurrency int

	mu    sync.Mutex
	state map[string]*backoffState

	now func() time.Time
}

// NewRefresher はRefresherの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値3を使用する。
// metricsはnilを許容し、その場合は記録しない。
func NewRefresher(
	conferences ConferenceLister,
	directory SnapshotRefresher,
	metrics RefreshMetrics,
	logger *slog.Logger,
	maxConcurrency int,
) *Refresher {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	return &Refresher{
		conferences:    conferences,
		directory:      directory,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		state:          make(map[string]*backoffState),
		now:            time.Now,
	}
}

// Start は指定間隔のティッカーでリフレッシュサイクルを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("名簿リフレッシュワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", r.maxConcurrency),
	)

	// 起動直後に1回実行してキャッシュを温める
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("リフレッシュサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("名簿リフレッシュワーカーを停止しました")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("リフレッシュサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は有効なカンファレンスを1回列挙し、並列で名簿を更新する。
// バックオフ期間中のカンファレンスはスキップする。
func (r *Refresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	conferences, err := r.conferences.ListActive(ctx)
	if err != nil {
		return err
	}

	if len(conferences) == 0 {
		r.logger.Info("リフレッシュ対象のカンファレンスはありません")
		return nil
	}

	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup

	var refreshed int
	for _, conf := range conferences {
		if !r.shouldAttempt(conf.ID) {
			r.logger.Info("バックオフ期間中のためスキップします",
				slog.String("conference_id", conf.ID),
			)
			continue
		}

		refreshed++
		wg.Add(1)
		sem <- struct{}{}

		go func(c *model.Conference) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := r.directory.Refresh(ctx, c); err != nil {
				delay := r.recordFailure(c.ID)
				if r.metrics != nil {
					r.metrics.RecordSnapshotRefreshFailure(c.ID)
				}
				r.logger.Error("名簿の更新に失敗しました",
					slog.String("conference_id", c.ID),
					slog.Duration("backoff", delay),
					slog.String("error", err.Error()),
				)
				return
			}

			r.recordSuccess(c.ID)
			if r.metrics != nil {
				r.metrics.RecordSnapshotRefreshSuccess(c.ID)
			}
		}(conf)
	}

	wg.Wait()

	duration := time.Since(start)
	r.logger.Info("リフレッシュサイクルが完了しました",
		slog.Int("conference_count", len(conferences)),
		slog.Int("refreshed_count", refreshed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// shouldAttempt はカンファレンスがバックオフ期間外かを判定する。
func (r *Refresher) shouldAttempt(conferenceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.state[conferenceID]
	if !ok {
		return true
	}
	return !r.now().Before(st.nextAttempt)
}

// recordFailure は連続失敗回数をインクリメントし、次回試行可能時刻を設定する。
// 適用したバックオフ遅延を返す。
func (r *Refresher) recordFailure(conferenceID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.state[conferenceID]
	if !ok {
		st = &backoffState{}
		r.state[conferenceID] = st
	}
	st.consecutiveFailures++
	delay := CalculateBackoff(st.consecutiveFailures - 1)
	st.nextAttempt = r.now().Add(delay)
	return delay
}

// recordSuccess は成功時にバックオフ状態をリセットする。
func (r *Refresher) recordSuccess(conferenceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, conferenceID)
}
