package repository

import (
	"context"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// SheetLatencyRecorder はシートAPI呼び出しレイテンシの記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type SheetLatencyRecorder interface {
	RecordSheetLatency(duration time.Duration)
}

// InstrumentedDirectoryRepo はDirectoryRepositoryの呼び出しレイテンシを
// メトリクスとして記録するデコレータ。
type InstrumentedDirectoryRepo struct {
	inner   DirectoryRepository
	metrics SheetLatencyRecorder
}

// NewInstrumentedDirectoryRepo はInstrumentedDirectoryRepoを生成する。
func NewInstrumentedDirectoryRepo(inner DirectoryRepository, metrics SheetLatencyRecorder) *InstrumentedDirectoryRepo {
	return &InstrumentedDirectoryRepo{inner: inner, metrics: metrics}
}

// FetchSnapshot は内側のリポジトリに委譲し、所要時間を記録する。
func (r *InstrumentedDirectoryRepo) FetchSnapshot(ctx context.Context, conf *model.Conference) ([]model.Attendee, error) {
	start := time.Now()
	attendees, err := r.inner.FetchSnapshot(ctx, conf)
	r.metrics.RecordSheetLatency(time.Since(start))
	return attendees, err
}

// CheckIn は内側のリポジトリに委譲し、所要時間を記録する。
func (r *InstrumentedDirectoryRepo) CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
	start := time.Now()
	ok, err := r.inner.CheckIn(ctx, conf, row, staffName, at)
	r.metrics.RecordSheetLatency(time.Since(start))
	return ok, err
}

var _ DirectoryRepository = (*InstrumentedDirectoryRepo)(nil)
