// Package checkin はチェックイン操作のオーケストレーションを提供する。
//
// 1回のチェックインは「カンファレンス確認 → 行参照 → 重複確認 →
// シート書き込み → 監査記録 → Webhook通知」の順で進む。
// 監査記録とWebhook通知の失敗はチェックイン自体を取り消さない。
package checkin

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dskst/voxntry-sub001/internal/metrics"
	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/notify"
	"github.com/dskst/voxntry-sub001/internal/repository"
)

// defaultNotifyTimeout はWebhook通知の既定のタイムアウト。
const defaultNotifyTimeout = 5 * time.Second

// ConferenceStore はカンファレンス参照のインターフェース。
type ConferenceStore interface {
	// Get はカンファレンスを1件取得する。存在しない場合はエラーを返す。
	Get(ctx context.Context, conferenceID string) (*model.Conference, error)
}

// DirectoryAccessor は名簿の行参照とチェックイン書き込みのインターフェース。
type DirectoryAccessor interface {
	// FindByRow はシート行番号で参加者を参照する。見つからない場合はnilを返す。
	FindByRow(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error)
	// CheckIn は指定行へチェックイン情報を書き込む。行が存在しない場合は(false, nil)を返す。
	CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error)
}

// Notifier はチェックイン通知送信のインターフェース。
type Notifier interface {
	NotifyCheckin(ctx context.Context, webhookURL string, notification notify.CheckinNotification) error
}

// Service はチェックイン操作のサービス層。
type Service struct {
	conferences   ConferenceStore
	directory     DirectoryAccessor
	events        repository.CheckinEventRepository
	notifier      Notifier
	metrics       metrics.MetricsCollector
	notifyTimeout time.Duration

	now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// notifyTimeoutが0以下の場合は既定値を使う。
func NewService(
	conferences ConferenceStore,
	directory DirectoryAccessor,
	events repository.CheckinEventRepository,
	notifier Notifier,
	collector metrics.MetricsCollector,
	notifyTimeout time.Duration,
) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		conferences:   conferences,
		directory:     directory,
		events:        events,
		notifier:      notifier,
		metrics:       collector,
		notifyTimeout: notifyTimeout,
		now:           time.Now,
	}
}

// CheckIn は指定行の参加者をチェックイン済みにする。
// 成功時はシートへの書き込み結果を返し、監査記録の追記とWebhook通知を行う。
func (s *Service) CheckIn(ctx context.Context, identity model.StaffIdentity, row int64) (*model.CheckinResult, error) {
	conf, err := s.conferences.Get(ctx, identity.ConferenceID)
	if err != nil {
		return nil, err
	}
	if !conf.Active {
		// 無効化済みカンファレンスへのチェックインは存在しない扱い
		return nil, model.NewConferenceNotFoundError(conf.ID)
	}

	attendee, err := s.directory.FindByRow(ctx, conf, row)
	if err != nil {
		slog.Error("failed to look up attendee row",
			slog.String("conference_id", conf.ID),
			slog.Int64("row", row),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordCheckinFailure(conf.ID, "directory_error")
		return nil, model.NewDirectoryUnavailableError()
	}
	if attendee == nil {
		s.metrics.RecordCheckinFailure(conf.ID, "not_found")
		return nil, model.NewAttendeeNotFoundError(row)
	}
	if attendee.CheckedIn {
		s.metrics.RecordCheckinFailure(conf.ID, "already_checked_in")
		return nil, model.NewAlreadyCheckedInError(attendee.Name)
	}

	at := s.now()
	ok, err := s.directory.CheckIn(ctx, conf, row, identity.StaffName, at)
	if err != nil {
		slog.Error("failed to write checkin to sheet",
			slog.String("conference_id", conf.ID),
			slog.Int64("row", row),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordCheckinFailure(conf.ID, "sheet_error")
		return nil, model.NewCheckinFailedError()
	}
	if !ok {
		// 参照後にシート側で行が消えた場合
		s.metrics.RecordCheckinFailure(conf.ID, "not_found")
		return nil, model.NewAttendeeNotFoundError(row)
	}

	event := &model.CheckinEvent{
		ID:           uuid.NewString(),
		ConferenceID: conf.ID,
		Row:          row,
		AttendeeName: attendee.Name,
		StaffName:    identity.StaffName,
		CheckedInAt:  at,
	}
	if err := s.events.Record(ctx, event); err != nil {
		// 監査記録の失敗ではチェックインを取り消さない
		slog.Error("failed to record checkin event",
			slog.String("conference_id", conf.ID),
			slog.Int64("row", row),
			slog.String("error", err.Error()),
		)
	}

	if conf.WebhookURL != "" && s.notifier != nil {
		go s.sendNotification(conf, attendee, identity.StaffName, at)
	}

	s.metrics.RecordCheckinSuccess(conf.ID)
	slog.Info("attendee checked in",
		slog.String("conference_id", conf.ID),
		slog.Int64("row", row),
		slog.String("attendee_name", attendee.Name),
		slog.String("staff_name", identity.StaffName),
	)

	return &model.CheckinResult{
		Row:          row,
		AttendeeName: attendee.Name,
		StaffName:    identity.StaffName,
		CheckedInAt:  at,
	}, nil
}

// ListEvents は指定カンファレンスの監査記録を新しい順に返す。
func (s *Service) ListEvents(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error) {
	return s.events.ListByConference(ctx, conferenceID, limit)
}

// sendNotification はWebhook通知を送信する。
// リクエストのライフサイクルから切り離して実行するため、独自のタイムアウトを持つ。
func (s *Service) sendNotification(conf *model.Conference, attendee *model.Attendee, staffName string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	notification := notify.CheckinNotification{
		ConferenceID:   conf.ID,
		ConferenceName: conf.Name,
		RowNumber:      attendee.Row,
		AttendeeName:   attendee.Name,
		StaffName:      staffName,
		CheckedInAt:    at,
	}
	// 送信失敗はNotifier側でログに残る。チェックインには影響させない。
	_ = s.notifier.NotifyCheckin(ctx, conf.WebhookURL, notification)
}
