// Package directory は参加者名簿のドメインロジックを提供する。
//
// 名簿の正本はGoogleスプレッドシートにあり、本パッケージはその
// スナップショットをカンファレンスごとにキャッシュして検索・行参照を
// 提供する。チェックイン書き込み後はキャッシュを無効化し、次回参照時に
// 最新の名簿を取り込む。
package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/repository"
	"github.com/dskst/voxntry-sub001/internal/search"
	"github.com/dskst/voxntry-sub001/internal/security"
)

// snapshotEntry はカンファレンス1件分のキャッシュ済みスナップショット。
type snapshotEntry struct {
	attendees []model.Attendee
	fetchedAt time.Time
}

// Service は参加者名簿のサービス層。
// スナップショットの取得・キャッシュ・検索・行参照を提供する。
type Service struct {
	repo      repository.DirectoryRepository
	sanitizer security.ContentSanitizerService
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]snapshotEntry

	now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// ttlが0以下の場合はキャッシュを行わず毎回シートから取得する。
func NewService(repo repository.DirectoryRepository, sanitizer security.ContentSanitizerService, ttl time.Duration) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		ttl:       ttl,
		cache:     make(map[string]snapshotEntry),
		now:       time.Now,
	}
}

// Snapshot はカンファレンスの名簿スナップショットをシート上の並び順で返す。
// キャッシュが有効期限内であればキャッシュを返し、なければシートから取得する。
func (s *Service) Snapshot(ctx context.Context, conf *model.Conference) ([]model.Attendee, error) {
	if s.ttl > 0 {
		s.mu.RLock()
		entry, ok := s.cache[conf.ID]
		s.mu.RUnlock()
		if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
			return entry.attendees, nil
		}
	}
	return s.Refresh(ctx, conf)
}

// Refresh はキャッシュの状態に関わらずシートから名簿を取得し直す。
// 取り込み時に備考・属性の自由入力セルをサニタイズする。
// 同時リフレッシュはロックを持たずに取得し、最後の書き込みが勝つ。
func (s *Service) Refresh(ctx context.Context, conf *model.Conference) ([]model.Attendee, error) {
	attendees, err := s.repo.FetchSnapshot(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("名簿の取得に失敗しました: %w", err)
	}

	for i := range attendees {
		attendees[i].Memo = s.sanitizer.SanitizeText(attendees[i].Memo)
		attendees[i].Attributes = s.sanitizer.SanitizeText(attendees[i].Attributes)
	}

	s.mu.Lock()
	s.cache[conf.ID] = snapshotEntry{attendees: attendees, fetchedAt: s.now()}
	s.mu.Unlock()

	return attendees, nil
}

// Search はスナップショットを検索条件で絞り込んで返す。
// クエリが空または空白のみの場合はスナップショット全体をそのまま返す。
func (s *Service) Search(ctx context.Context, conf *model.Conference, query string, cfg search.Config) ([]model.Attendee, error) {
	attendees, err := s.Snapshot(ctx, conf)
	if err != nil {
		return nil, err
	}
	return search.Filter(attendees, query, cfg), nil
}

// FindByRow はシート行番号で参加者を1件参照する。
// キャッシュ中に見つからない場合はシートから取得し直して再度探す。
// それでも見つからない場合はnilを返す。
func (s *Service) FindByRow(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
	attendees, err := s.Snapshot(ctx, conf)
	if err != nil {
		return nil, err
	}
	if a := findRow(attendees, row); a != nil {
		return a, nil
	}

	// キャッシュが古く、シートに後から追加された行の可能性がある
	attendees, err = s.Refresh(ctx, conf)
	if err != nil {
		return nil, err
	}
	return findRow(attendees, row), nil
}

// CheckIn は指定行へチェックイン情報を書き込み、成功時にキャッシュを無効化する。
// 行が存在しない場合は(false, nil)を返す。
func (s *Service) CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
	ok, err := s.repo.CheckIn(ctx, conf, row, staffName, at)
	if err != nil {
		return false, fmt.Errorf("チェックインの書き込みに失敗しました: %w", err)
	}
	if ok {
		s.Invalidate(conf.ID)
	}
	return ok, nil
}

// Invalidate はカンファレンスのキャッシュ済みスナップショットを破棄する。
func (s *Service) Invalidate(conferenceID string) {
	s.mu.Lock()
	delete(s.cache, conferenceID)
	s.mu.Unlock()
}

// LastFetched はカンファレンスのスナップショットを最後に取得した時刻を返す。
// 一度も取得していない場合はゼロ値を返す。
func (s *Service) LastFetched(conferenceID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[conferenceID].fetchedAt
}

func findRow(attendees []model.Attendee, row int64) *model.Attendee {
	for i := range attendees {
		if attendees[i].Row == row {
			a := attendees[i]
			return &a
		}
	}
	return nil
}
