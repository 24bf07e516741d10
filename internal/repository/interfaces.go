// Package repository はデータ永続化と外部ストアアクセスのインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// ConferenceRepository はカンファレンス登録情報の永続化インターフェース。
type ConferenceRepository interface {
	// Create はカンファレンスを登録する。
	Create(ctx context.Context, conf *model.Conference) error

	// FindByID は指定IDのカンファレンスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Conference, error)

	// List は登録済みカンファレンスの一覧を登録順で返す。
	List(ctx context.Context) ([]*model.Conference, error)

	// ListActive は有効なカンファレンスの一覧を登録順で返す。
	// ワーカーの名簿リフレッシュ対象の列挙に使う。
	ListActive(ctx context.Context) ([]*model.Conference, error)

	// UpdatePassphraseHash は指定権限区分の合言葉ハッシュを差し替える。
	UpdatePassphraseHash(ctx context.Context, id string, role model.StaffRole, hash string) error

	// SetActive はカンファレンスの有効フラグを切り替える。
	SetActive(ctx context.Context, id string, active bool) error
}

// CheckinEventRepository はチェックイン監査記録の永続化インターフェース。
type CheckinEventRepository interface {
	// Record は監査記録を追記する。
	Record(ctx context.Context, event *model.CheckinEvent) error

	// ListByConference は指定カンファレンスの監査記録を新しい順に返す。
	// limitが0以下の場合はデフォルトの件数制限を適用する。
	ListByConference(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error)

	// DeleteOlderThan は指定時刻より古い監査記録を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// DirectoryRepository は参加者名簿を保持する外部ストアへのアクセスインターフェース。
// 名簿の正本は外部ストア側にあり、このインターフェースはスナップショットの取得と
// チェックイン書き込みだけを提供する。
type DirectoryRepository interface {
	// FetchSnapshot は名簿の全行をシート上の並び順のまま返す。
	// itemsは分割済み、checkedInは真偽値へ変換済みの状態で返る。
	FetchSnapshot(ctx context.Context, conf *model.Conference) ([]model.Attendee, error)

	// CheckIn は指定行にチェックイン済みフラグ・時刻・担当者名を書き込む。
	// 行が存在しない場合は(false, nil)を返し、エラーにはしない。
	// 外部ストアへの通信・認可の失敗はエラーとして返す。
	CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error)
}
