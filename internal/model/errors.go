// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, directory, checkin, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthFailed           = "AUTH_FAILED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeInvalidSearchField   = "INVALID_SEARCH_FIELD"
	ErrCodeAttendeeNotFound     = "ATTENDEE_NOT_FOUND"
	ErrCodeAlreadyCheckedIn     = "ALREADY_CHECKED_IN"
	ErrCodeConferenceNotFound   = "CONFERENCE_NOT_FOUND"
	ErrCodeDirectoryUnavailable = "DIRECTORY_UNAVAILABLE"
	ErrCodeCheckinFailed        = "CHECKIN_FAILED"
)

// NewAuthFailedError はログイン失敗エラーを生成する。
// カンファレンス不明・合言葉不一致のいずれでも同一のエラーを返し、原因を区別させない。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "ログインに失敗しました。",
		Category: "auth",
		Action:   "カンファレンスIDと合言葉を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// トークン不正・期限切れ・未提示のいずれでも同一のエラーを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作には管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者の合言葉でログインし直してください。",
	}
}

// NewValidationError はリクエスト内容が不正な場合のエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidSearchFieldError は未知の検索対象フィールドが指定された場合のエラーを生成する。
func NewInvalidSearchFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSearchField,
		Message:  fmt.Sprintf("無効な検索フィールドです: %s", field),
		Category: "validation",
		Action:   "fieldsには name、name_kana、affiliation、items のいずれかを指定してください。",
	}
}

// NewAttendeeNotFoundError は参加者が名簿に見つからない場合のエラーを生成する。
func NewAttendeeNotFoundError(row int64) *APIError {
	return &APIError{
		Code:     ErrCodeAttendeeNotFound,
		Message:  fmt.Sprintf("指定された参加者が名簿に見つかりません: 行%d", row),
		Category: "checkin",
		Action:   "名簿を再読み込みしてから、もう一度お試しください。",
	}
}

// NewAlreadyCheckedInError はチェックイン済みの参加者を再度チェックインしようとした場合のエラーを生成する。
func NewAlreadyCheckedInError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyCheckedIn,
		Message:  fmt.Sprintf("%s さんは既にチェックイン済みです。", name),
		Category: "checkin",
		Action:   "名簿のチェックイン状況を確認してください。二重受付の可能性があります。",
	}
}

// NewConferenceNotFoundError はカンファレンスが登録されていない場合のエラーを生成する。
func NewConferenceNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeConferenceNotFound,
		Message:  fmt.Sprintf("カンファレンスが見つかりません: %s", id),
		Category: "validation",
		Action:   "カンファレンスIDを確認してください。",
	}
}

// NewDirectoryUnavailableError は名簿スプレッドシートの取得に失敗した場合のエラーを生成する。
func NewDirectoryUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDirectoryUnavailable,
		Message:  "参加者名簿の取得に失敗しました。",
		Category: "directory",
		Action:   "しばらく待ってから再度お試しください。続く場合はスプレッドシートの共有設定を確認してください。",
	}
}

// NewCheckinFailedError はチェックイン書き込みに失敗した場合のエラーを生成する。
func NewCheckinFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCheckinFailed,
		Message:  "チェックインの記録に失敗しました。",
		Category: "checkin",
		Action:   "名簿を再読み込みして状態を確認のうえ、もう一度お試しください。",
	}
}
