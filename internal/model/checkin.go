// Package model はドメインモデルを定義する。
package model

import "time"

// CheckinEvent はチェックイン操作の監査記録を表す。
// 名簿の正本はスプレッドシート側にあるため、ここには「いつ誰が誰を
// 受け付けたか」の事実のみを残す。
type CheckinEvent struct {
	ID           string
	ConferenceID string
	Row          int64
	AttendeeName string
	StaffName    string
	CheckedInAt  time.Time
	CreatedAt    time.Time
}

// CheckinResult はチェックイン成功時にAPIへ返す結果を表す。
type CheckinResult struct {
	Row          int64
	AttendeeName string
	StaffName    string
	CheckedInAt  time.Time
}
