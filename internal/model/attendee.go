// Package model はドメインモデルを定義する。
package model

// Attendee は参加者名簿の1行を表す。
// Rowはスプレッドシート上の行番号（1始まり）で、チェックイン操作の参照キーになる。
// ItemsとNoveltiesは取り込み時に分割済み、CheckedInはシート上の文字列表現から
// 真偽値へ変換済みの値を保持する。
type Attendee struct {
	Row              int64
	Name             string
	NameKana         string
	Affiliation      string
	Items            []string
	CheckedIn        bool
	CheckedInAt      string
	StaffName        string
	Attributes       string
	BodySize         string
	Novelties        []string
	Memo             string
	AttendsReception bool
}
