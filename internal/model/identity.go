// Package model はドメインモデルを定義する。
package model

// StaffRole は受付スタッフの権限区分を表す。
type StaffRole string

const (
	// RoleStaff は一般受付スタッフ。
	RoleStaff StaffRole = "staff"
	// RoleAdmin はカンファレンス管理者。チェックイン履歴の閲覧が可能。
	RoleAdmin StaffRole = "admin"
)

// Valid は定義済みの権限区分かどうかを返す。
func (r StaffRole) Valid() bool {
	switch r {
	case RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// StaffIdentity は認証済み受付スタッフの身元情報を表す。
// セッショントークンのペイロードとしてそのまま埋め込まれ、
// 検証成功時には埋め込んだ値がビット単位で一致して復元される。
type StaffIdentity struct {
	ConferenceID string
	StaffName    string
	Role         StaffRole
}
