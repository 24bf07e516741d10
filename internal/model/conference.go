// Package model はドメインモデルを定義する。
package model

import "time"

// Conference は運営対象のカンファレンスを表す。
// 参加者名簿はGoogleスプレッドシート側が正であり、サービス側は
// その所在（SpreadsheetID/SheetName/Columns）と認証情報のみを保持する。
type Conference struct {
	ID                  string
	Name                string
	SpreadsheetID       string
	SheetName           string
	Columns             ColumnMapping
	StaffPassphraseHash string
	AdminPassphraseHash string
	WebhookURL          string
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ColumnMapping はスプレッドシート上の名簿レイアウトを表す。
// 各フィールドは0始まりの列インデックス。DataStartRowはヘッダを除いた
// データ先頭行（1始まり）。JSONBとして保存されるためタグを持つ。
type ColumnMapping struct {
	DataStartRow     int64 `json:"data_start_row"`
	Affiliation      int   `json:"affiliation"`
	Name             int   `json:"name"`
	NameKana         int   `json:"name_kana"`
	Items            int   `json:"items"`
	CheckedIn        int   `json:"checked_in"`
	CheckedInAt      int   `json:"checked_in_at"`
	StaffName        int   `json:"staff_name"`
	Attributes       int   `json:"attributes"`
	BodySize         int   `json:"body_size"`
	Novelties        int   `json:"novelties"`
	Memo             int   `json:"memo"`
	AttendsReception int   `json:"attends_reception"`
}

// DefaultColumnMapping は標準レイアウト（A列=氏名〜L列=懇親会参加、データは2行目から）を返す。
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		DataStartRow:     2,
		Name:             0,
		NameKana:         1,
		Affiliation:      2,
		Items:            3,
		CheckedIn:        4,
		CheckedInAt:      5,
		StaffName:        6,
		Attributes:       7,
		BodySize:         8,
		Novelties:        9,
		Memo:             10,
		AttendsReception: 11,
	}
}

// OrDefault は未設定（ゼロ値）のマッピングを標準レイアウトに読み替える。
// DataStartRowは1始まりの行番号のため、0は未設定としてのみ現れる。
func (m ColumnMapping) OrDefault() ColumnMapping {
	if m.DataStartRow == 0 {
		return DefaultColumnMapping()
	}
	return m
}

// MaxIndex はマッピング中の最大列インデックスを返す。取得レンジの右端決定に使う。
func (m ColumnMapping) MaxIndex() int {
	max := 0
	for _, idx := range []int{
		m.Affiliation, m.Name, m.NameKana, m.Items,
		m.CheckedIn, m.CheckedInAt, m.StaffName, m.Attributes,
		m.BodySize, m.Novelties, m.Memo, m.AttendsReception,
	} {
		if idx > max {
			max = idx
		}
	}
	return max
}
