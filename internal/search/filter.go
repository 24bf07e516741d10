package search

import (
	"strings"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// Field は絞り込み対象の名簿フィールドを識別する。
type Field string

const (
	FieldName        Field = "name"
	FieldNameKana    Field = "name_kana"
	FieldAffiliation Field = "affiliation"
	FieldItems       Field = "items"
)

// KnownField は定義済みの検索フィールドかどうかを返す。
// Filter自体は未知のフィールドを単に「一致しない」として扱うが、
// APIの入力検証ではタイポを弾くためにこれを使う。
func KnownField(f Field) bool {
	switch f {
	case FieldName, FieldNameKana, FieldAffiliation, FieldItems:
		return true
	}
	return false
}

// Config は絞り込みの挙動を決める設定。
type Config struct {
	// Fields は比較対象のフィールド。いずれか1つでも一致すればレコードは残る。
	Fields []Field
	// Normalize が真なら検索語とフィールド値の双方にNormalizeを適用する。
	// 偽なら小文字化のみで比較する。
	Normalize bool
}

// DefaultConfig は受付画面の標準設定（氏名・かな・所属、正規化あり）を返す。
func DefaultConfig() Config {
	return Config{
		Fields:    []Field{FieldName, FieldNameKana, FieldAffiliation},
		Normalize: true,
	}
}

// Filter はrecordsをqueryで絞り込んだ新しいスライスを返す。
//
// queryが空または空白のみの場合は入力スライスをそのまま返す（正規化も比較も行わない）。
// それ以外の場合、検索語を一度だけ計算し、各レコードを設定されたフィールドと
// 部分一致で比較する。入力順は保たれ、重複除去や入力の変更は行わない。
func Filter(records []model.Attendee, query string, cfg Config) []model.Attendee {
	if strings.TrimSpace(query) == "" {
		return records
	}

	term := canonical(query, cfg.Normalize)

	matched := make([]model.Attendee, 0, len(records))
	for _, a := range records {
		if matches(a, term, cfg) {
			matched = append(matched, a)
		}
	}
	return matched
}

// matches はレコードがいずれかの設定フィールドで検索語に一致するかを返す。
func matches(a model.Attendee, term string, cfg Config) bool {
	for _, f := range cfg.Fields {
		for _, v := range fieldValues(a, f) {
			if v == "" {
				continue
			}
			if strings.Contains(canonical(v, cfg.Normalize), term) {
				return true
			}
		}
	}
	return false
}

// fieldValues はレコードから比較対象の値を取り出す。未知のフィールドはnil。
func fieldValues(a model.Attendee, f Field) []string {
	switch f {
	case FieldName:
		return []string{a.Name}
	case FieldNameKana:
		return []string{a.NameKana}
	case FieldAffiliation:
		return []string{a.Affiliation}
	case FieldItems:
		return a.Items
	}
	return nil
}

// canonical は比較用の表現を返す。正規化オフ時は小文字化のみ。
func canonical(s string, normalize bool) string {
	if normalize {
		return Normalize(s)
	}
	return strings.ToLower(s)
}
