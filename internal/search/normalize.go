// Package search は参加者名簿の多言語検索（正規化と絞り込み）を提供する。
package search

import "strings"

const (
	katakanaStart = 'ァ' // ァ
	katakanaEnd   = 'ヶ' // ヶ

	fullwidthUpperA = 'Ａ'
	fullwidthUpperZ = 'Ｚ'
	fullwidthLowerA = 'ａ'
	fullwidthLowerZ = 'ｚ'
	fullwidthZero   = '０'
	fullwidthNine   = '９'

	// カタカナ→ひらがな、全角英数→ASCIIのコードポイント差分
	kanaOffset      = 0x60
	fullwidthOffset = 0xFEE0

	ideographicSpace = '　'
)

// Normalize は検索語と名簿フィールドの比較用正規形を返す。
// 変換は次の順で適用される:
//
//  1. カタカナ（ァ〜ヶ）をひらがなへ
//  2. 全角英数（Ａ-Ｚａ-ｚ０-９）をASCIIへ
//  3. 全角スペース（U+3000）を半角スペースへ
//  4. 小文字化
//  5. 前後の空白を除去
//
// 上記以外の文字（半角カナ、記号、漢字など）はそのまま通す。
// Normalize(Normalize(s)) == Normalize(s) が常に成り立つ。
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= katakanaStart && r <= katakanaEnd:
			return r - kanaOffset
		case r >= fullwidthUpperA && r <= fullwidthUpperZ,
			r >= fullwidthLowerA && r <= fullwidthLowerZ,
			r >= fullwidthZero && r <= fullwidthNine:
			return r - fullwidthOffset
		case r == ideographicSpace:
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(strings.ToLower(mapped))
}
