// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はスプレッドシートから取り込む自由入力セル
//（備考・属性など）をサニタイズし、受付画面へ混入するマークアップから
// スタッフを保護する。bluemondayライブラリのStrictPolicyで全タグを
// 除去し、プレーンテキストのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は自由入力テキストのサニタイズ機能のインターフェースを定義する。
// 名簿スナップショットの取り込み時に使用される。
type ContentSanitizerService interface {
	// SanitizeText は自由入力テキストからHTMLタグを除去しプレーンテキストを返す。
	// script, iframe, img等のタグおよびon*イベント属性を含むマークアップは
	// すべて除去される。タグ除去後のHTMLエンティティは元の文字へ戻すため、
	// 「&」や「<」を含む普通のテキストはそのまま保たれる。
	// 出力はプレーンテキストとして扱うこと。HTMLとして再描画してはならない。
	// 空文字列の入力には空文字列を返す。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのStrictPolicyを構築する。
// StrictPolicyは許可タグを一切持たないため、入力中のすべてのタグが除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は自由入力テキストからHTMLタグを除去しプレーンテキストを返す。
// StrictPolicyの出力はHTMLエンティティでエスケープされているため、
// html.UnescapeStringで元の文字へ戻してから前後の空白を取り除く。
func (s *contentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
