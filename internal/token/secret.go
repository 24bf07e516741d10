// Package token はスタッフ身元情報を運ぶ署名付きセッショントークンの
// 発行と検証を提供する。
package token

import "os"

// MinSecretLength は署名シークレットに要求する最小文字数。
const MinSecretLength = 32

// SecretSource は署名シークレットの取得元を表す。
// CodecはIssue/Verifyのたびに読み直すため、返す値を差し替えれば
// プロセス再起動なしでローテーションが次の呼び出しから効く。
type SecretSource interface {
	Secret() string
}

// SecretFunc は関数をSecretSourceとして使うためのアダプタ。
type SecretFunc func() string

// Secret は関数を呼び出した結果を返す。
func (f SecretFunc) Secret() string {
	return f()
}

// StaticSecret は固定値のSecretSourceを返す。主に起動時に確定した設定値用。
func StaticSecret(s string) SecretSource {
	return SecretFunc(func() string { return s })
}

// EnvSecret は環境変数を毎回読み直すSecretSourceを返す。
func EnvSecret(name string) SecretSource {
	return SecretFunc(func() string { return os.Getenv(name) })
}
