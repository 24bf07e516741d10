package refresh

import "time"

// backoffState はカンファレンス1件分の連続失敗状態。
type backoffState struct {
	consecutiveFailures int
	nextAttempt         time.Time
}

const (
	// initialBackoff は指数バックオフの初回遅延（2分）。
	initialBackoff = 2 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（30分）。
	// シート共有設定の誤りなど、人の対応が必要な失敗でも
	// イベント中に自動復帰できる上限に抑える。
	maxBackoff = 30 * time.Minute
)

// CalculateBackoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回2分、2倍ずつ増加、最大30分。
func CalculateBackoff(consecutiveFailures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
