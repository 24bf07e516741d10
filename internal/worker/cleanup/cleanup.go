// Package cleanup はチェックイン監査記録の自動削除ジョブを提供する。
// 保持期間（デフォルト365日）を超過した監査記録を日次バッチで削除する。
// 名簿そのものは外部ストア側が正本を持つため、このジョブの対象外。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// AuditCleanupJob は保持期間を超過した監査記録の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type AuditCleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 監査記録の保持日数（デフォルト: 365）
}

// NewAuditCleanupJob は新しいAuditCleanupJobを生成する。
// デフォルトの保持日数は365日。
func NewAuditCleanupJob(db Executor, logger *slog.Logger) *AuditCleanupJob {
	return &AuditCleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 365,
	}
}

// Run は保持期間を超過した監査記録を削除する。
// created_atがRetentionDays日前より古いチェックイン記録をDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *AuditCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	query := `DELETE FROM checkin_events WHERE created_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("監査記録クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("監査記録クリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("監査記録クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
