package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// defaultEventListLimit はListByConferenceの既定の取得件数。
const defaultEventListLimit = 100

// PostgresCheckinEventRepo はPostgreSQLを使用したチェックイン監査記録リポジトリ。
type PostgresCheckinEventRepo struct {
	db *sql.DB
}

// NewPostgresCheckinEventRepo はPostgresCheckinEventRepoを生成する。
func NewPostgresCheckinEventRepo(db *sql.DB) *PostgresCheckinEventRepo {
	return &PostgresCheckinEventRepo{db: db}
}

// Record は監査記録を追記する。
func (r *PostgresCheckinEventRepo) Record(ctx context.Context, event *model.CheckinEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkin_events (id, conference_id, row_number, attendee_name, staff_name, checked_in_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		event.ID, event.ConferenceID, event.Row, event.AttendeeName, event.StaffName, event.CheckedInAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record checkin event: %w", err)
	}
	return nil
}

// ListByConference は指定カンファレンスの監査記録を新しい順に返す。
func (r *PostgresCheckinEventRepo) ListByConference(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error) {
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conference_id, row_number, attendee_name, staff_name, checked_in_at, created_at
		 FROM checkin_events
		 WHERE conference_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		conferenceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkin events: %w", err)
	}
	defer rows.Close()

	var events []*model.CheckinEvent
	for rows.Next() {
		event := &model.CheckinEvent{}
		if err := rows.Scan(
			&event.ID, &event.ConferenceID, &event.Row, &event.AttendeeName,
			&event.StaffName, &event.CheckedInAt, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checkin event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkin events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan は指定時刻より古い監査記録を削除し、削除件数を返す。
func (r *PostgresCheckinEventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM checkin_events WHERE created_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old checkin events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// compile-time interface check
var _ CheckinEventRepository = (*PostgresCheckinEventRepo)(nil)
