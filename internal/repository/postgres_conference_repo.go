package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// PostgresConferenceRepo はPostgreSQLを使用したカンファレンスリポジトリ。
type PostgresConferenceRepo struct {
	db *sql.DB
}

// NewPostgresConferenceRepo はPostgresConferenceRepoを生成する。
func NewPostgresConferenceRepo(db *sql.DB) *PostgresConferenceRepo {
	return &PostgresConferenceRepo{db: db}
}

// Create はカンファレンスを登録する。
func (r *PostgresConferenceRepo) Create(ctx context.Context, conf *model.Conference) error {
	columns, err := json.Marshal(conf.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal column mapping: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conferences (id, name, spreadsheet_id, sheet_name, columns, staff_passphrase_hash, admin_passphrase_hash, webhook_url, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		conf.ID, conf.Name, conf.SpreadsheetID, conf.SheetName, columns,
		conf.StaffPassphraseHash, conf.AdminPassphraseHash, conf.WebhookURL, conf.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create conference: %w", err)
	}
	return nil
}

// FindByID は指定IDのカンファレンスを取得する。見つからない場合はnilを返す。
func (r *PostgresConferenceRepo) FindByID(ctx context.Context, id string) (*model.Conference, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, spreadsheet_id, sheet_name, columns, staff_passphrase_hash, admin_passphrase_hash, webhook_url, active, created_at, updated_at
		 FROM conferences
		 WHERE id = $1`,
		id,
	)

	conf, err := scanConference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conference: %w", err)
	}
	return conf, nil
}

// List は登録済みカンファレンスの一覧を登録順で返す。
func (r *PostgresConferenceRepo) List(ctx context.Context) ([]*model.Conference, error) {
	return r.list(ctx,
		`SELECT id, name, spreadsheet_id, sheet_name, columns, staff_passphrase_hash, admin_passphrase_hash, webhook_url, active, created_at, updated_at
		 FROM conferences
		 ORDER BY created_at`,
	)
}

// ListActive は有効なカンファレンスの一覧を登録順で返す。
func (r *PostgresConferenceRepo) ListActive(ctx context.Context) ([]*model.Conference, error) {
	return r.list(ctx,
		`SELECT id, name, spreadsheet_id, sheet_name, columns, staff_passphrase_hash, admin_passphrase_hash, webhook_url, active, created_at, updated_at
		 FROM conferences
		 WHERE active = TRUE
		 ORDER BY created_at`,
	)
}

func (r *PostgresConferenceRepo) list(ctx context.Context, query string) ([]*model.Conference, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conferences: %w", err)
	}
	defer rows.Close()

	var confs []*model.Conference
	for rows.Next() {
		conf, err := scanConference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conference: %w", err)
		}
		confs = append(confs, conf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conferences: %w", err)
	}
	return confs, nil
}

// UpdatePassphraseHash は指定権限区分の合言葉ハッシュを差し替える。
func (r *PostgresConferenceRepo) UpdatePassphraseHash(ctx context.Context, id string, role model.StaffRole, hash string) error {
	var column string
	switch role {
	case model.RoleStaff:
		column = "staff_passphrase_hash"
	case model.RoleAdmin:
		column = "admin_passphrase_hash"
	default:
		return fmt.Errorf("unknown staff role: %q", role)
	}

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE conferences SET %s = $1, updated_at = now() WHERE id = $2`, column),
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update passphrase hash: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return model.NewConferenceNotFoundError(id)
	}
	return nil
}

// SetActive はカンファレンスの有効フラグを切り替える。
func (r *PostgresConferenceRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE conferences SET active = $1, updated_at = now() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update active flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return model.NewConferenceNotFoundError(id)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConference(s rowScanner) (*model.Conference, error) {
	conf := &model.Conference{}
	var columns []byte
	err := s.Scan(
		&conf.ID, &conf.Name, &conf.SpreadsheetID, &conf.SheetName, &columns,
		&conf.StaffPassphraseHash, &conf.AdminPassphraseHash, &conf.WebhookURL,
		&conf.Active, &conf.CreatedAt, &conf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &conf.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal column mapping: %w", err)
		}
	}
	return conf, nil
}

// compile-time interface check
var _ ConferenceRepository = (*PostgresConferenceRepo)(nil)
