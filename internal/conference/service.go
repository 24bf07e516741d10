// Package conference はカンファレンス登録と受付認証のドメインロジックを提供する。
package conference

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/repository"
	"github.com/dskst/voxntry-sub001/internal/security"
)

// minPassphraseLength は合言葉の最小文字数。
const minPassphraseLength = 8

// RegisterInput はカンファレンス登録の入力。
type RegisterInput struct {
	ID              string
	Name            string
	SpreadsheetID   string
	SheetName       string
	Columns         model.ColumnMapping
	StaffPassphrase string
	AdminPassphrase string
	WebhookURL      string
}

// Service はカンファレンス登録・認証のサービス層。
// 合言葉はbcryptハッシュとして保存し、平文は保持しない。
type Service struct {
	repo repository.ConferenceRepository
	ssrf security.SSRFGuardService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ConferenceRepository, ssrf security.SSRFGuardService) *Service {
	return &Service{
		repo: repo,
		ssrf: ssrf,
	}
}

// Register はカンファレンスを登録する。
// スタッフ用合言葉は必須、管理者用合言葉は任意。
// Webhook URLが指定されている場合は登録前に安全性を検証する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Conference, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	if input.WebhookURL != "" {
		if err := s.ssrf.ValidateURL(input.WebhookURL); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("Webhook URLが不正です: %v", err))
		}
	}

	staffHash, err := hashPassphrase(input.StaffPassphrase)
	if err != nil {
		return nil, fmt.Errorf("合言葉のハッシュ化に失敗しました: %w", err)
	}

	adminHash := ""
	if input.AdminPassphrase != "" {
		adminHash, err = hashPassphrase(input.AdminPassphrase)
		if err != nil {
			return nil, fmt.Errorf("合言葉のハッシュ化に失敗しました: %w", err)
		}
	}

	conf := &model.Conference{
		ID:                  input.ID,
		Name:                input.Name,
		SpreadsheetID:       input.SpreadsheetID,
		SheetName:           input.SheetName,
		Columns:             input.Columns,
		StaffPassphraseHash: staffHash,
		AdminPassphraseHash: adminHash,
		WebhookURL:          input.WebhookURL,
		Active:              true,
	}

	if err := s.repo.Create(ctx, conf); err != nil {
		return nil, fmt.Errorf("カンファレンスの登録に失敗しました: %w", err)
	}

	return conf, nil
}

// Authenticate は合言葉でスタッフを認証し、権限区分を判定する。
// 管理者用合言葉に一致した場合はadmin、スタッフ用合言葉に一致した場合はstaffを返す。
// カンファレンスが存在しない・無効化済み・合言葉不一致のいずれでも
// 同一の認証エラーを返し、失敗理由を外部から区別できないようにする。
func (s *Service) Authenticate(ctx context.Context, conferenceID, passphrase string) (*model.Conference, model.StaffRole, error) {
	conf, err := s.repo.FindByID(ctx, conferenceID)
	if err != nil {
		return nil, "", fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	if conf == nil || !conf.Active {
		return nil, "", model.NewAuthFailedError()
	}

	if conf.AdminPassphraseHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(conf.AdminPassphraseHash), []byte(passphrase)) == nil {
			return conf, model.RoleAdmin, nil
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(conf.StaffPassphraseHash), []byte(passphrase)) == nil {
		return conf, model.RoleStaff, nil
	}

	return nil, "", model.NewAuthFailedError()
}

// RotatePassphrase は指定権限区分の合言葉を新しいものへ差し替える。
// 発行済みの認証トークンには影響しない。
func (s *Service) RotatePassphrase(ctx context.Context, conferenceID string, role model.StaffRole, newPassphrase string) error {
	if !role.Valid() {
		return model.NewValidationError(fmt.Sprintf("不正な権限区分です: %s", role))
	}
	if len(newPassphrase) < minPassphraseLength {
		return model.NewValidationError(fmt.Sprintf("合言葉は%d文字以上で指定してください", minPassphraseLength))
	}

	hash, err := hashPassphrase(newPassphrase)
	if err != nil {
		return fmt.Errorf("合言葉のハッシュ化に失敗しました: %w", err)
	}

	if err := s.repo.UpdatePassphraseHash(ctx, conferenceID, role, hash); err != nil {
		return fmt.Errorf("合言葉の更新に失敗しました: %w", err)
	}

	return nil
}

// Get はカンファレンスを1件取得する。存在しない場合はエラーを返す。
func (s *Service) Get(ctx context.Context, conferenceID string) (*model.Conference, error) {
	conf, err := s.repo.FindByID(ctx, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	if conf == nil {
		return nil, model.NewConferenceNotFoundError(conferenceID)
	}
	return conf, nil
}

// List は登録済みカンファレンスを全件返す。
func (s *Service) List(ctx context.Context) ([]*model.Conference, error) {
	confs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カンファレンス一覧の取得に失敗しました: %w", err)
	}
	return confs, nil
}

// ListActive は有効なカンファレンスのみを返す。
func (s *Service) ListActive(ctx context.Context) ([]*model.Conference, error) {
	confs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("カンファレンス一覧の取得に失敗しました: %w", err)
	}
	return confs, nil
}

// SetActive はカンファレンスの有効・無効を切り替える。
// 無効化するとそのカンファレンスへのログインとチェックインは拒否される。
func (s *Service) SetActive(ctx context.Context, conferenceID string, active bool) error {
	if err := s.repo.SetActive(ctx, conferenceID, active); err != nil {
		return fmt.Errorf("カンファレンスの状態更新に失敗しました: %w", err)
	}
	return nil
}

func validateRegisterInput(input RegisterInput) error {
	var missing []string
	if strings.TrimSpace(input.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.SpreadsheetID) == "" {
		missing = append(missing, "spreadsheet_id")
	}
	if len(missing) > 0 {
		return model.NewValidationError(fmt.Sprintf("必須項目が指定されていません: %s", strings.Join(missing, ", ")))
	}

	if len(input.StaffPassphrase) < minPassphraseLength {
		return model.NewValidationError(fmt.Sprintf("スタッフ用合言葉は%d文字以上で指定してください", minPassphraseLength))
	}
	if input.AdminPassphrase != "" && len(input.AdminPassphrase) < minPassphraseLength {
		return model.NewValidationError(fmt.Sprintf("管理者用合言葉は%d文字以上で指定してください", minPassphraseLength))
	}

	return nil
}

func hashPassphrase(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
