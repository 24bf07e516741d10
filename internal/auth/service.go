// Package auth は合言葉認証とトークン発行のビジネスロジックを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// maxStaffNameRunes はトークンに埋め込むスタッフ名の最大文字数。
const maxStaffNameRunes = 100

// ConferenceAuthenticator は合言葉認証のインターフェース。
// カンファレンス登録サービスが実装する。
type ConferenceAuthenticator interface {
	// Authenticate は合言葉でスタッフを認証し、権限区分を判定する。
	Authenticate(ctx context.Context, conferenceID, passphrase string) (*model.Conference, model.StaffRole, error)
}

// TokenCodec は認証トークンの発行・検証のインターフェース。
type TokenCodec interface {
	// Issue はスタッフ識別情報から署名付きトークンを発行する。
	Issue(identity model.StaffIdentity) (string, error)
	// Verify はトークンを検証し、失敗時はnilを返す。
	Verify(raw string) *model.StaffIdentity
	// TTL はトークンの有効期間を返す。
	TTL() time.Duration
}

// LoginInput はログインの入力。
type LoginInput struct {
	ConferenceID string
	StaffName    string
	Passphrase   string
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	Identity  model.StaffIdentity
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
// 認証状態はトークン自体が持ち、サーバー側にセッションは保持しない。
type Service struct {
	conferences ConferenceAuthenticator
	codec       TokenCodec
}

// NewService はServiceを生成する。
func NewService(conferences ConferenceAuthenticator, codec TokenCodec) *Service {
	return &Service{
		conferences: conferences,
		codec:       codec,
	}
}

// Login は合言葉でスタッフを認証し、認証トークンを発行する。
// スタッフ名は前後の空白を取り除いたうえでトークンに埋め込む。
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	conferenceID := strings.TrimSpace(input.ConferenceID)
	staffName := strings.TrimSpace(input.StaffName)

	var missing []string
	if conferenceID == "" {
		missing = append(missing, "conference_id")
	}
	if staffName == "" {
		missing = append(missing, "staff_name")
	}
	if len(missing) > 0 {
		return nil, model.NewValidationError(fmt.Sprintf("必須項目が指定されていません: %s", strings.Join(missing, ", ")))
	}
	if utf8.RuneCountInString(staffName) > maxStaffNameRunes {
		return nil, model.NewValidationError(fmt.Sprintf("スタッフ名は%d文字以内で指定してください", maxStaffNameRunes))
	}

	conf, role, err := s.conferences.Authenticate(ctx, conferenceID, input.Passphrase)
	if err != nil {
		return nil, err
	}

	identity := model.StaffIdentity{
		ConferenceID: conf.ID,
		StaffName:    staffName,
		Role:         role,
	}

	tokenStr, err := s.codec.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	slog.Info("staff logged in",
		slog.String("conference_id", conf.ID),
		slog.String("staff_name", staffName),
		slog.String("role", string(role)),
	)

	return &LoginResult{
		Token:     tokenStr,
		Identity:  identity,
		ExpiresAt: time.Now().Add(s.codec.TTL()),
	}, nil
}

// VerifyToken はトークンを検証し、スタッフ識別情報を返す。
// 検証に失敗した場合はnilを返す。
func (s *Service) VerifyToken(raw string) *model.StaffIdentity {
	return s.codec.Verify(raw)
}

// LegacyIdentity は旧方式のCookie値からスタッフ識別情報を組み立てる。
// 旧方式には権限区分がないため、常にstaff権限として扱う。
// どちらかの値が空の場合はnilを返す。
func (s *Service) LegacyIdentity(conferenceID, staffName string) *model.StaffIdentity {
	conferenceID = strings.TrimSpace(conferenceID)
	staffName = strings.TrimSpace(staffName)
	if conferenceID == "" || staffName == "" {
		return nil
	}
	return &model.StaffIdentity{
		ConferenceID: conferenceID,
		StaffName:    staffName,
		Role:         model.RoleStaff,
	}
}

// TokenTTL は発行するトークンの有効期間を返す。
func (s *Service) TokenTTL() time.Duration {
	return s.codec.TTL()
}
