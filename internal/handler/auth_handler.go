// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dskst/voxntry-sub001/internal/auth"
	"github.com/dskst/voxntry-sub001/internal/middleware"
	"github.com/dskst/voxntry-sub001/internal/model"
)

const authTokenCookieName = "auth_token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は合言葉でスタッフを認証し、認証トークンを発行する。
	Login(ctx context.Context, input auth.LoginInput) (*auth.LoginResult, error)
}

// LoginMetrics はログイン結果のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type LoginMetrics interface {
	RecordLoginSuccess(role string)
	RecordLoginFailure()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	TokenMaxAge  int // 認証トークンCookieの有効期間（秒）
}

// AuthHandler は合言葉認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics LoginMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
// metricsがnilの場合はログイン結果のメトリクスを記録しない。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics LoginMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	ConferenceID string `json:"conference_id"`
	StaffName    string `json:"staff_name"`
	Passphrase   string `json:"passphrase"`
}

// loginResponse はログイン成功時のAPIレスポンス。
type loginResponse struct {
	ConferenceID string `json:"conference_id"`
	StaffName    string `json:"staff_name"`
	Role         string `json:"role"`
	ExpiresAt    string `json:"expires_at"`
}

// Login は合言葉によるログインを処理する。
// 成功時は認証トークンをHttpOnly Cookieに設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.Login(r.Context(), auth.LoginInput{
		ConferenceID: req.ConferenceID,
		StaffName:    req.StaffName,
		Passphrase:   req.Passphrase,
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAuthFailed && h.metrics != nil {
			h.metrics.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	// 認証トークンをCookieに設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.TokenMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess(string(result.Identity.Role))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		ConferenceID: result.Identity.ConferenceID,
		StaffName:    result.Identity.StaffName,
		Role:         string(result.Identity.Role),
		ExpiresAt:    result.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout は認証トークンCookieを破棄する。
// トークンはサーバー側に状態を持たないため、Cookieの削除のみを行う。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインスタッフ情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"conference_id": identity.ConferenceID,
		"staff_name":    identity.StaffName,
		"role":          string(identity.Role),
	})
}
