// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dskst/voxntry-sub001/internal/model"
)

const (
	// authTokenCookieName は署名付きトークンを保持するHttpOnly Cookieの名前。
	authTokenCookieName = "auth_token"

	// 旧フロントエンドが使用していたCookieペア。移行期間中のみ参照する。
	legacyConferenceCookieName = "voxntry_conf_id"
	legacyStaffNameCookieName  = "voxntry_staff_name"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストにスタッフアイデンティティを格納するためのキー。
var identityContextKey = contextKey("staff_identity")

// IdentityResolver はトークンとレガシーCookieからアイデンティティを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type IdentityResolver interface {
	VerifyToken(raw string) *model.StaffIdentity
	LegacyIdentity(conferenceID, staffName string) *model.StaffIdentity
}

// TokenRejectionMetrics は認証拒否の計数に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type TokenRejectionMetrics interface {
	RecordTokenRejection()
}

// NewTokenAuthMiddleware はHTTP Only Cookieの署名付きトークンを検証し、
// スタッフアイデンティティをリクエストコンテキストに注入するミドルウェアを返す。
// allowLegacyCookiesが真の場合、トークンが無いリクエストに限り
// 旧Cookieペア(voxntry_conf_id / voxntry_staff_name)からの認証を許可する。
// トークンが提示されていればトークンの検証結果が常に優先される。
// 未認証リクエストには失敗理由を区別しない401を返し、metricsがあれば拒否を計数する。
func NewTokenAuthMiddleware(resolver IdentityResolver, allowLegacyCookies bool, metrics TokenRejectionMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := resolveIdentity(r, resolver, allowLegacyCookies)
			if identity == nil {
				if metrics != nil {
					metrics.RecordTokenRejection()
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAdminMiddleware は管理者ロールを要求するミドルウェアを返す。
// NewTokenAuthMiddlewareの後段に配置する。
func NewRequireAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if identity.Role != model.RoleAdmin {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveIdentity はリクエストからスタッフアイデンティティを解決する。
// 1. auth_token Cookieがあればトークンを検証する。検証失敗はレガシーに引き継がない。
// 2. トークンが無く、レガシーCookieが許可されていれば旧Cookieペアを読む。
func resolveIdentity(r *http.Request, resolver IdentityResolver, allowLegacyCookies bool) *model.StaffIdentity {
	if cookie, err := r.Cookie(authTokenCookieName); err == nil && cookie.Value != "" {
		return resolver.VerifyToken(cookie.Value)
	}

	if !allowLegacyCookies {
		return nil
	}

	confCookie, err := r.Cookie(legacyConferenceCookieName)
	if err != nil || confCookie.Value == "" {
		return nil
	}
	staffCookie, err := r.Cookie(legacyStaffNameCookieName)
	if err != nil || staffCookie.Value == "" {
		return nil
	}

	return resolver.LegacyIdentity(
		decodeLegacyCookieValue(confCookie.Value),
		decodeLegacyCookieValue(staffCookie.Value),
	)
}

// decodeLegacyCookieValue は旧フロントエンドがencodeURIComponentで
// 書き込んだCookie値を復号する。復号できない値はそのまま返す。
func decodeLegacyCookieValue(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// IdentityFromContext はリクエストコンテキストからスタッフアイデンティティを取得する。
// トークン認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.StaffIdentity, error) {
	identity, ok := ctx.Value(identityContextKey).(model.StaffIdentity)
	if !ok || identity.ConferenceID == "" {
		return model.StaffIdentity{}, fmt.Errorf("staff identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにスタッフアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.StaffIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
