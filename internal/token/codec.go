package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dskst/voxntry-sub001/internal/model"
)

// DefaultTTL はログインで発行するトークンの有効期間。
const DefaultTTL = 24 * time.Hour

const defaultIssuer = "voxntry"

// ErrSecretRequired はシークレット未設定（または短すぎる）ことを表す。
// 運用上の設定ミスであり、リトライしても解消しない。
var ErrSecretRequired = errors.New("token: signing secret required (at least 32 characters)")

// Claims はトークンに埋め込むクレーム。身元情報3フィールドと標準クレームのみ。
// 型付きでデコードすることで、署名が正しくてもペイロード形状が
// 合わないトークン（数値のconference_id等）を検証段階で弾く。
type Claims struct {
	ConferenceID string `json:"conference_id"`
	StaffName    string `json:"staff_name"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// Config はCodecの動作設定。
type Config struct {
	// TTL は発行するトークンの有効期間。ゼロ値はDefaultTTL。
	TTL time.Duration
	// Issuer はissクレームに入れる発行者名。ゼロ値は"voxntry"。
	Issuer string
}

// Codec はHMAC-SHA256署名付きセッショントークンの発行・検証を行う。
// シークレットは保持せず、呼び出しのたびにSecretSourceから読み直す。
type Codec struct {
	secrets SecretSource
	ttl     time.Duration
	issuer  string
}

// NewCodec はCodecを生成する。
func NewCodec(secrets SecretSource, cfg Config) *Codec {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Codec{
		secrets: secrets,
		ttl:     ttl,
		issuer:  issuer,
	}
}

// Issue は身元情報を埋め込んだ署名付きトークンを発行する。
// シークレットが未設定または32文字未満の場合はErrSecretRequiredを返す。
// 身元情報の各フィールドは加工せずそのまま埋め込む（非ASCIIも往復で保存される）。
func (c *Codec) Issue(identity model.StaffIdentity) (string, error) {
	secret := c.secrets.Secret()
	if len(secret) < MinSecretLength {
		return "", ErrSecretRequired
	}

	now := time.Now()
	claims := Claims{
		ConferenceID: identity.ConferenceID,
		StaffName:    identity.StaffName,
		Role:         string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.New().String(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、成功時は埋め込まれた身元情報を返す。
//
// あらゆる失敗でnilを返し、エラーは返さない。失敗の内訳（改ざん・期限切れ・
// 形式不正・シークレット未設定）を呼び出し側に区別させないことで、
// 未認証リクエストへ検証内部の情報が漏れないようにする。
//
// 署名検証に加えて、デコード済みクレームに対して形状検証を行う:
// conference_id / staff_name が空でなく、roleが定義済み区分であること。
// 型の合わないクレーム（数値のconference_id等）はデコード自体が失敗する。
func (c *Codec) Verify(raw string) *model.StaffIdentity {
	secret := c.secrets.Secret()
	if len(secret) < MinSecretLength {
		return nil
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !t.Valid {
		return nil
	}

	if claims.ConferenceID == "" || claims.StaffName == "" {
		return nil
	}
	role := model.StaffRole(claims.Role)
	if !role.Valid() {
		return nil
	}

	return &model.StaffIdentity{
		ConferenceID: claims.ConferenceID,
		StaffName:    claims.StaffName,
		Role:         role,
	}
}

// TTL は発行するトークンの有効期間を返す。クッキーのMaxAge決定に使う。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}
