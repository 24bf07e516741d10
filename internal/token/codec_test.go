package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dskst/voxntry-sub001/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32文字

func newTestCodec(secret string) *Codec {
	return NewCodec(StaticSecret(secret), Config{})
}

// signRaw はテスト用に任意のクレームを署名したトークンを作る。
func signRaw(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestIssue_ProducesThreeSegmentToken(t *testing.T) {
	codec := newTestCodec(testSecret)

	signed, err := codec.Issue(model.StaffIdentity{
		ConferenceID: "conf-2026",
		StaffName:    "受付 太郎",
		Role:         model.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	segments := strings.Split(signed, ".")
	if len(segments) != 3 {
		t.Fatalf("token has %d segments, want 3", len(segments))
	}
	for i, seg := range segments {
		if seg == "" {
			t.Errorf("segment %d is empty", i)
		}
	}
}

func TestIssue_WithoutSecret_ReturnsError(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"未設定", ""},
		{"32文字未満", "short-secret"},
		{"31文字", strings.Repeat("x", 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := newTestCodec(tt.secret)

			_, err := codec.Issue(model.StaffIdentity{
				ConferenceID: "conf-2026",
				StaffName:    "受付 太郎",
				Role:         model.RoleStaff,
			})
			if err != ErrSecretRequired {
				t.Errorf("Issue() error = %v, want ErrSecretRequired", err)
			}
		})
	}
}

// TestVerify_RoundTrip は発行直後の検証で埋め込んだ身元情報が
// ビット単位で一致して復元されることを検証する。
func TestVerify_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		identity model.StaffIdentity
	}{
		{
			"ASCII",
			model.StaffIdentity{ConferenceID: "conf-2026", StaffName: "alice", Role: model.RoleStaff},
		},
		{
			"日本語スタッフ名",
			model.StaffIdentity{ConferenceID: "conf-2026", StaffName: "受付 太郎", Role: model.RoleAdmin},
		},
		{
			"絵文字と全角混在",
			model.StaffIdentity{ConferenceID: "カンファ２０２６", StaffName: "山田🎫花子", Role: model.RoleStaff},
		},
	}

	codec := newTestCodec(testSecret)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := codec.Issue(tt.identity)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			got := codec.Verify(signed)
			if got == nil {
				t.Fatal("Verify() = nil, want identity")
			}
			if *got != tt.identity {
				t.Errorf("Verify() = %+v, want %+v", *got, tt.identity)
			}
		})
	}
}

func TestVerify_WithDifferentSecret_ReturnsNil(t *testing.T) {
	issuer := newTestCodec(testSecret)
	signed, err := issuer.Issue(model.StaffIdentity{
		ConferenceID: "conf-2026",
		StaffName:    "受付 太郎",
		Role:         model.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	verifier := newTestCodec("ffffffffffffffffffffffffffffffff")
	if got := verifier.Verify(signed); got != nil {
		t.Errorf("Verify() with different secret = %+v, want nil", got)
	}
}

// TestVerify_SecretRotation はSecretSourceが毎回読み直されることを検証する。
// ローテーション後は旧シークレットで発行したトークンが即座に無効になる。
func TestVerify_SecretRotation(t *testing.T) {
	current := testSecret
	codec := NewCodec(SecretFunc(func() string { return current }), Config{})

	signed, err := codec.Issue(model.StaffIdentity{
		ConferenceID: "conf-2026",
		StaffName:    "受付 太郎",
		Role:         model.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if codec.Verify(signed) == nil {
		t.Fatal("Verify() before rotation = nil, want identity")
	}

	// ローテーション。再起動なしで次の呼び出しから効くこと。
	current = "new-secret-new-secret-new-secret!!"
	if got := codec.Verify(signed); got != nil {
		t.Errorf("Verify() after rotation = %+v, want nil", got)
	}
}

func TestVerify_ExpiredToken_ReturnsNil(t *testing.T) {
	signed := signRaw(t, testSecret, jwt.MapClaims{
		"conference_id": "conf-2026",
		"staff_name":    "受付 太郎",
		"role":          "staff",
		"iat":           time.Now().Add(-25 * time.Hour).Unix(),
		"exp":           time.Now().Add(-1 * time.Hour).Unix(),
	})

	codec := newTestCodec(testSecret)
	if got := codec.Verify(signed); got != nil {
		t.Errorf("Verify(expired) = %+v, want nil", got)
	}
}

func TestVerify_MissingExpiry_ReturnsNil(t *testing.T) {
	// expを持たないトークンは正規の発行経路では生まれない
	signed := signRaw(t, testSecret, jwt.MapClaims{
		"conference_id": "conf-2026",
		"staff_name":    "受付 太郎",
		"role":          "staff",
	})

	codec := newTestCodec(testSecret)
	if got := codec.Verify(signed); got != nil {
		t.Errorf("Verify(no exp) = %+v, want nil", got)
	}
}

func TestVerify_MalformedToken_ReturnsNil(t *testing.T) {
	codec := newTestCodec(testSecret)

	tests := []struct {
		name string
		raw  string
	}{
		{"空文字", ""},
		{"区切りなし", "notatoken"},
		{"3分割だが中身が不正", "invalid.token.here"},
		{"2分割", "aaaa.bbbb"},
		{"4分割", "aaaa.bbbb.cccc.dddd"},
		{"空セグメント", ".."},
		{"base64でないセグメント", "!!!.???.***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codec.Verify(tt.raw); got != nil {
				t.Errorf("Verify(%q) = %+v, want nil", tt.raw, got)
			}
		})
	}
}

// TestVerify_InvalidPayloadShape_ReturnsNil は署名自体は正しいが
// ペイロード形状が契約に合わないトークンの拒否を検証する。
func TestVerify_InvalidPayloadShape_ReturnsNil(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{
			"roleが列挙外",
			jwt.MapClaims{"conference_id": "conf-2026", "staff_name": "受付 太郎", "role": "superuser", "exp": future},
		},
		{
			"role欠落",
			jwt.MapClaims{"conference_id": "conf-2026", "staff_name": "受付 太郎", "exp": future},
		},
		{
			"conference_idが数値",
			jwt.MapClaims{"conference_id": 2026, "staff_name": "受付 太郎", "role": "staff", "exp": future},
		},
		{
			"staff_nameがnull",
			jwt.MapClaims{"conference_id": "conf-2026", "staff_name": nil, "role": "staff", "exp": future},
		},
		{
			"staff_nameが真偽値",
			jwt.MapClaims{"conference_id": "conf-2026", "staff_name": true, "role": "staff", "exp": future},
		},
		{
			"conference_id欠落",
			jwt.MapClaims{"staff_name": "受付 太郎", "role": "staff", "exp": future},
		},
		{
			"roleが大文字",
			jwt.MapClaims{"conference_id": "conf-2026", "staff_name": "受付 太郎", "role": "Admin", "exp": future},
		},
	}

	codec := newTestCodec(testSecret)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := signRaw(t, testSecret, tt.claims)
			if got := codec.Verify(signed); got != nil {
				t.Errorf("Verify() = %+v, want nil", got)
			}
		})
	}
}

func TestVerify_UnsignedAlgorithm_ReturnsNil(t *testing.T) {
	// alg=noneのトークンはHMAC強制で弾かれる
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"conference_id": "conf-2026",
		"staff_name":    "受付 太郎",
		"role":          "staff",
		"exp":           time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	codec := newTestCodec(testSecret)
	if got := codec.Verify(unsigned); got != nil {
		t.Errorf("Verify(alg=none) = %+v, want nil", got)
	}
}

func TestVerify_WithoutSecret_ReturnsNil(t *testing.T) {
	issuer := newTestCodec(testSecret)
	signed, err := issuer.Issue(model.StaffIdentity{
		ConferenceID: "conf-2026",
		StaffName:    "受付 太郎",
		Role:         model.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// 検証側のシークレットが未設定ならエラーではなくnil
	verifier := newTestCodec("")
	if got := verifier.Verify(signed); got != nil {
		t.Errorf("Verify() without secret = %+v, want nil", got)
	}
}

func TestNewCodec_Defaults(t *testing.T) {
	codec := NewCodec(StaticSecret(testSecret), Config{})

	if codec.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", codec.TTL(), DefaultTTL)
	}
}

func TestNewCodec_CustomTTL(t *testing.T) {
	codec := NewCodec(StaticSecret(testSecret), Config{TTL: time.Hour})

	if codec.TTL() != time.Hour {
		t.Errorf("TTL() = %v, want %v", codec.TTL(), time.Hour)
	}
}
