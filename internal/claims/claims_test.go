package claims

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

func signClaims(t *testing.T, tc *TokenClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestDecodeReadsEmbeddedClaims(t *testing.T) {
	token := signClaims(t, &TokenClaims{
		UserID:                 "user-1",
		UserPlatformID:         "UPF-0001",
		OrganizationPlatformID: "ORG-0001",
		Role:                   "organization_admin",
		Email:                  "jane.doe@example.com",
	}, "whatever-secret")

	tc, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tc.UserID != "user-1" || tc.UserPlatformID != "UPF-0001" {
		t.Errorf("unexpected claims: %+v", tc)
	}
	if tc.OrganizationPlatformID != "ORG-0001" || tc.Role != "organization_admin" {
		t.Errorf("unexpected claims: %+v", tc)
	}
}

func TestDecodeEmptyToken(t *testing.T) {
	for _, token := range []string{"", "   "} {
		if _, err := Decode(token); !errors.Is(err, ErrNoSession) {
			t.Errorf("Decode(%q) = %v, want ErrNoSession", token, err)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	token := signClaims(t, &TokenClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	tc, err := Verify(token, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tc.UserID != "user-1" {
		t.Errorf("UserID = %q", tc.UserID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token := signClaims(t, &TokenClaims{UserID: "user-1"}, testSecret)
	if _, err := Verify(token, "a-different-secret-entirely-here"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token := signClaims(t, &TokenClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)
	if _, err := Verify(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &TokenClaims{UserID: "user-1"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify(s, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg=none must be rejected, got %v", err)
	}
}

func TestUserIdentifierPrefersUserID(t *testing.T) {
	tc := &TokenClaims{UserID: "explicit", RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"}}
	if got := tc.UserIdentifier(); got != "explicit" {
		t.Errorf("UserIdentifier() = %q", got)
	}
	tc = &TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"}}
	if got := tc.UserIdentifier(); got != "sub" {
		t.Errorf("UserIdentifier() = %q", got)
	}
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tc := &TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Second)),
	}}
	if !tc.ExpiresWithin(now, time.Minute) {
		t.Error("token expiring in 30s is within a 60s window")
	}
	if tc.ExpiresWithin(now, 10*time.Second) {
		t.Error("token expiring in 30s is not within a 10s window")
	}

	noExp := &TokenClaims{}
	if noExp.ExpiresWithin(now, time.Hour) {
		t.Error("token without expiry never reports expiring")
	}
}

func TestFormatRoleName(t *testing.T) {
	cases := map[string]string{
		"platform_admin":     "Platform Admin",
		"organization_admin": "Organization Admin",
		"entity_manager":     "Entity Manager",
		"admin":              "Admin",
		"":                   "",
	}
	for in, want := range cases {
		if got := FormatRoleName(in); got != want {
			t.Errorf("FormatRoleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"jane.doe@example.com":  "Jane Doe",
		"john_smith@example.io": "John Smith",
		"maria-lopez@x.org":     "Maria Lopez",
		"admin@example.com":     "Admin",
		"@example.com":          "",
		"":                      "",
	}
	for in, want := range cases {
		if got := NameFromEmail(in); got != want {
			t.Errorf("NameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractStorageURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"https://cdn.example.com/a.png"`, "https://cdn.example.com/a.png"},
		{"url object", `{"url":"https://cdn.example.com/b.png"}`, "https://cdn.example.com/b.png"},
		{"bucket and path", `{"bucket":"avatars","path":"u1/pic.png"}`, "/storage/avatars/u1/pic.png"},
		{"leading slash path", `{"bucket":"avatars","path":"/u1/pic.png"}`, "/storage/avatars/u1/pic.png"},
		{"empty", ``, ""},
		{"null", `null`, ""},
		{"unreadable", `[1,2,3]`, ""},
		{"object without usable fields", `{"size":123}`, ""},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractStorageURL([]byte(tt.raw)); got != tt.want {
				t.Errorf("ExtractStorageURL(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
