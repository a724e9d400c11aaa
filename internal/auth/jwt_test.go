package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-test-key"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, RoleAdmin, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.AdminID != 42 {
		t.Errorf("AdminID: got %d, want 42", claims.AdminID)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role: got %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject: got %q, want 42", claims.Subject)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != TokenDuration {
		t.Errorf("lifetime: got %s, want %s", got, TokenDuration)
	}
}

func TestParseToken_InvalidSecret(t *testing.T) {
	token, err := GenerateToken(1, RoleAdmin, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken(token, "wrong-secret"); err == nil {
		t.Fatal("expected error for invalid secret, got nil")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	if _, err := ParseToken("not.a.real.token", testSecret); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := generate(1, RoleAdmin, testSecret, time.Now().Add(-13*time.Hour))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = ParseToken(token, testSecret)
	if err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("error %q does not mention expiry", err)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		AdminID: 1,
		Role:    RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestParseToken_ForeignIssuer(t *testing.T) {
	claims := Claims{
		AdminID: 1,
		Role:    RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("expected foreign issuer to be rejected")
	}
}
