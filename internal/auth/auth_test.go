package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paypulse/internal/core"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokens_MintAndVerify(t *testing.T) {
	tokens := NewTokens(secret)
	raw, err := tokens.Mint("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	got, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != "user-42" {
		t.Errorf("Verify() = %q, want user-42", got)
	}

	if _, err := tokens.Mint("", time.Hour); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Mint(\"\") error = %v, want validation", err)
	}
}

func TestTokens_VerifyRejects(t *testing.T) {
	tokens := NewTokens(secret)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	expired, _ := tokens.Mint("u1", -time.Minute)
	foreign, _ := NewTokens("another-secret-another-secret-000").Mint("u1", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"no subject", noSubject},
		{"other algorithm", hs512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			if !errors.Is(err, core.ErrUnauthorized) {
				t.Errorf("Verify() error = %v, want unauthorized", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens(secret)
	good, _ := tokens.Mint("u1", time.Hour)

	var denied error
	deny := func(w http.ResponseWriter, _ *http.Request, err error) {
		denied = err
		w.WriteHeader(http.StatusUnauthorized)
	}
	handler := Middleware(tokens, deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok || user != "u1" {
			t.Errorf("UserFrom() = %q, %v", user, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + good, http.StatusNoContent},
		{"lowercase scheme", "bearer " + good, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"basic auth", "Basic dTE6cGFzcw==", http.StatusUnauthorized},
		{"tampered", "Bearer " + good + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			denied = nil
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !errors.Is(denied, core.ErrUnauthorized) {
				t.Errorf("deny error = %v", denied)
			}
		})
	}
}
