package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skportal/feedback-inbox/internal/operator"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	claims := operator.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Kagawad Cruz",
		Role: "kagawad",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authedHandler(t *testing.T) (http.Handler, *operator.Identity) {
	t.Helper()
	var seen operator.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return Auth(testSecret)(inner), &seen
}

func TestAuthPassesIdentityThrough(t *testing.T) {
	h, seen := authedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.AgentID != "agent-1" || seen.Name != "Kagawad Cruz" || seen.Role != "kagawad" {
		t.Fatalf("unexpected identity: %+v", *seen)
	}
}

func TestAuthRejectsMissingAndMalformedHeaders(t *testing.T) {
	h, _ := authedHandler(t)

	for _, header := range []string{"", "Bearer", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	h, _ := authedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}

func TestValidateMessageContent(t *testing.T) {
	if err := ValidateMessageContent("hello"); err != nil {
		t.Fatalf("valid content rejected: %v", err)
	}
	if err := ValidateMessageContent("   "); err == nil {
		t.Fatalf("whitespace-only content accepted")
	}
	long := make([]byte, 10001)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateMessageContent(string(long)); err == nil {
		t.Fatalf("oversized content accepted")
	}
}
