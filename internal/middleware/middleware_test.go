package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func TestParseToken(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	got, err := auth.ParseToken(signToken(t, testSecret, validClaims(userID)))
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	expired := validClaims(userID)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = auth.ParseToken(signToken(t, testSecret, expired))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = auth.ParseToken(signToken(t, "other-secret", validClaims(userID)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ParseToken(signToken(t, testSecret, jwt.MapClaims{"user_id": "nope"}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ParseToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestJWTMiddleware(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	var seen uuid.UUID
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization format"},
		{"bad token", "Bearer abc", http.StatusUnauthorized, "Invalid token"},
		{"valid", "Bearer " + signToken(t, testSecret, validClaims(userID)), http.StatusNoContent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.body != "" {
				assert.Contains(t, rr.Body.String(), tc.body)
			}
		})
	}
	assert.Equal(t, userID, seen)
}

func TestChatRateLimit_PerUser(t *testing.T) {
	h := ChatRateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	alice, bob := uuid.New(), uuid.New()
	call := func(user uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, call(alice).Code)
	rr := call(alice)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = call(alice)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), `"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, call(bob).Code)
}

func TestUserOrIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	key, err := UserOrIPKey(req)
	require.NoError(t, err)
	assert.Equal(t, "ip:10.0.0.7", key)

	id := uuid.New()
	key, err = UserOrIPKey(req.WithContext(WithUserID(req.Context(), id)))
	require.NoError(t, err)
	assert.Equal(t, "user:"+id.String(), key)
}
