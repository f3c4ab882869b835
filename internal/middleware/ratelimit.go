package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

// ChatRateLimit limits requests per authenticated user, or per client IP
// when no user is attached. Mount it after JWTAuth.Middleware.
func ChatRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(UserOrIPKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
		}),
	)
}

// UserOrIPKey is an httprate.KeyFunc.
func UserOrIPKey(r *http.Request) (string, error) {
	if id := GetUserID(r.Context()); id != uuid.Nil {
		return "user:" + id.String(), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
