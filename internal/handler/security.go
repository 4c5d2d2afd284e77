package handler

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader carries the client key. The legacy "api_key" header is also
// accepted, as is "Authorization: Bearer <key>".
const APIKeyHeader = "X-API-Key"

// APIKeyGuard rejects requests that do not carry key with 401. Keys are
// compared as HMAC-SHA256 digests under a per-process pepper, in constant
// time. An empty key disables the guard.
func APIKeyGuard(key string) func(http.Handler) http.Handler {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	pepper := make([]byte, 32)
	_, _ = rand.Read(pepper)
	want := digest(pepper, key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestKey(r)
			if got == "" || subtle.ConstantTimeCompare(digest(pepper, got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `ApiKey header="`+APIKeyHeader+`"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func digest(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

func requestKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	if k := r.Header.Get("api_key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
