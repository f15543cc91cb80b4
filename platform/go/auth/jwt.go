package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerToken returns the credential from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	// Case-insensitive prefix match.
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(authHeader[len(prefix):])
	return token, token != ""
}
