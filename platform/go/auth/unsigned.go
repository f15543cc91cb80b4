package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnsignedVerifier decodes unsigned JWT payloads without signature checks.
// It is only wired when AUTH_PROVIDER=dev. Expiry is still enforced so local
// runs exercise the same rejection paths as production.
type UnsignedVerifier struct {
	now func() time.Time
}

// NewUnsignedVerifier returns a development verifier.
func NewUnsignedVerifier() *UnsignedVerifier {
	return &UnsignedVerifier{now: time.Now}
}

// Verify implements Verifier.
func (v *UnsignedVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, &Error{Kind: KindAbsent}
	}

	claims, err := parseUnsignedJWTClaims(raw)
	if err != nil {
		return Identity{}, &Error{Kind: KindMalformed, Err: err}
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return Identity{}, malformed("missing exp claim")
	}
	if v.now().After(time.Unix(int64(exp), 0)) {
		return Identity{}, &Error{Kind: KindExpired}
	}

	return identityFromClaims(claims)
}

func parseUnsignedJWTClaims(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}

	payload := parts[1]
	switch len(payload) % 4 {
	case 2:
		payload += "=="
	case 3:
		payload += "="
	}

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	claims := make(map[string]interface{})
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	return claims, nil
}
