package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Params captures the claims required to mint a token for local, CI and
// service-to-service use. No environment variables are read so the builder
// stays deterministic for tooling.
type Params struct {
	Subject        string        // actor id; sub claim (required)
	OrganizationID string        // org_id claim, a UUID (required)
	Role           string        // role claim (required)
	Issuer         string        // optional iss
	Audience       string        // optional aud
	ExpiresIn      time.Duration // relative expiry; default 1h if zero
}

func (p Params) claims(now time.Time) (jwt.MapClaims, error) {
	if strings.TrimSpace(p.Subject) == "" {
		return nil, errors.New("subject is required")
	}
	if _, err := uuid.Parse(strings.TrimSpace(p.OrganizationID)); err != nil {
		return nil, fmt.Errorf("organization id: %w", err)
	}
	if strings.TrimSpace(p.Role) == "" {
		return nil, errors.New("role is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	claims := jwt.MapClaims{
		"sub":    p.Subject,
		"org_id": strings.TrimSpace(p.OrganizationID),
		"role":   p.Role,
		"iat":    now.Unix(),
		"exp":    now.Add(expiresIn).Unix(),
	}
	if p.Issuer != "" {
		claims["iss"] = p.Issuer
	}
	if p.Audience != "" {
		claims["aud"] = p.Audience
	}
	return claims, nil
}

// BuildSigned returns an HS256 token accepted by the hmac auth provider.
func BuildSigned(p Params, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret is required")
	}
	claims, err := p.claims(now)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// BuildUnsigned returns a JWT string with alg "none" and no signature,
// accepted only when AUTH_PROVIDER=dev.
func BuildUnsigned(p Params, now time.Time) (string, error) {
	claims, err := p.claims(now)
	if err != nil {
		return "", err
	}

	header := map[string]interface{}{
		"alg": "none",
		"typ": "JWT",
	}

	headerSegment, err := encodeSegment(header)
	if err != nil {
		return "", err
	}

	payloadSegment, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s.%s.", headerSegment, payloadSegment), nil
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
