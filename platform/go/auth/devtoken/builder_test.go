package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const orgID = "8d0f1f5e-8f3e-4c47-9a53-0a4f2f0b3c11"

func TestBuildUnsigned(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := BuildUnsigned(Params{
		Subject:        "actor-123",
		OrganizationID: orgID,
		Role:           "admin",
		ExpiresIn:      time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header, payload := splitToken(t, token)
	if got, want := header["alg"], "none"; got != want {
		t.Fatalf("header alg = %v, want %v", got, want)
	}
	if got, want := payload["sub"], "actor-123"; got != want {
		t.Errorf("sub = %v, want %v", got, want)
	}
	if got, want := payload["org_id"], orgID; got != want {
		t.Errorf("org_id = %v, want %v", got, want)
	}
	if got, want := payload["role"], "admin"; got != want {
		t.Errorf("role = %v, want %v", got, want)
	}
	if got, want := payload["exp"], float64(now.Add(time.Hour).Unix()); got != want {
		t.Errorf("exp = %v, want %v", got, want)
	}
	if _, ok := payload["iss"]; ok {
		t.Errorf("iss should be omitted when not configured")
	}
}

func TestBuildSigned(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now().UTC()

	token, err := BuildSigned(Params{
		Subject:        "actor-123",
		OrganizationID: orgID,
		Role:           "viewer",
		Issuer:         "fieldops",
	}, secret, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return secret, nil })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if got, want := claims["iss"], "fieldops"; got != want {
		t.Errorf("iss = %v, want %v", got, want)
	}
	if got, want := parsed.Method.Alg(), "HS256"; got != want {
		t.Errorf("alg = %v, want %v", got, want)
	}
}

func TestBuildRejectsIncompleteParams(t *testing.T) {
	cases := map[string]Params{
		"missing subject": {OrganizationID: orgID, Role: "admin"},
		"bad org":         {Subject: "a", OrganizationID: "acme", Role: "admin"},
		"missing role":    {Subject: "a", OrganizationID: orgID},
	}
	for name, p := range cases {
		if _, err := BuildUnsigned(p, time.Time{}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := BuildSigned(Params{Subject: "a", OrganizationID: orgID, Role: "admin"}, nil, time.Time{}); err == nil {
		t.Errorf("expected error for empty secret")
	}
}

func splitToken(t *testing.T, token string) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		t.Fatalf("invalid token format: %q", token)
	}

	header := decodeSegment(t, parts[0])
	payload := decodeSegment(t, parts[1])
	return header, payload
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal segment: %v", err)
	}
	return out
}
