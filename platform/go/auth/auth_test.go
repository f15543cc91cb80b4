package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/auth/devtoken"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHMAC(t *testing.T) *HMACVerifier {
	t.Helper()
	v, err := NewHMACVerifier(HMACConfig{Secret: testSecret, Issuer: "fieldops"})
	require.NoError(t, err)
	return v
}

func signed(t *testing.T, secret []byte, p devtoken.Params, now time.Time) string {
	t.Helper()
	if p.Issuer == "" {
		p.Issuer = "fieldops"
	}
	token, err := devtoken.BuildSigned(p, secret, now)
	require.NoError(t, err)
	return token
}

func TestHMACVerifier(t *testing.T) {
	org := uuid.New()
	valid := devtoken.Params{Subject: "actor-1", OrganizationID: org.String(), Role: "member", ExpiresIn: time.Hour}
	v := newHMAC(t)

	t.Run("valid", func(t *testing.T) {
		id, err := v.Verify(context.Background(), signed(t, testSecret, valid, time.Now()))
		require.NoError(t, err)
		require.Equal(t, Identity{ActorID: "actor-1", Role: tenant.RoleMember, OrganizationID: org}, id)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "  ")
		require.ErrorIs(t, err, ErrAbsent)
	})

	t.Run("expired with valid signature", func(t *testing.T) {
		token := signed(t, testSecret, valid, time.Now().Add(-2*time.Hour))
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("expired with forged signature", func(t *testing.T) {
		token := signed(t, []byte("another-secret-another-secret-xx"), valid, time.Now().Add(-2*time.Hour))
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("bad signature", func(t *testing.T) {
		token := signed(t, []byte("another-secret-another-secret-xx"), valid, time.Now())
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "not.a.jwt")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		token, err := devtoken.BuildUnsigned(valid, time.Now())
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		p := valid
		p.Issuer = "someone-else"
		_, err := v.Verify(context.Background(), signed(t, testSecret, p, time.Now()))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing exp", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "actor-1", "org_id": org.String(), "role": "member", "iss": "fieldops",
		}).SignedString(testSecret)
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("non grantable role", func(t *testing.T) {
		p := valid
		p.Role = "system"
		_, err := v.Verify(context.Background(), signed(t, testSecret, p, time.Now()))
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestNewHMACVerifierRejectsShortSecret(t *testing.T) {
	_, err := NewHMACVerifier(HMACConfig{Secret: []byte("short")})
	require.Error(t, err)
}

func TestUnsignedVerifier(t *testing.T) {
	org := uuid.New()
	v := NewUnsignedVerifier()

	token, err := devtoken.BuildUnsigned(devtoken.Params{Subject: "dev", OrganizationID: org.String(), Role: "admin"}, time.Now())
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, tenant.RoleAdmin, id.Role)
	require.Equal(t, org, id.OrganizationID)

	expired, err := devtoken.BuildUnsigned(devtoken.Params{Subject: "dev", OrganizationID: org.String(), Role: "admin"}, time.Now().Add(-3*time.Hour))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	require.ErrorIs(t, err, ErrExpired)

	_, err = v.Verify(context.Background(), "onlyonesegment")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := &Error{Kind: KindExpired, Err: errors.New("boom")}
	require.ErrorIs(t, err, ErrExpired)
	require.NotErrorIs(t, err, ErrMalformed)
	require.NotErrorIs(t, err, ErrAbsent)
}

func TestAuthenticateMiddleware(t *testing.T) {
	org := uuid.New()
	v := newHMAC(t)

	var got Identity
	handler := Authenticate(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = IdentityFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"malformed", "Bearer nope", http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, testSecret, devtoken.Params{Subject: "a", OrganizationID: org.String(), Role: "viewer"}, time.Now().Add(-2*time.Hour)), http.StatusUnauthorized},
		{"valid", "bearer " + signed(t, testSecret, devtoken.Params{Subject: "a", OrganizationID: org.String(), Role: "viewer"}, time.Now()), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, map[string]string{"error": "Unauthorized"}, body)
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}

	require.Equal(t, org, got.OrganizationID)
}
