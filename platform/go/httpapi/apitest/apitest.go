// Package apitest runs resource handlers behind the production middleware
// chain for HTTP tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/auth/devtoken"
	platformmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

const issuer = "fieldops-test"

var secret = []byte("apitest-secret-apitest-secret-32b")

// Server is an API router for one resource.
type Server struct {
	t       *testing.T
	handler http.Handler
}

// New mounts routes under base behind Authenticate, RequestTrace and the
// tenant binder.
func New(t *testing.T, base string, routes func(chi.Router, ...func(http.Handler) http.Handler)) *Server {
	t.Helper()
	verifier, err := platformauth.NewHMACVerifier(platformauth.HMACConfig{Secret: secret, Issuer: issuer})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Use(platformauth.Authenticate(verifier))
		api.Use(platformmiddleware.RequestTrace)
		api.Use(tenantmiddleware.WithTenantContext(nil))
		api.Route(base, func(r chi.Router) { routes(r) })
	})
	return &Server{t: t, handler: r}
}

// Token mints a credential for an actor of org.
func (s *Server) Token(org uuid.UUID, role string) string {
	s.t.Helper()
	token, err := devtoken.BuildSigned(devtoken.Params{
		Subject:        "actor-" + role,
		OrganizationID: org.String(),
		Role:           role,
		Issuer:         issuer,
		ExpiresIn:      time.Hour,
	}, secret, time.Now())
	require.NoError(s.t, err)
	return token
}

// Do sends a request. body is JSON-encoded unless it is a string, which is
// sent verbatim. An empty token sends no Authorization header.
func (s *Server) Do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// Value decodes {"value": ...} into a generic map.
func Value(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Value map[string]any `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Value
}

// List decodes {"value": [...], "count": n}.
func List(t *testing.T, rec *httptest.ResponseRecorder) ([]map[string]any, int) {
	t.Helper()
	var body struct {
		Value []map[string]any `json:"value"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Value, body.Count
}

// RequireError asserts the status and the {"error": message} body.
func RequireError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"error":`+quote(message)+`}`, rec.Body.String())
}

func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
