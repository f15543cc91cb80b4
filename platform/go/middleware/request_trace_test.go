package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/auth/devtoken"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/requesttrace"
)

func TestRequestTraceWithAuth(t *testing.T) {
	org := uuid.New()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(platformauth.Authenticate(platformauth.NewUnsignedVerifier()))
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		trace, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindUser, trace.ActorKind)
		require.Equal(t, "user-123", trace.ActorID)
		require.Equal(t, org, trace.OrganizationID)
		require.NotEmpty(t, trace.RequestID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	token, err := devtoken.BuildUnsigned(devtoken.Params{
		Subject:        "user-123",
		OrganizationID: org.String(),
		Role:           "member",
		ExpiresIn:      time.Minute,
	}, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRequestTraceAnonymous(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		trace, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindAnonymous, trace.ActorKind)
		require.Empty(t, trace.ActorID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}
