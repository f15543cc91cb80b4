package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

type checkerFunc func(ctx context.Context, id uuid.UUID) (bool, error)

func (f checkerFunc) IsActive(ctx context.Context, id uuid.UUID) (bool, error) { return f(ctx, id) }

func withIdentity(r *http.Request, id platformauth.Identity) *http.Request {
	return r.WithContext(platformauth.WithIdentity(r.Context(), id))
}

func TestWithTenantContextBindsPerRequest(t *testing.T) {
	handler := WithTenantContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenant.FromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Org", tc.OrganizationID.String())
		w.Header().Set("X-Actor", tc.ActorID)
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := platformauth.Identity{ActorID: uuid.NewString(), Role: tenant.RoleViewer, OrganizationID: uuid.New()}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), id))
			assert.Equal(t, id.OrganizationID.String(), rec.Header().Get("X-Org"))
			assert.Equal(t, id.ActorID, rec.Header().Get("X-Actor"))
		}()
	}
	wg.Wait()
}

func TestWithTenantContextRequiresIdentity(t *testing.T) {
	handler := WithTenantContext(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestWithTenantContextChecksOrganization(t *testing.T) {
	active := uuid.New()
	checker := checkerFunc(func(_ context.Context, id uuid.UUID) (bool, error) {
		if id == uuid.Nil {
			return false, errors.New("db down")
		}
		return id == active, nil
	})
	handler := WithTenantContext(checker)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(org uuid.UUID) int {
		rec := httptest.NewRecorder()
		id := platformauth.Identity{ActorID: "a", Role: tenant.RoleAdmin, OrganizationID: org}
		handler.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), id))
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve(active))
	require.Equal(t, http.StatusUnauthorized, serve(uuid.New()))
	require.Equal(t, http.StatusInternalServerError, serve(uuid.Nil))
}

func TestRequirePermission(t *testing.T) {
	handler := RequirePermission(tenant.PermDelete)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(role tenant.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req = req.WithContext(tenant.WithContext(req.Context(), tenant.Context{OrganizationID: uuid.New(), ActorID: "a", Role: role}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, serve(tenant.RoleManager).Code)
	rec := serve(tenant.RoleMember)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())
}

func TestRequirePermissionLogsRoleOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	handler := platformmiddleware.RequestTrace(
		WithTenantContext(nil)(
			RequirePermission(tenant.PermWrite)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})),
		),
	)

	id := platformauth.Identity{ActorID: "a", Role: tenant.RoleViewer, OrganizationID: uuid.New()}
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/", nil), id)
	req = req.WithContext(platformlogging.WithLogger(req.Context(), zap.New(core)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	entries := logs.FilterMessage("permission denied").AllUntimed()
	require.Len(t, entries, 1)
	var roles int
	for _, f := range entries[0].Context {
		if f.Key == "role" {
			roles++
		}
	}
	require.Equal(t, 1, roles)
	fields := entries[0].ContextMap()
	require.Equal(t, "viewer", fields["role"])
	require.Equal(t, "write", fields["permission"])
}

func TestCachedCheckerCachesActiveOnly(t *testing.T) {
	var calls atomic.Int32
	active := uuid.New()
	checker, err := NewCachedChecker(checkerFunc(func(_ context.Context, id uuid.UUID) (bool, error) {
		calls.Add(1)
		return id == active, nil
	}), time.Minute, 100)
	require.NoError(t, err)
	t.Cleanup(checker.Close)

	for i := 0; i < 3; i++ {
		ok, err := checker.IsActive(context.Background(), active)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.EqualValues(t, 1, calls.Load())

	unknown := uuid.New()
	for i := 0; i < 2; i++ {
		ok, err := checker.IsActive(context.Background(), unknown)
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.EqualValues(t, 3, calls.Load())

	checker.Invalidate(active)
	_, err = checker.IsActive(context.Background(), active)
	require.NoError(t, err)
	require.EqualValues(t, 4, calls.Load())
}
