package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

// resource is one /api sub-tree. routes mounts body on its write endpoints
// behind their permission check, so a caller without the permission is
// refused before its payload is looked at.
type resource struct {
	path   string
	routes func(r chi.Router, body ...func(http.Handler) http.Handler)
}

// routerConfig holds everything the HTTP surface needs. main builds it from
// Postgres-backed services; tests build it from memory repositories.
type routerConfig struct {
	Logger         *zap.Logger
	Verifier       platformauth.Verifier
	Organizations  tenantmiddleware.OrganizationChecker
	Doc            *openapi3.T
	ValidateBodies bool
	Ready          func(ctx context.Context) error
	Metrics        http.Handler
	RequestTimeout time.Duration
	AllowedOrigins []string
	Resources      []resource
}

const (
	healthPath = "/healthz"
	readyPath  = "/readyz"
)

func newRouter(cfg routerConfig) http.Handler {
	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		platformmiddleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.RequestTimeout > 0 {
		root.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	root.Use(platformlogging.RequestLogger(cfg.Logger, healthPath, readyPath, "/metrics"))

	root.Get(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get(readyPath, func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				platformlogging.FromRequest(r, cfg.Logger).Warn("readiness check failed", zap.Error(err))
				httpapi.WriteError(w, http.StatusServiceUnavailable, "Service unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Metrics != nil {
		root.Handle("/metrics", cfg.Metrics)
	}
	registerDocsRoutes(root, cfg.Doc, cfg.Logger)

	root.Route("/api", func(api chi.Router) {
		api.Use(platformauth.Authenticate(cfg.Verifier))
		api.Use(platformmiddleware.RequestTrace)
		api.Use(tenantmiddleware.WithTenantContext(cfg.Organizations))
		var body []func(http.Handler) http.Handler
		if cfg.ValidateBodies {
			body = append(body, platformmiddleware.RequestBodyValidator(cfg.Doc))
		}
		for _, res := range cfg.Resources {
			api.Route(res.path, func(r chi.Router) { res.routes(r, body...) })
		}
	})

	return root
}
