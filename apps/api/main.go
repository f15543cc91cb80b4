package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/contracts"
	auditlogshandler "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/handler"
	auditlogsrepo "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/repo"
	auditlogsservice "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/service"
	contractshandler "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/handler"
	contractsrepo "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/repo"
	contractsservice "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/service"
	customershandler "github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/handler"
	customersrepo "github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/repo"
	customersservice "github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/service"
	handovershandler "github.com/zenGate-Global/palmyra-fieldops/domains/handovers/be/handler"
	handoversrepo "github.com/zenGate-Global/palmyra-fieldops/domains/handovers/be/repo"
	handoversservice "github.com/zenGate-Global/palmyra-fieldops/domains/handovers/be/service"
	organizationsrepo "github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/repo"
	organizationsservice "github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/service"
	projectshandler "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/handler"
	projectsrepo "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/repo"
	projectsservice "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/service"
	quoteshandler "github.com/zenGate-Global/palmyra-fieldops/domains/quotes/be/handler"
	quotesrepo "github.com/zenGate-Global/palmyra-fieldops/domains/quotes/be/repo"
	quotesservice "github.com/zenGate-Global/palmyra-fieldops/domains/quotes/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	DatabaseURL      string        `env:"DATABASE_URL,required"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS"`
	DBMinConns       int32         `env:"DB_MIN_CONNS"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	DBTenantRole     string        `env:"DB_TENANT_ROLE" envDefault:"app_tenant"`
	MigrateOnStart   bool          `env:"MIGRATE_ON_START" envDefault:"false"`

	AuthProvider   string        `env:"AUTH_PROVIDER" envDefault:"hmac"` // hmac | firebase | dev
	AuthHMACSecret string        `env:"AUTH_HMAC_SECRET"`
	AuthIssuer     string        `env:"AUTH_ISSUER"`
	AuthAudience   string        `env:"AUTH_AUDIENCE"`
	AuthLeeway     time.Duration `env:"AUTH_LEEWAY" envDefault:"30s"`
	FirebaseConfig string        `env:"FIREBASE_CONFIG"` // service account file; ADC when empty

	OrgCacheTTL     time.Duration `env:"ORG_CACHE_TTL" envDefault:"1m"`
	OrgCacheEntries int64         `env:"ORG_CACHE_ENTRIES" envDefault:"10000"`

	AuditSpoolDir       string        `env:"AUDIT_SPOOL_DIR" envDefault:"./.data/audit-spool"`
	AuditReplayInterval time.Duration `env:"AUDIT_REPLAY_INTERVAL" envDefault:"30s"`

	OpenAPIValidation bool `env:"OPENAPI_VALIDATION" envDefault:"true"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := persistence.Migrate(ctx, cfg.DatabaseURL, persistence.MigrateUp); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		ApplicationName: "fieldops-api",
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ConnectTimeout:  cfg.DBConnectTimeout,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	verifier, err := buildVerifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init credential verifier", zap.Error(err))
	}

	doc, err := contracts.OpenAPI(ctx)
	if err != nil {
		logger.Fatal("load openapi document", zap.Error(err))
	}
	payloads, err := persistence.NewPayloadValidator(contracts.PayloadSchemas())
	if err != nil {
		logger.Fatal("compile payload schemas", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auditMetrics := audit.NewMetrics(registry)

	spool, err := audit.NewFileSpool(cfg.AuditSpoolDir, logger.Named("audit-spool"))
	if err != nil {
		logger.Fatal("init audit spool", zap.Error(err))
	}

	tenantDB := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool, Role: cfg.DBTenantRole})
	auditStore := persistence.NewAuditStore()
	recorder := audit.NewRecorder(audit.Config{
		Store:   auditStore,
		Spool:   spool,
		Metrics: auditMetrics,
		Logger:  logger.Named("audit"),
	})

	replayer := audit.NewReplayer(audit.ReplayerConfig{
		DB:      tenantDB,
		Store:   auditStore,
		Spool:   spool,
		Metrics: auditMetrics,
		Logger:  logger.Named("audit-replayer"),
	})
	go replayer.Run(ctx, cfg.AuditReplayInterval)

	organizations := organizationsservice.New(
		organizationsrepo.NewPostgresRepository(tenantDB, persistence.NewOrganizationStore()),
	)
	orgChecker, err := tenantmiddleware.NewCachedChecker(organizations, cfg.OrgCacheTTL, cfg.OrgCacheEntries)
	if err != nil {
		logger.Fatal("init organization cache", zap.Error(err))
	}
	defer orgChecker.Close()

	customerStore := persistence.NewCustomerStore()
	projectStore := persistence.NewProjectStore()
	quoteStore := persistence.NewQuoteStore()

	customers := customershandler.New(customersservice.New(
		customersrepo.NewPostgresRepository(tenantDB, recorder, customerStore),
	), logger)
	projects := projectshandler.New(projectsservice.New(
		projectsrepo.NewPostgresRepository(tenantDB, recorder, projectStore, customerStore),
	), logger)
	quotes := quoteshandler.New(quotesservice.New(
		quotesrepo.NewPostgresRepository(tenantDB, recorder, quoteStore, projectStore),
		payloads,
	), logger)
	contractsHandler := contractshandler.New(contractsservice.New(
		contractsrepo.NewPostgresRepository(tenantDB, recorder, persistence.NewContractStore(), quoteStore),
	), logger)
	handovers := handovershandler.New(handoversservice.New(
		handoversrepo.NewPostgresRepository(tenantDB, recorder, persistence.NewHandoverStore(), projectStore),
		payloads,
	), logger)
	auditLogs := auditlogshandler.New(auditlogsservice.New(
		auditlogsrepo.NewPostgresRepository(tenantDB, recorder, auditStore),
	), logger)

	router := newRouter(routerConfig{
		Logger:         logger,
		Verifier:       verifier,
		Organizations:  orgChecker,
		Doc:            doc,
		ValidateBodies: cfg.OpenAPIValidation,
		Ready:          pool.Ping,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		Resources: []resource{
			{path: "/customers", routes: customers.Routes},
			{path: "/projects", routes: projects.Routes},
			{path: "/quotes", routes: quotes.Routes},
			{path: "/contracts", routes: contractsHandler.Routes},
			{path: "/handovers", routes: handovers.Routes},
			{path: "/audit-logs", routes: auditLogs.Routes},
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("auth_provider", cfg.AuthProvider))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
