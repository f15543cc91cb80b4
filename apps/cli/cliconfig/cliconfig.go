// Package cliconfig reads the environment variables shared with the API
// server. CLI commands use them as flag defaults.
package cliconfig

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
)

// Environment mirrors the API server variables a CLI command may need.
type Environment struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	DBTenantRole   string `env:"DB_TENANT_ROLE" envDefault:"app_tenant"`
	AuthHMACSecret string `env:"AUTH_HMAC_SECRET"`
	AuthIssuer     string `env:"AUTH_ISSUER"`
	AuthAudience   string `env:"AUTH_AUDIENCE"`
	FirebaseConfig string `env:"FIREBASE_CONFIG"`
	AuditSpoolDir  string `env:"AUDIT_SPOOL_DIR" envDefault:"./.data/audit-spool"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"console"`
}

// Defaults returns the environment. Parse errors fall back to zero values
// so that help output still works with a malformed environment.
func Defaults() Environment {
	var e Environment
	_ = env.Parse(&e)
	return e
}

// Logger builds the CLI logger. It writes to stderr so command output on
// stdout stays pipeable.
func Logger(component string) (*zap.Logger, error) {
	e := Defaults()
	return platformlogging.NewLogger(platformlogging.Config{
		Component: component,
		Level:     e.LogLevel,
		Format:    e.LogFormat,
		Output:    os.Stderr,
	})
}
