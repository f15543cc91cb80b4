package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/gcp"
)

// buildVerifier selects the credential verifier named by AUTH_PROVIDER.
func buildVerifier(ctx context.Context, cfg config, logger *zap.Logger) (platformauth.Verifier, error) {
	switch cfg.AuthProvider {
	case "hmac":
		return platformauth.NewHMACVerifier(platformauth.HMACConfig{
			Secret:   []byte(cfg.AuthHMACSecret),
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			Leeway:   cfg.AuthLeeway,
		})
	case "firebase":
		client, err := gcp.NewFirebaseAuth(ctx, cfg.FirebaseConfig)
		if err != nil {
			return nil, err
		}
		return platformauth.NewFirebaseVerifier(client), nil
	case "dev":
		logger.Warn("using unsigned dev credentials; do not use in production")
		return platformauth.NewUnsignedVerifier(), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q (use hmac, firebase or dev)", cfg.AuthProvider)
	}
}
