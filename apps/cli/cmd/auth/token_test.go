package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

const secret = "0123456789abcdef0123456789abcdef"

func runToken(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("AUTH_AUDIENCE", "")
	t.Setenv("AUTH_HMAC_SECRET", "")

	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"token"}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestTokenSignedVerifies(t *testing.T) {
	org := uuid.New()
	token, err := runToken(t, "--secret", secret, "--org", org.String(), "--actor", "crew-7", "--role", "Manager", "--expires-in", "10m")
	require.NoError(t, err)

	verifier, err := platformauth.NewHMACVerifier(platformauth.HMACConfig{Secret: []byte(secret)})
	require.NoError(t, err)
	id, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, org, id.OrganizationID)
	require.Equal(t, "crew-7", id.ActorID)
	require.Equal(t, tenant.RoleManager, id.Role)
}

func TestTokenUnsignedVerifies(t *testing.T) {
	org := uuid.New()
	token, err := runToken(t, "--unsigned", "--org", org.String(), "--actor", "dev")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(token, "."))

	id, err := platformauth.NewUnsignedVerifier().Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, tenant.RoleMember, id.Role)
}

func TestTokenRejectsBadInput(t *testing.T) {
	org := uuid.New().String()

	_, err := runToken(t, "--secret", secret, "--org", org, "--actor", "a", "--role", "system")
	require.ErrorContains(t, err, "unknown role")

	_, err = runToken(t, "--org", org, "--actor", "a")
	require.ErrorContains(t, err, "--secret")

	_, err = runToken(t, "--secret", secret, "--org", "not-a-uuid", "--actor", "a")
	require.ErrorContains(t, err, "organization id")

	_, err = runToken(t, "--secret", secret, "--org", org)
	require.ErrorContains(t, err, "actor")
}

func TestTokenExpiryApplies(t *testing.T) {
	token, err := runToken(t, "--secret", secret, "--org", uuid.NewString(), "--actor", "a", "--expires-in", "-1m")
	require.NoError(t, err)

	verifier, err := platformauth.NewHMACVerifier(platformauth.HMACConfig{Secret: []byte(secret), Leeway: time.Second})
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, platformauth.ErrExpired)
}
