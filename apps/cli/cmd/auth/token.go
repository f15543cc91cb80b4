package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cliconfig"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/auth/devtoken"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

func tokenCommand() *cobra.Command {
	defaults := cliconfig.Defaults()

	var params devtoken.Params
	var secret string
	var unsigned bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an organization actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, ok := tenant.ParseRole(params.Role)
			if !ok {
				return fmt.Errorf("unknown role %q", params.Role)
			}
			params.Role = string(role)

			now := time.Now().UTC()
			var (
				token string
				err   error
			)
			if unsigned {
				token, err = devtoken.BuildUnsigned(params, now)
			} else {
				if secret == "" {
					return errors.New("--secret (or AUTH_HMAC_SECRET) is required for signed tokens")
				}
				token, err = devtoken.BuildSigned(params, []byte(secret), now)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.OrganizationID, "org", "", "organization id (org_id claim)")
	cmd.Flags().StringVar(&params.Subject, "actor", "", "actor id (sub claim)")
	cmd.Flags().StringVar(&params.Role, "role", string(tenant.RoleMember), "admin, manager, member or viewer")
	cmd.Flags().DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&params.Issuer, "issuer", defaults.AuthIssuer, "iss claim (env AUTH_ISSUER)")
	cmd.Flags().StringVar(&params.Audience, "audience", defaults.AuthAudience, "aud claim (env AUTH_AUDIENCE)")
	cmd.Flags().StringVar(&secret, "secret", defaults.AuthHMACSecret, "HS256 secret (env AUTH_HMAC_SECRET)")
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "emit an alg=none token for AUTH_PROVIDER=dev")

	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}
