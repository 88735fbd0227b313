package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/infrastructure/auth"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
)

var (
	env     string
	subject string
	ttl     time.Duration
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		Long:  `Sign an admin JWT with the configured secret for use as "Authorization: Bearer <token>".`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&subject, "subject", "s", "admin", "Token subject, logged with every admin request")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: auth.token_ttl)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, _, err := bootstrap.LoadConfig(env)
	if err != nil {
		return err
	}

	lifetime := cfg.Auth.TokenTTL
	if ttl > 0 {
		lifetime = ttl
	}
	if cfg.Auth.UsesDefaultSecret() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: signing with the default JWT secret, set auth.jwt_secret")
	}

	signed, expiresAt, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, lifetime).Generate(subject)
	if err != nil {
		return err
	}

	// only the token goes to stdout so it can be captured
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	fmt.Fprintf(cmd.ErrOrStderr(), "subject %q, expires at %s\n", subject, expiresAt.Format(time.RFC3339))
	return nil
}
