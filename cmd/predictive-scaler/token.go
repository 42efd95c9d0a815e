package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/predictive-scaler/internal/auth"
)

func newTokenCommand(load configLoader) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an admin token for the scaling trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.API.AdminSecret == "" {
				return errors.New("api.admin_secret is not set")
			}

			if ttl <= 0 {
				ttl = cfg.API.AdminTokenTTL
			}
			svc := auth.NewService(cfg.API.AdminSecret, ttl, cfg.API.AdminIssuer)
			token, expiresAt, err := svc.GenerateToken(subject)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to api.admin_token_ttl)")
	return cmd
}
