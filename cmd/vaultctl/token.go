package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/edvin/agency/internal/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var userID, orgID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Long: `Issue a bearer token signed with JWT_SECRET for a user acting in an
organization. The user must still be a member of the organization for the
API to accept it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required to issue tokens")
			}
			token, err := auth.NewTokens(a.cfg.JWTSecret, a.cfg.JWTIssuer, clock.WallClock).Issue(userID, orgID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&orgID, "org", "", "default organization id")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")

	return cmd
}
