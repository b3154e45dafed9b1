// cmd/token/main.go
// Client Token 簽發工具
// 以 JWT_SECRET 簽發呼叫 /send 端點所需的 Bearer Token

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		clientID    string
		clientName  string
		permissions []string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a client token for the notification API",
		Long:  "Sign an HS256 JWT with JWT_SECRET. The token carries client_id and permissions claims checked on /send endpoints.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			token, err := services.NewTokenService(cfg).Issue(services.TokenRequest{
				ClientID:    clientID,
				ClientName:  clientName,
				Permissions: permissions,
				TTL:         ttl,
			})
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&clientID, "client", "c", "", "Client ID (required)")
	cmd.Flags().StringVarP(&clientName, "name", "n", "", "Client display name")
	cmd.Flags().StringSliceVarP(&permissions, "permissions", "p", []string{"send"}, "Granted permissions (send, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}
