package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/internal/store"
)

// apiKeyPrefix marks funnelboard API keys so they are easy to spot in logs
// and secret scanners.
const apiKeyPrefix = "fb_"

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			pool, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			pool.Close()

			log.Info("migrations up to date")
			return nil
		},
	}
}

func newUserCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print its API key",
		Long:  "Create a user and print a new API key. The key is shown once; only its hash is stored.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := mail.ParseAddress(email); err != nil {
				return fmt.Errorf("invalid --email: %w", err)
			}

			cfg, log, err := load()
			if err != nil {
				return err
			}

			pool, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			key, err := generateAPIKey()
			if err != nil {
				return err
			}

			id, err := store.NewUserStore(pool).Create(cmd.Context(), email, key)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{"action": "user.create", "user_id": id}).Info("audit")
			fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\napi_key: %s\n", id, key)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "Email address of the new user")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}
