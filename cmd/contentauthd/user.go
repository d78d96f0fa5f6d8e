package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/internal/config"
	"github.com/MrEthical07/contentauth/internal/userstore/postgres"
	"github.com/MrEthical07/contentauth/password"
)

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the user database",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var nickname, email string

	cmd := &cobra.Command{
		Use:   "add <username> [password]",
		Short: "Create an account",
		Long: `Create an account with an Argon2id password hash. The password is read
from stdin when not given as an argument.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, envFile)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if cfg.DatabaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
			}

			plain, err := passwordArg(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			hasher, err := password.NewArgon2(password.DefaultConfig())
			if err != nil {
				return oops.Code("HASHER_INIT_FAILED").Wrap(err)
			}
			hash, err := hasher.Hash(plain)
			if err != nil {
				return oops.Code("HASH_FAILED").Wrap(err)
			}

			pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			u := &contentauth.User{
				Username:     args[0],
				Nickname:     nickname,
				Email:        email,
				PasswordHash: hash,
			}
			if err := postgres.New(pool).Create(ctx, u); err != nil {
				return err
			}
			cmd.Printf("created user %s (id=%s)\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "contact address")
	return cmd
}
