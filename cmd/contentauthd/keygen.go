package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/contentauth/jwt"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var alg string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a token signing key pair",
		Long: `Generate a signing key pair and print it as the base64-wrapped
ACCESS_TOKEN_PRIVATE_KEY and ACCESS_TOKEN_PUBLIC_KEY lines of a dotenv file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := jwt.GenerateKeyPair(jwt.KeyAlgorithm(alg))
			if err != nil {
				return oops.Code("KEYGEN_FAILED").With("alg", alg).Wrap(err)
			}
			priv, pub := kp.Base64()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ACCESS_TOKEN_PRIVATE_KEY=%s\n", priv)
			fmt.Fprintf(out, "ACCESS_TOKEN_PUBLIC_KEY=%s\n", pub)
			return nil
		},
	}

	cmd.Flags().StringVar(&alg, "alg", string(jwt.KeyRSA), "key algorithm: rsa or ed25519")
	return cmd
}
