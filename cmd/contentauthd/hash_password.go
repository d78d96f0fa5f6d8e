package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/contentauth/password"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the Argon2id hash of a password",
		Long: `Hash a password with the default Argon2id parameters. The password is
read from the first argument, or from the first line of stdin when omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := passwordArg(cmd.InOrStdin(), args)
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
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func passwordArg(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("INPUT_READ_FAILED").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("INPUT_INVALID").Errorf("password must not be empty")
	}
	return line, nil
}
