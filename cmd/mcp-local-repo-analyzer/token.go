package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"mcp-local-repo-analyzer/internal/credentials"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token used to fetch from private HTTPS remotes",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [token]",
			Short: "Store a GitHub personal access token in the OS credential store",
			Long: `Stores a GitHub personal access token in the OS credential store.
Without an argument the token is read from the first line of stdin.`,
			Args: cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				token, err := tokenArg(cmd, args)
				if err != nil {
					return err
				}
				if err := credentials.NewCredentialManager().StoreGitHubToken(token); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "GitHub token stored.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored GitHub token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := credentials.NewCredentialManager().DeleteGitHubToken(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "GitHub token deleted.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a GitHub token is stored",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := credentials.NewCredentialManager().GetGitHubToken()
				switch {
				case err == nil:
					fmt.Fprintln(cmd.OutOrStdout(), "GitHub token: configured")
				case errors.Is(err, credentials.ErrNoToken):
					fmt.Fprintln(cmd.OutOrStdout(), "GitHub token: not configured")
				default:
					return err
				}
				return nil
			},
		},
	)
	return cmd
}

func tokenArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return "", fmt.Errorf("no token given")
	}
	return strings.TrimSpace(sc.Text()), nil
}
