package main

import (
	"fmt"
	"runtime"

	"mcp-local-repo-analyzer/internal/mcp"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n", mcp.ServiceName, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
