package main

import (
	"context"
	"io"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/credentials"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/mcp"
	"mcp-local-repo-analyzer/internal/report"
	"mcp-local-repo-analyzer/internal/tui"

	"github.com/spf13/cobra"
)

// snapshotLoader builds a server from the resolved config and returns a
// loader for the repository at path. Logs go to logOut.
func snapshotLoader(cmd *cobra.Command, opts *rootOptions, path string, logOut io.Writer) (tui.Loader, *logging.AppLogger, error) {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewAppLoggerWithWriter(logOut, cfg.LogLevel)
	srv, err := mcp.NewServer(cfg, logger, mcp.Options{
		Version: version,
		Auth:    credentials.NewCredentialManager(),
	})
	if err != nil {
		return nil, nil, err
	}

	return func(ctx context.Context) (analyzer.Snapshot, error) {
		return srv.Snapshot(ctx, path)
	}, logger, nil
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [path]",
		Short: "Browse outstanding work in a repository interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The dashboard owns the terminal; logging to stderr would tear it.
			load, logger, err := snapshotLoader(cmd, opts, pathArg(args), io.Discard)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), load, logger)
		},
	}
}

type reportOptions struct {
	raw   bool
	style string
	width int
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	ro := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Print a Markdown report of outstanding work in a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			load, _, err := snapshotLoader(cmd, opts, pathArg(args), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			snap, err := load(cmd.Context())
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), snap, report.Options{
				Raw:   ro.raw,
				Style: ro.style,
				Width: ro.width,
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&ro.raw, "raw", false, "print Markdown source without styling")
	f.StringVar(&ro.style, "style", "", "glamour style: dark, light, notty, ascii (default detected)")
	f.IntVar(&ro.width, "width", report.DefaultWidth, "word wrap width")
	return cmd
}
