package main

import (
	"fmt"
	"net"
	"strconv"

	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/credentials"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/mcp"
	"mcp-local-repo-analyzer/internal/metrics"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	transport  string
	host       string
	port       int
	logLevel   string
	workDir    string
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "mcp-local-repo-analyzer",
		Short: "MCP server that analyzes outstanding work in local git repositories",
		Long: `Analyzes local git repositories for uncommitted changes, staged changes,
unpushed commits and stashes, and exposes the results as MCP tools.

Repositories are only read. Fetching from a remote happens only when a client
asks compare_with_remote to fetch.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mcp-local-repo-analyzer/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "log level: DEBUG, INFO, WARNING or ERROR")
	pf.StringVar(&opts.workDir, "work-dir", "", "directory relative repository paths are resolved against (default current directory)")

	f := cmd.Flags()
	f.StringVar(&opts.transport, "transport", defaults.Server.Transport, "transport: stdio, http, streamable-http or sse")
	f.StringVar(&opts.host, "host", defaults.Server.Host, "host to bind for HTTP transports")
	f.IntVar(&opts.port, "port", defaults.Server.Port, "port to bind for HTTP transports")

	cmd.AddCommand(
		newInspectCmd(opts),
		newReportCmd(opts),
		newTokenCmd(),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// configFile is the --config path, or the standard location.
func (o *rootOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig reads the config file and applies the flags the user set
// explicitly, so unset flags never mask file values.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = o.transport
	}
	if flags.Changed("host") {
		cfg.Server.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("work-dir") {
		cfg.WorkDir = o.workDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewAppLogger(cfg.LogLevel)
	logging.SetDefault(logger)

	srv, err := mcp.NewServer(cfg, logger, mcp.Options{
		Version: version,
		Auth:    credentials.NewCredentialManager(),
		Metrics: metrics.NewRecorder(),
	})
	if err != nil {
		logger.Error("Failed to start server", "error", err)
		return err
	}

	ctx := cmd.Context()
	if cfg.Server.Transport == config.TransportStdio {
		return srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if err := srv.ListenAndServe(ctx, cfg.Server.Transport, addr); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}
