package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/health"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/metrics"

	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServiceName is the MCP server name announced to clients.
const ServiceName = "Local Git Changes Analyzer"

const instructions = `This server analyzes git repositories on the local filesystem. It never
modifies them.

Working directory:
  - analyze_working_directory: uncommitted changes with optional diffs
  - get_file_diff: diff of one file, working tree or staged
  - get_untracked_files: files git does not track
Staging area:
  - analyze_staged_changes: files ready to commit
  - preview_commit: what the next commit would contain
  - validate_staged_changes: warnings and errors before committing
Commits and remotes:
  - analyze_unpushed_commits: local commits missing from the upstream
  - compare_with_remote: ahead/behind counts and sync advice (fetch=true refreshes first)
  - analyze_commit_history: authors, activity and message patterns
Summary:
  - get_outstanding_summary: everything outstanding, with risk and recommendations
  - analyze_repository_health: 0-100 health score
  - get_push_readiness: blockers before pushing
  - analyze_stashed_changes: stash entries
  - detect_conflicts: merge risk against a target branch

Every tool takes repository_path (default "."). Relative paths are resolved
against the server's work directory, then upward to the enclosing repository.`

// AuthProvider supplies credentials for fetching from a remote URL. A nil
// method with a nil error means fetch anonymously.
type AuthProvider interface {
	AuthForRemote(remoteURL string) (transport.AuthMethod, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Version string
	Auth    AuthProvider
	Metrics *metrics.Recorder
}

// Server exposes the analyzer as MCP tools.
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	version   string
	workDir   string
	git       *gitclient.Client
	detector  *analyzer.ChangeDetector
	tracker   *analyzer.StatusTracker
	auth      AuthProvider
	metrics   *metrics.Recorder
	health    *health.Manager
	mcpServer *server.MCPServer
	toolCount int
}

// NewServer wires the git client, analyzer services and every tool.
func NewServer(cfg *config.Config, logger *logging.AppLogger, opts Options) (*Server, error) {
	if logger == nil {
		logger = logging.GetDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	workDir, err := cfg.ResolveWorkDir()
	if err != nil {
		return nil, err
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NewRecorder()
	}

	git := gitclient.New(gitclient.Options{
		MaxFileSize: cfg.Analyzer.MaxFileSizeBytes,
		Logger:      logger,
	})
	detector := analyzer.NewChangeDetector(git, logger)

	s := &Server{
		config:   cfg,
		logger:   logger,
		version:  version,
		workDir:  workDir,
		git:      git,
		detector: detector,
		tracker:  analyzer.NewStatusTracker(git, detector, logger),
		auth:     opts.Auth,
		metrics:  rec,
		health:   health.NewManager(ServiceName, version, logger),
	}

	s.mcpServer = server.NewMCPServer(
		ServiceName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
		server.WithToolHandlerMiddleware(s.instrument),
	)

	s.registerTools()
	s.registerHealthChecks()
	s.health.SetInitialized(true)

	logger.Info("MCP server initialized", "tools", s.toolCount, "workDir", workDir, "version", version)
	return s, nil
}

func (s *Server) tools() []server.ServerTool {
	var all []server.ServerTool
	all = append(all, s.workingDirectoryTools()...)
	all = append(all, s.stagingAreaTools()...)
	all = append(all, s.commitTools()...)
	all = append(all, s.summaryTools()...)
	return all
}

func (s *Server) registerTools() {
	tools := s.tools()
	s.mcpServer.AddTools(tools...)
	s.toolCount = len(tools)
}

func (s *Server) registerHealthChecks() {
	s.health.RegisterChecker(health.CheckerFunc{
		CheckName: "work_dir",
		Fn: func(context.Context) health.CheckResult {
			info, err := os.Stat(s.workDir)
			if err != nil {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
			}
			if !info.IsDir() {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: s.workDir + " is not a directory"}
			}
			return health.CheckResult{Status: health.StatusHealthy, Message: s.workDir}
		},
	})
	s.health.RegisterChecker(health.CheckerFunc{
		CheckName: "tools",
		Fn: func(context.Context) health.CheckResult {
			if s.toolCount == 0 {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: "no tools registered"}
			}
			return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("%d tools registered", s.toolCount)}
		},
	})
}

// instrument records the duration and outcome of every tool call.
func (s *Server) instrument(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := next(ctx, req)

		outcome := metrics.OutcomeSuccess
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailure
		case result != nil && result.IsError:
			outcome = metrics.OutcomeError
		}
		s.metrics.ObserveTool(req.Params.Name, outcome, time.Since(start))
		s.logger.Debug("Tool call finished", "tool", req.Params.Name, "outcome", outcome, "duration", time.Since(start))

		return result, err
	}
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Health returns the health manager served on /health.
func (s *Server) Health() *health.Manager {
	return s.health
}

// ToolCount reports how many tools are registered.
func (s *Server) ToolCount() int {
	return s.toolCount
}

// ServeStdio speaks JSON-RPC over in and out until ctx is canceled or in is
// closed. Logs go to the logger, never to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Starting MCP server", "transport", config.TransportStdio)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StandardLog())

	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio server failed: %w", err)
	}

	s.logger.Info("MCP server stopped", "transport", config.TransportStdio)
	return nil
}
