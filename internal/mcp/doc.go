// Package mcp exposes the repository analyzer as a Model Context Protocol
// server built on mcp-go (github.com/mark3labs/mcp-go).
//
// The server registers fourteen read-only tools in four groups:
//
//   - working directory: analyze_working_directory, get_file_diff,
//     get_untracked_files
//   - staging area: analyze_staged_changes, preview_commit,
//     validate_staged_changes
//   - commits and remotes: analyze_unpushed_commits, compare_with_remote,
//     analyze_commit_history
//   - summary: get_outstanding_summary, analyze_repository_health,
//     get_push_readiness, analyze_stashed_changes, detect_conflicts
//
// Every tool accepts repository_path. Relative paths are joined with the
// configured work directory and the enclosing repository is discovered by
// walking upward. Tool results are indented JSON text; failures are returned
// as tool errors, never as protocol errors.
//
// # Transports
//
// ServeStdio speaks newline-delimited JSON-RPC over stdin and stdout and is
// what MCP clients launch as a subprocess:
//
//	mcp-local-repo-analyzer --transport stdio
//
// Serve and ListenAndServe expose the same tools over HTTP, either as
// streamable HTTP on /mcp or as SSE on /sse and /message. The HTTP router
// also serves /health, /healthz and /metrics. Only the MCP routes are rate
// limited.
//
// # Repository policy
//
// A repository may carry a .repo-analyzer.md policy file. Its front matter
// overrides risk thresholds and patterns for that repository only, and its
// Markdown body is returned by get_outstanding_summary as review_notes.
//
// # Security
//
// The server never writes to an analyzed repository. compare_with_remote with
// fetch=true is the only tool that touches the network; it updates
// remote-tracking refs and authenticates HTTPS remotes with the token stored
// in the OS keyring, when there is one.
package mcp
