package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/health"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/metrics"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, workDir string) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.WorkDir = workDir
	s, err := NewServer(&cfg, logging.NewAppLoggerWithWriter(io.Discard, "error"), Options{Version: "test"})
	require.NoError(t, err)
	return s
}

// callTool runs a tool handler through the instrumenting middleware.
func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	for _, tool := range s.tools() {
		if tool.Tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		result, err := s.instrument(tool.Handler)(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, result)
		return result
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

// decode fails the test when result is a tool error.
func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	text := resultText(t, result)
	require.False(t, result.IsError, "unexpected tool error: %s", text)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	assert.Equal(t, 14, s.ToolCount())
	assert.NotNil(t, s.MCPServer())

	resp := s.Health().Health(context.Background(), true)
	assert.True(t, resp.Initialized)
	assert.Equal(t, health.StatusHealthy, resp.Overall)
	assert.Contains(t, resp.Checks, "work_dir")
	assert.Contains(t, resp.Checks, "tools")
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 0

	_, err := NewServer(&cfg, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewServer_DefaultVersion(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()

	s, err := NewServer(&cfg, logging.NewAppLoggerWithWriter(io.Discard, "error"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "dev", s.version)
}

func TestToolNamesAreUnique(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	seen := map[string]bool{}
	for _, tool := range s.tools() {
		assert.False(t, seen[tool.Tool.Name], "duplicate tool %s", tool.Tool.Name)
		seen[tool.Tool.Name] = true
		assert.NotEmpty(t, tool.Tool.Description, tool.Tool.Name)
	}
}

func TestHandleMessage_ToolsList(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	ctx := context.Background()

	initReq := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	initResp, err := json.Marshal(s.MCPServer().HandleMessage(ctx, json.RawMessage(initReq)))
	require.NoError(t, err)
	assert.Contains(t, string(initResp), ServiceName)

	listResp, err := json.Marshal(s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)))
	require.NoError(t, err)

	for _, name := range []string{
		"analyze_working_directory", "get_file_diff", "get_untracked_files",
		"analyze_staged_changes", "preview_commit", "validate_staged_changes",
		"analyze_unpushed_commits", "compare_with_remote", "analyze_commit_history",
		"get_outstanding_summary", "analyze_repository_health", "get_push_readiness",
		"analyze_stashed_changes", "detect_conflicts",
	} {
		assert.Contains(t, string(listResp), `"`+name+`"`)
	}
}

func TestInstrument_RecordsOutcomes(t *testing.T) {
	rec := metrics.NewRecorder()
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	s, err := NewServer(&cfg, logging.NewAppLoggerWithWriter(io.Discard, "error"), Options{Metrics: rec})
	require.NoError(t, err)

	// work dir is not a repository, so the tool returns a tool error
	result := callTool(t, s, "get_push_readiness", nil)
	assert.True(t, result.IsError)

	expected := `
# HELP repo_analyzer_tool_calls_total Total number of MCP tool calls by tool and outcome
# TYPE repo_analyzer_tool_calls_total counter
repo_analyzer_tool_calls_total{outcome="error",tool="get_push_readiness"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "repo_analyzer_tool_calls_total"))
}

func TestServeStdio_StopsOnEOF(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	err := s.ServeStdio(context.Background(), strings.NewReader(""), io.Discard)
	assert.NoError(t, err)
}

func TestServeStdio_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	assert.NoError(t, s.ServeStdio(ctx, pr, io.Discard))
}
