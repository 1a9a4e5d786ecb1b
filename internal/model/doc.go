// Package model defines the value types produced by the repository analyzer:
// file statuses, diffs, commits, stashes, branch status and the analysis
// results built on top of them. Types serialize to snake_case JSON, which is
// the shape the MCP tools emit.
package model
