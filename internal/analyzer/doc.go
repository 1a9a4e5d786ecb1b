// Package analyzer turns raw repository state into the change models and
// derives categories, risk, health and recommendations from them.
//
// ChangeDetector reads working directory, staged, unpushed and stashed
// changes through a Git implementation. DiffAnalyzer is pure: it parses diff
// text and classifies files using the thresholds and patterns of a
// config.AnalyzerConfig. StatusTracker combines both into a RepositoryStatus.
package analyzer
