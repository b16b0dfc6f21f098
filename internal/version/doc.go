// Package version exposes build metadata (semantic version, commit,
// build time, optional release identifier) injected via ldflags, and a
// helper that attaches a `version` subcommand to a cobra root command.
package version
