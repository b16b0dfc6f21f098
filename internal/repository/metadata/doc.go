// Package metadata persists installation parameters across repeated runs of
// the same package onto the same host. The on-disk form is a versioned,
// line-oriented key=value file at <installRoot>/.install-metadata whose
// values pass through an explicit Escape/Unescape pair, keeping characters
// like $ and backtick inert on reload. Merge implements the layering law:
// the current invocation overrides history, history fills gaps.
package metadata
