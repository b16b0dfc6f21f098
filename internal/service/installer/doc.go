// Package installer sequences the installation lifecycle: resolve the
// install directory, extract the payload, promote the "current" symlink,
// run the post-install hook, prune old releases and persist metadata.
//
// Failure handling follows a strict taxonomy. Before any observable change
// (planning, extraction) an error simply aborts. After the symlink has
// moved, a hook failure rolls the link back to its previous target before
// the run fails — leaving "current" pointing at a broken install is worse
// than leaving it at the prior good one. Cleanup and ownership are
// best-effort and never undo an already successful installation.
//
// The package assumes at most one installer instance runs against a given
// install root at a time; there is no locking, and concurrent invocations
// against the same root are undefined behavior.
package installer
