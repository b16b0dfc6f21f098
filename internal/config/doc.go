// Package config defines the installation configuration model and the
// layering rules that build it: persisted metadata from a prior install at
// the same root fills gaps, explicitly supplied command-line values always
// win, and defaults cover whatever remains. The resulting Config is an
// immutable value threaded explicitly through the install lifecycle instead
// of ambient process state.
package config
