// Package extractor defines the payload extractor collaborator: a byte
// stream plus a destination directory in, a populated directory (or an
// error) out. The tar.gz implementation is the one the installer ships
// with; the interface keeps the install lifecycle independent of the
// archive format.
package extractor
