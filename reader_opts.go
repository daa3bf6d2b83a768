package ustar

import (
	"log/slog"

	"github.com/opencontainers/go-digest"
)

// Option configures a Reader.
type Option func(*Reader)

// WithStrict enables header validation. When enabled, Next returns ErrChecksum
// for headers whose checksum does not match and ErrMagic for headers without
// the ustar signature. Disabled by default.
func WithStrict(enabled bool) Option {
	return func(r *Reader) {
		r.strict = enabled
	}
}

// WithRequireTrailer requires the archive to end with two all-zero blocks.
//
// By default a single all-zero block ends iteration. When enabled, Next reads
// one more block after it and returns ErrMissingTrailer unless that block is
// also all zeros.
func WithRequireTrailer(enabled bool) Option {
	return func(r *Reader) {
		r.requireTrailer = enabled
	}
}

// WithMaxEntrySize limits the content size of a single entry.
// Set limit to 0 to disable the limit (default).
func WithMaxEntrySize(limit uint64) Option {
	return func(r *Reader) {
		r.maxEntrySize = limit
	}
}

// WithDigest computes Entry.Digest over each entry's content using alg.
// An empty algorithm disables digests (default).
func WithDigest(alg digest.Algorithm) Option {
	return func(r *Reader) {
		r.digestAlg = alg
	}
}

// WithLogger sets a logger for the reader.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}
