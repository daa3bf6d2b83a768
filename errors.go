package ustar

import "errors"

var (
	// ErrTruncated is returned when the stream ends part way through a header
	// block or an entry's content. Errors wrapping it also wrap io.ErrUnexpectedEOF.
	ErrTruncated = errors.New("ustar: truncated archive")

	// ErrBlockSize is returned when a raw header is not exactly BlockSize bytes.
	ErrBlockSize = errors.New("ustar: header block must be 512 bytes")

	// ErrChecksum is returned in strict mode when a header checksum does not match.
	ErrChecksum = errors.New("ustar: header checksum mismatch")

	// ErrMagic is returned in strict mode when a header lacks the ustar signature.
	ErrMagic = errors.New("ustar: missing ustar magic")

	// ErrMissingTrailer is returned when the second end-of-archive block is
	// required but absent or non-zero.
	ErrMissingTrailer = errors.New("ustar: missing end-of-archive trailer")

	// ErrSizeOverflow is returned when an entry's size exceeds the configured
	// limit or cannot be held in memory.
	ErrSizeOverflow = errors.New("ustar: entry size overflow")

	// ErrUnsupportedDigest is returned when the configured digest algorithm is
	// not available.
	ErrUnsupportedDigest = errors.New("ustar: unsupported digest algorithm")
)
