package ustar

import (
	_ "crypto/sha256" // for opencontainers/go-digest
	_ "crypto/sha512" // for opencontainers/go-digest

	"github.com/opencontainers/go-digest"
)

// Entry is one archive member: its header and exactly Header.Size bytes of
// content. Block padding after the content is never included.
type Entry struct {
	Header Header

	// Content holds the member's data.
	Content []byte

	// Offset is the stream offset of the member's header block.
	Offset uint64

	// Digest is the content digest, set only when the reader was configured
	// with WithDigest.
	Digest digest.Digest
}

// Name returns the member's full path.
func (e *Entry) Name() string {
	return e.Header.FullName()
}
