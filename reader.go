package ustar

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/ustar/internal/blockio"
	"github.com/meigma/ustar/internal/sizing"
)

// initialContentCap bounds the up-front allocation for entry content so a
// corrupt size field cannot force a huge allocation before any data is read.
const initialContentCap = 1 << 20

// Reader iterates over the entries of a ustar stream.
//
// A Reader's only state is its position in the stream. It is not safe for
// concurrent use; use one Reader per stream. The stream is borrowed and never
// closed by the Reader.
type Reader struct {
	br *blockio.Reader

	strict         bool
	requireTrailer bool
	maxEntrySize   uint64
	digestAlg      digest.Algorithm
	logger         *slog.Logger
}

// NewReader creates a Reader that reads entries from r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	tr := &Reader{br: blockio.NewReader(r)}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Offset returns the number of bytes consumed from the stream. After Next
// returns an entry, Offset is the start of the following header block.
func (r *Reader) Offset() uint64 {
	return r.br.Offset()
}

// Next reads the next entry.
//
// It returns io.EOF when the stream ends cleanly before a header block or when
// an all-zero header block is read. A header or content read that ends part way
// returns an error wrapping ErrTruncated. Other stream errors are returned
// unchanged.
func (r *Reader) Next() (*Entry, error) {
	if r.digestAlg != "" && !r.digestAlg.Available() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDigest, r.digestAlg)
	}

	off := r.br.Offset()

	var blk Block
	n, err := r.br.ReadFull(blk[:])
	switch {
	case err == nil:
	case n == 0 && errors.Is(err, io.EOF):
		r.log().Debug("end of stream", "offset", off)
		return nil, io.EOF
	case n > 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)):
		// A torn header is never a clean end, even if the source reports io.EOF.
		return nil, fmt.Errorf("%w: header at offset %d: read %d of %d bytes: %w",
			ErrTruncated, off, n, BlockSize, io.ErrUnexpectedEOF)
	default:
		return nil, err
	}

	hdr, ok := Decode(&blk)
	if !ok {
		r.log().Debug("end of archive marker", "offset", off)
		if r.requireTrailer {
			if err := r.readTrailer(); err != nil {
				return nil, err
			}
		}
		return nil, io.EOF
	}

	if r.strict {
		if err := r.validate(&blk, &hdr, off); err != nil {
			return nil, err
		}
	}

	content, err := r.readContent(&hdr)
	if err != nil {
		return nil, err
	}

	e := &Entry{Header: hdr, Content: content, Offset: off}
	if r.digestAlg != "" {
		e.Digest = r.digestAlg.FromBytes(content)
	}

	r.log().Debug("read entry",
		"name", hdr.FullName(),
		"type", hdr.TypeFlag.String(),
		"size", hdr.Size,
		"offset", off)
	return e, nil
}

// All returns an iterator over the remaining entries. Iteration stops after
// the end of the archive or after the first error, which is yielded with a
// nil entry.
func (r *Reader) All() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			e, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// validate applies the strict-mode header checks.
func (r *Reader) validate(blk *Block, hdr *Header, off uint64) error {
	if !VerifyChecksum(blk) {
		r.log().Warn("header checksum mismatch",
			"offset", off,
			"stored", hdr.Checksum,
			"computed", ComputeChecksum(blk))
		return fmt.Errorf("%w: header at offset %d: stored %o, computed %o",
			ErrChecksum, off, hdr.Checksum, ComputeChecksum(blk))
	}
	if !hdr.HasUSTARMagic() {
		r.log().Warn("header without ustar magic", "offset", off, "magic", string(hdr.Magic[:]))
		return fmt.Errorf("%w: header at offset %d: magic %q version %q",
			ErrMagic, off, hdr.Magic[:], hdr.Version[:])
	}
	return nil
}

// readContent reads the blocks holding hdr.Size bytes of content and returns
// the content without its trailing block padding. The type flag is not
// consulted; members without content have a zero size. A stream that ends
// inside the final block's padding is not treated as truncated.
func (r *Reader) readContent(hdr *Header) ([]byte, error) {
	size := hdr.Size
	if r.maxEntrySize > 0 && size > r.maxEntrySize {
		return nil, fmt.Errorf("%w: %q: size %d exceeds limit %d",
			ErrSizeOverflow, hdr.FullName(), size, r.maxEntrySize)
	}
	if _, err := sizing.ToInt(size, ErrSizeOverflow); err != nil {
		return nil, fmt.Errorf("%w: %q: size %d", err, hdr.FullName(), size)
	}

	content := make([]byte, 0, min(size, initialContentCap))
	blocks := sizing.Blocks(size, BlockSize)

	var blk Block
	for range blocks {
		n, err := r.br.ReadFull(blk[:])
		take := min(size-uint64(len(content)), uint64(n)) //nolint:gosec // n is non-negative
		content = append(content, blk[:take]...)
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		// Only padding is missing from the final block.
		if uint64(len(content)) == size {
			r.log().Debug("stream ended inside block padding", "name", hdr.FullName())
			break
		}
		return nil, fmt.Errorf("%w: content of %q: read %d of %d bytes: %w",
			ErrTruncated, hdr.FullName(), len(content), size, io.ErrUnexpectedEOF)
	}
	return content, nil
}

// readTrailer checks that the block after an end-of-archive marker is also
// all zeros.
func (r *Reader) readTrailer() error {
	off := r.br.Offset()

	var blk Block
	n, err := r.br.ReadFull(blk[:])
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: stream ended at offset %d after %d bytes of the second zero block",
			ErrMissingTrailer, off, n)
	case err != nil:
		return err
	}
	if !blk.IsZero() {
		r.log().Warn("non-zero block after end of archive marker", "offset", off)
		return fmt.Errorf("%w: non-zero block at offset %d", ErrMissingTrailer, off)
	}
	return nil
}
