// Package blockio reads fixed-size blocks from a byte stream while tracking
// the stream offset.
package blockio

import (
	"errors"
	"io"
)

// ErrOverflow indicates the offset counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// CountingReader wraps a reader and counts bytes read.
type CountingReader struct {
	R io.Reader
	N uint64
}

// Read implements io.Reader.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Reader contract
		if cr.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		cr.N += uint64(n) //nolint:gosec // overflow checked above
	}
	return n, err
}

// Reader pulls whole blocks from an underlying stream.
//
// The stream is borrowed: Reader never closes it.
type Reader struct {
	cr CountingReader
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{cr: CountingReader{R: r}}
}

// Offset returns the number of bytes consumed from the stream so far.
func (r *Reader) Offset() uint64 {
	return r.cr.N
}

// ReadFull fills p from the stream and returns the number of bytes read.
//
// The error is io.EOF only if no bytes were read, and io.ErrUnexpectedEOF if
// the stream ended after some but not all of p was filled. Other errors from
// the stream are returned unchanged.
func (r *Reader) ReadFull(p []byte) (int, error) {
	return io.ReadFull(&r.cr, p)
}
