// Package testutil builds ustar archives for tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/sizing"
)

// BlockSize mirrors ustar.BlockSize; testutil cannot import the root package.
const BlockSize = 512

// File describes one archive member to encode.
type File struct {
	Name     string
	Prefix   string
	Linkname string
	Type     byte
	Mode     uint32
	UID      uint32
	GID      uint32
	ModTime  uint64
	Uname    string
	Gname    string
	DevMajor uint32
	DevMinor uint32
	Content  []byte

	// Size overrides the encoded size field when non-nil.
	Size *uint64

	// Magic overrides the default "ustar\x0000" magic and version bytes.
	Magic string
}

// RegularFile returns a File for a regular file with mode 0644.
func RegularFile(name string, content []byte) File {
	return File{
		Name:    name,
		Type:    '0',
		Mode:    0o644,
		UID:     1000,
		GID:     1000,
		ModTime: 1700000000,
		Uname:   "user",
		Gname:   "group",
		Content: content,
	}
}

// Header encodes the header block for f with a valid checksum.
func Header(f File) []byte {
	h := make([]byte, BlockSize)
	copy(h[0:100], f.Name)
	putOctal(h[100:108], uint64(f.Mode))
	putOctal(h[108:116], uint64(f.UID))
	putOctal(h[116:124], uint64(f.GID))
	size := uint64(len(f.Content))
	if f.Size != nil {
		size = *f.Size
	}
	putOctal(h[124:136], size)
	putOctal(h[136:148], f.ModTime)
	h[156] = f.Type
	copy(h[157:257], f.Linkname)
	magic := f.Magic
	if magic == "" {
		magic = "ustar\x0000"
	}
	copy(h[257:265], magic)
	copy(h[265:297], f.Uname)
	copy(h[297:329], f.Gname)
	putOctal(h[329:337], uint64(f.DevMajor))
	putOctal(h[337:345], uint64(f.DevMinor))
	copy(h[345:500], f.Prefix)
	SetChecksum(h)
	return h
}

// SetChecksum recomputes and stores the checksum of header block h.
func SetChecksum(h []byte) {
	copy(h[148:156], "        ")
	var sum uint64
	for _, c := range h {
		sum += uint64(c)
	}
	copy(h[148:156], fmt.Sprintf("%06o\x00 ", sum))
}

// putOctal writes v as zero-padded octal followed by a NUL terminator.
func putOctal(dst []byte, v uint64) {
	copy(dst, fmt.Sprintf("%0*o\x00", len(dst)-1, v))
}

// Entries encodes the members without the end-of-archive trailer.
func Entries(files ...File) []byte {
	var buf bytes.Buffer
	for _, f := range files {
		buf.Write(Header(f))
		buf.Write(f.Content)
		buf.Write(make([]byte, sizing.Padding(uint64(len(f.Content)), BlockSize)))
	}
	return buf.Bytes()
}

// Archive encodes the members followed by two zero blocks.
func Archive(files ...File) []byte {
	return append(Entries(files...), make([]byte, 2*BlockSize)...)
}

// FailingReader returns the bytes of Data and then Err.
type FailingReader struct {
	Data []byte
	Err  error
}

// Read implements io.Reader.
func (r *FailingReader) Read(p []byte) (int, error) {
	if len(r.Data) == 0 {
		return 0, r.Err
	}
	n := copy(p, r.Data)
	r.Data = r.Data[n:]
	return n, nil
}

var _ io.Reader = (*FailingReader)(nil)
