package ustar

import (
	"io/fs"
	"math"
	"path"
	"time"
)

// FileInfo returns an fs.FileInfo describing the header. Sys returns a pointer
// to a copy of the Header.
func (h *Header) FileInfo() fs.FileInfo {
	hdr := *h
	return headerFileInfo{h: &hdr}
}

type headerFileInfo struct {
	h *Header
}

var _ fs.FileInfo = headerFileInfo{}

func (fi headerFileInfo) Name() string {
	name := fi.h.FullName()
	if fi.IsDir() {
		name = trimTrailingSlash(name)
	}
	return path.Base(name)
}

func (fi headerFileInfo) Size() int64 {
	if fi.h.Size > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(fi.h.Size) //nolint:gosec // range checked above
}

func (fi headerFileInfo) Mode() fs.FileMode  { return fi.h.FileMode() }
func (fi headerFileInfo) ModTime() time.Time { return fi.h.ModTimeUnix() }
func (fi headerFileInfo) IsDir() bool        { return fi.Mode().IsDir() }
func (fi headerFileInfo) Sys() any           { return fi.h }

func trimTrailingSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
