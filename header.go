package ustar

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/meigma/ustar/internal/field"
)

// Signature values for the ustar magic and version fields.
const (
	Magic   = "ustar\x00"
	Version = "00"
)

// Header field layout. Offsets and widths are fixed by the ustar format; the
// remaining 12 bytes of the block after the prefix are padding.
var (
	spanName     = field.Span{Off: 0, Len: 100}
	spanMode     = field.Span{Off: 100, Len: 8}
	spanUID      = field.Span{Off: 108, Len: 8}
	spanGID      = field.Span{Off: 116, Len: 8}
	spanSize     = field.Span{Off: 124, Len: 12}
	spanModTime  = field.Span{Off: 136, Len: 12}
	spanChecksum = field.Span{Off: 148, Len: 8}
	spanTypeFlag = field.Span{Off: 156, Len: 1}
	spanLinkname = field.Span{Off: 157, Len: 100}
	spanMagic    = field.Span{Off: 257, Len: 6}
	spanVersion  = field.Span{Off: 263, Len: 2}
	spanUname    = field.Span{Off: 265, Len: 32}
	spanGname    = field.Span{Off: 297, Len: 32}
	spanDevMajor = field.Span{Off: 329, Len: 8}
	spanDevMinor = field.Span{Off: 337, Len: 8}
	spanPrefix   = field.Span{Off: 345, Len: 155}
)

// TypeFlag classifies an archive member.
type TypeFlag byte

const (
	TypeReg     TypeFlag = '0'
	TypeRegA    TypeFlag = '\x00' // legacy alias for TypeReg
	TypeLink    TypeFlag = '1'
	TypeSymlink TypeFlag = '2'
	TypeChar    TypeFlag = '3'
	TypeBlock   TypeFlag = '4'
	TypeDir     TypeFlag = '5'
	TypeFIFO    TypeFlag = '6'
	TypeCont    TypeFlag = '7'
)

// String returns the human-readable name of the type flag.
func (t TypeFlag) String() string {
	switch t {
	case TypeReg, TypeRegA:
		return "file"
	case TypeLink:
		return "hardlink"
	case TypeSymlink:
		return "symlink"
	case TypeChar:
		return "char"
	case TypeBlock:
		return "block"
	case TypeDir:
		return "dir"
	case TypeFIFO:
		return "fifo"
	case TypeCont:
		return "contiguous"
	default:
		return "unknown"
	}
}

// IsRegular reports whether the flag denotes a regular file, including the
// legacy NUL alias and contiguous files.
func (t TypeFlag) IsRegular() bool {
	return t == TypeReg || t == TypeRegA || t == TypeCont
}

// IsDevice reports whether the flag denotes a character or block device.
func (t TypeFlag) IsDevice() bool {
	return t == TypeChar || t == TypeBlock
}

// Header is one decoded ustar header block.
//
// Numeric fields that are not valid octal decode to zero. String fields are
// cut at the first NUL byte.
type Header struct {
	// Name is the member path, without Prefix.
	Name string

	// Mode holds the permission and set-id bits.
	Mode uint32

	UID uint32
	GID uint32

	// Size is the content length in bytes.
	Size uint64

	// ModTime is the modification time in seconds since the Unix epoch.
	ModTime uint64

	// Checksum is the stored header checksum. It is not verified by Decode;
	// see VerifyChecksum.
	Checksum uint64

	TypeFlag TypeFlag

	// Linkname is the link target for hard and symbolic links.
	Linkname string

	Magic   [6]byte
	Version [2]byte

	Uname string
	Gname string

	// DevMajor and DevMinor are meaningful only for device type flags.
	DevMajor uint32
	DevMinor uint32

	// Prefix, when non-empty, is joined before Name to form the full path.
	Prefix string
}

// Decode decodes a header block. It returns false if the block is all zeros,
// which marks the end of the archive.
//
// Decode is a pure function of its input and never fails: every non-zero
// block maps to some Header.
func Decode(b *Block) (Header, bool) {
	if b.IsZero() {
		return Header{}, false
	}

	raw := b[:]
	h := Header{
		Name:     field.String(spanName.Slice(raw)),
		Mode:     octal32(spanMode.Slice(raw)),
		UID:      octal32(spanUID.Slice(raw)),
		GID:      octal32(spanGID.Slice(raw)),
		Size:     field.Octal(spanSize.Slice(raw)),
		ModTime:  field.Octal(spanModTime.Slice(raw)),
		Checksum: field.Octal(spanChecksum.Slice(raw)),
		TypeFlag: TypeFlag(raw[spanTypeFlag.Off]),
		Linkname: field.String(spanLinkname.Slice(raw)),
		Uname:    field.String(spanUname.Slice(raw)),
		Gname:    field.String(spanGname.Slice(raw)),
		DevMajor: octal32(spanDevMajor.Slice(raw)),
		DevMinor: octal32(spanDevMinor.Slice(raw)),
		Prefix:   field.String(spanPrefix.Slice(raw)),
	}
	copy(h.Magic[:], spanMagic.Slice(raw))
	copy(h.Version[:], spanVersion.Slice(raw))
	return h, true
}

// DecodeBytes is like Decode for a byte slice. raw must be exactly BlockSize
// bytes long, otherwise ErrBlockSize is returned.
func DecodeBytes(raw []byte) (Header, bool, error) {
	if len(raw) != BlockSize {
		return Header{}, false, ErrBlockSize
	}
	h, ok := Decode((*Block)(raw))
	return h, ok, nil
}

// octal32 decodes an 8-byte octal field. Such fields hold at most 8 octal
// digits, so the value always fits in 32 bits.
func octal32(b []byte) uint32 {
	v := field.Octal(b)
	if v > 1<<32-1 {
		return 0
	}
	return uint32(v) //nolint:gosec // range checked above
}

// FullName returns the member path, joining Prefix and Name with a slash when
// Prefix is set.
func (h *Header) FullName() string {
	if h.Prefix == "" {
		return h.Name
	}
	return h.Prefix + "/" + h.Name
}

// ModTimeUnix returns ModTime as a time.Time.
func (h *Header) ModTimeUnix() time.Time {
	if h.ModTime > 1<<63-1 {
		return time.Time{}
	}
	return time.Unix(int64(h.ModTime), 0) //nolint:gosec // range checked above
}

// HasUSTARMagic reports whether the magic and version fields carry the POSIX
// ustar signature.
func (h *Header) HasUSTARMagic() bool {
	return string(h.Magic[:]) == Magic && string(h.Version[:]) == Version
}

// Mode bits stored in the header's mode field.
const (
	modeSetUID = 0o4000
	modeSetGID = 0o2000
	modeSticky = 0o1000
)

// FileMode converts Mode and TypeFlag to an fs.FileMode.
func (h *Header) FileMode() fs.FileMode {
	mode := fs.FileMode(h.Mode & 0o777)
	if h.Mode&modeSetUID != 0 {
		mode |= fs.ModeSetuid
	}
	if h.Mode&modeSetGID != 0 {
		mode |= fs.ModeSetgid
	}
	if h.Mode&modeSticky != 0 {
		mode |= fs.ModeSticky
	}

	switch h.TypeFlag {
	case TypeDir:
		mode |= fs.ModeDir
	case TypeSymlink:
		mode |= fs.ModeSymlink
	case TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeFIFO:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

// String returns a multi-line dump of every header field, for debugging.
// Signature bytes are shown quoted with their NUL padding visible.
func (h *Header) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name:     %s\n", h.Name)
	fmt.Fprintf(&sb, "mode:     %07o\n", h.Mode)
	fmt.Fprintf(&sb, "uid:      %d\n", h.UID)
	fmt.Fprintf(&sb, "gid:      %d\n", h.GID)
	fmt.Fprintf(&sb, "size:     %d\n", h.Size)
	fmt.Fprintf(&sb, "mtime:    %d\n", h.ModTime)
	fmt.Fprintf(&sb, "chksum:   %06o\n", h.Checksum)
	fmt.Fprintf(&sb, "typeflag: %q (%s)\n", byte(h.TypeFlag), h.TypeFlag)
	fmt.Fprintf(&sb, "linkname: %s\n", h.Linkname)
	fmt.Fprintf(&sb, "magic:    %q\n", h.Magic[:])
	fmt.Fprintf(&sb, "version:  %q\n", h.Version[:])
	fmt.Fprintf(&sb, "uname:    %s\n", h.Uname)
	fmt.Fprintf(&sb, "gname:    %s\n", h.Gname)
	fmt.Fprintf(&sb, "devmajor: %d\n", h.DevMajor)
	fmt.Fprintf(&sb, "devminor: %d\n", h.DevMinor)
	fmt.Fprintf(&sb, "prefix:   %s", h.Prefix)
	return sb.String()
}
