package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/ustar"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// listFile opens the named archive ("-" for stdin) and lists it to w.
func listFile(w io.Writer, name string, stdin io.Reader, cfg *config, logger *slog.Logger) error {
	src := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	rc, err := decompress(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	return list(w, rc, cfg, logger)
}

// decompress sniffs the stream for a gzip or zstd header and returns a reader
// over the decompressed archive. Uncompressed streams are returned as is.
func decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return gzip.NewReader(br)
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}

// list writes one line per archive entry to w.
func list(w io.Writer, r io.Reader, cfg *config, logger *slog.Logger) error {
	opts := []ustar.Option{
		ustar.WithStrict(cfg.strict),
		ustar.WithRequireTrailer(cfg.trailer),
		ustar.WithMaxEntrySize(cfg.maxSize),
		ustar.WithLogger(logger),
	}
	if cfg.digest != "" {
		opts = append(opts, ustar.WithDigest(digest.Algorithm(cfg.digest)))
	}

	tr := ustar.NewReader(r, opts...)
	for e, err := range tr.All() {
		if err != nil {
			return err
		}
		writeEntry(w, e, cfg)
	}
	return nil
}

func writeEntry(w io.Writer, e *ustar.Entry, cfg *config) {
	h := &e.Header
	owner := h.Uname
	if owner == "" {
		owner = fmt.Sprint(h.UID)
	}
	group := h.Gname
	if group == "" {
		group = fmt.Sprint(h.GID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s/%s %10d %s %s",
		h.FileMode(), owner, group, h.Size,
		h.ModTimeUnix().UTC().Format(time.DateTime), h.FullName())
	switch h.TypeFlag {
	case ustar.TypeSymlink:
		fmt.Fprintf(&sb, " -> %s", h.Linkname)
	case ustar.TypeLink:
		fmt.Fprintf(&sb, " link to %s", h.Linkname)
	case ustar.TypeChar, ustar.TypeBlock:
		fmt.Fprintf(&sb, " (%d,%d)", h.DevMajor, h.DevMinor)
	}
	if e.Digest != "" {
		fmt.Fprintf(&sb, " %s", e.Digest)
	}
	fmt.Fprintln(w, sb.String())

	if cfg.long {
		for _, line := range strings.Split(h.String(), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	if cfg.preview > 0 && len(e.Content) > 0 {
		n := min(cfg.preview, len(e.Content))
		fmt.Fprintf(w, "    %q\n", strings.ToValidUTF8(string(e.Content[:n]), "\uFFFD"))
	}
}
