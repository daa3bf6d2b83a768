package ustar

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ustar/internal/testutil"
)

func u64(v uint64) *uint64 { return &v }

func TestReaderHelloWorld(t *testing.T) {
	data := testutil.Archive(testutil.RegularFile("hello.txt", []byte("hi")))
	require.Len(t, data, 4*BlockSize)

	r := NewReader(bytes.NewReader(data))

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", e.Name())
	assert.Equal(t, TypeReg, e.Header.TypeFlag)
	assert.Equal(t, uint64(2), e.Header.Size)
	assert.Equal(t, []byte("hi"), e.Content)
	assert.Equal(t, uint64(0), e.Offset)
	assert.Empty(t, e.Digest)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderEntriesInOrder(t *testing.T) {
	files := []testutil.File{
		testutil.RegularFile("a.txt", []byte("alpha")),
		testutil.RegularFile("b.txt", bytes.Repeat([]byte("b"), 512)),
		testutil.RegularFile("c.txt", nil),
		testutil.RegularFile("d.txt", bytes.Repeat([]byte("d"), 1500)),
	}
	r := NewReader(bytes.NewReader(testutil.Archive(files...)))

	for _, f := range files {
		e, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, f.Name, e.Name())
		assert.Equal(t, len(f.Content), len(e.Content))
		assert.True(t, bytes.Equal(f.Content, e.Content))
	}

	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)

	// The reader keeps no state beyond its cursor: the second trailer block
	// and then the exhausted stream both read as the end.
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderContentLength(t *testing.T) {
	for _, size := range []int{0, 1, 2, 511, 512, 513, 1023, 1024, 1025, 4096} {
		content := bytes.Repeat([]byte{0xab}, size)
		data := testutil.Archive(
			testutil.RegularFile("f", content),
			testutil.RegularFile("next", []byte("x")),
		)
		r := NewReader(bytes.NewReader(data))

		e, err := r.Next()
		require.NoError(t, err, "size %d", size)
		assert.Len(t, e.Content, size)
		assert.Equal(t, uint64(size), e.Header.Size) //nolint:gosec // test sizes are small

		e, err = r.Next()
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, "next", e.Name())
	}
}

func TestReaderBlockAlignment(t *testing.T) {
	content := make([]byte, 513)
	for i := range content {
		content[i] = byte(i)
	}
	data := testutil.Archive(testutil.RegularFile("big", content))
	r := NewReader(bytes.NewReader(data))

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, content, e.Content)
	// One header block plus two content blocks.
	assert.Equal(t, uint64(3*BlockSize), r.Offset())
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderWithoutTrailer(t *testing.T) {
	data := testutil.Entries(testutil.RegularFile("a", []byte("1")))
	r := NewReader(bytes.NewReader(data))

	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderTruncatedHeader(t *testing.T) {
	data := testutil.Entries(testutil.RegularFile("a", []byte("1")))
	data = append(data, testutil.Header(testutil.RegularFile("b", nil))[:300]...)
	r := NewReader(bytes.NewReader(data))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestReaderTruncatedHeaderOnly(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 300)))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReaderWrappedEOF(t *testing.T) {
	wrapped := fmt.Errorf("source: %w", io.EOF)

	t.Run("torn header", func(t *testing.T) {
		r := NewReader(&testutil.FailingReader{Data: make([]byte, 300), Err: wrapped})
		_, err := r.Next()
		assert.ErrorIs(t, err, ErrTruncated)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("torn content", func(t *testing.T) {
		data := testutil.Entries(testutil.RegularFile("f", make([]byte, 600)))
		r := NewReader(&testutil.FailingReader{Data: data[:BlockSize+100], Err: wrapped})
		_, err := r.Next()
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("clean end", func(t *testing.T) {
		data := testutil.Entries(testutil.RegularFile("f", []byte("x")))
		r := NewReader(&testutil.FailingReader{Data: data, Err: wrapped})
		_, err := r.Next()
		require.NoError(t, err)
		_, err = r.Next()
		assert.ErrorIs(t, err, io.EOF)
		assert.NotErrorIs(t, err, ErrTruncated)
	})
}

func TestReaderTruncatedContent(t *testing.T) {
	tests := []struct {
		name string
		keep int
	}{
		{"no content", BlockSize},
		{"mid block", BlockSize + 100},
		{"block boundary", 2 * BlockSize},
		{"mid final block", 2*BlockSize + 10},
	}
	content := bytes.Repeat([]byte("x"), 600)
	data := testutil.Entries(testutil.RegularFile("f", content))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(data[:tt.keep]))
			_, err := r.Next()
			assert.ErrorIs(t, err, ErrTruncated)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestReaderMissingPaddingOnly(t *testing.T) {
	data := testutil.Entries(testutil.RegularFile("hello.txt", []byte("hi")))
	data = data[:BlockSize+2]
	r := NewReader(bytes.NewReader(data))

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), e.Content)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderSizeIgnoresTypeFlag(t *testing.T) {
	dir := testutil.File{Name: "dir/", Type: '5', Mode: 0o755}
	link := testutil.File{Name: "link", Type: '2', Linkname: "dir/file", Mode: 0o777}
	// A directory that claims content still has its blocks consumed.
	odd := testutil.File{Name: "odd/", Type: '5', Content: []byte("payload")}
	file := testutil.RegularFile("dir/file", []byte("data"))

	r := NewReader(bytes.NewReader(testutil.Archive(dir, link, odd, file)))

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeDir, e.Header.TypeFlag)
	assert.Empty(t, e.Content)
	assert.Equal(t, uint64(BlockSize), r.Offset())

	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeSymlink, e.Header.TypeFlag)
	assert.Equal(t, "dir/file", e.Header.Linkname)
	assert.Empty(t, e.Content)

	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), e.Content)

	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "dir/file", e.Name())
	assert.Equal(t, []byte("data"), e.Content)
}

func TestReaderOneByteReads(t *testing.T) {
	data := testutil.Archive(
		testutil.RegularFile("a", bytes.Repeat([]byte("a"), 700)),
		testutil.RegularFile("b", []byte("b")),
	)
	r := NewReader(iotest.OneByteReader(bytes.NewReader(data)))

	var names []string
	for e, err := range r.All() {
		require.NoError(t, err)
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestReaderPropagatesStreamErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("header", func(t *testing.T) {
		r := NewReader(&testutil.FailingReader{Data: make([]byte, 100), Err: boom})
		_, err := r.Next()
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrTruncated)
	})

	t.Run("content", func(t *testing.T) {
		data := testutil.Entries(testutil.RegularFile("f", make([]byte, 1000)))
		r := NewReader(&testutil.FailingReader{Data: data[:BlockSize+10], Err: boom})
		_, err := r.Next()
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrTruncated)
	})
}

func TestReaderAllStopsOnError(t *testing.T) {
	data := testutil.Entries(testutil.RegularFile("a", []byte("1")))
	data = append(data, make([]byte, 10)...)
	data[BlockSize*2] = 'x'
	r := NewReader(bytes.NewReader(data))

	var names []string
	var errs []error
	for e, err := range r.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a"}, names)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTruncated)
}

func TestReaderAllEarlyBreak(t *testing.T) {
	data := testutil.Archive(
		testutil.RegularFile("a", nil),
		testutil.RegularFile("b", nil),
	)
	r := NewReader(bytes.NewReader(data))

	for e, err := range r.All() {
		require.NoError(t, err)
		assert.Equal(t, "a", e.Name())
		break
	}

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", e.Name())
}

func TestReaderStrict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		data := testutil.Archive(testutil.RegularFile("ok", []byte("ok")))
		r := NewReader(bytes.NewReader(data), WithStrict(true))
		_, err := r.Next()
		require.NoError(t, err)
	})

	t.Run("bad checksum", func(t *testing.T) {
		data := testutil.Archive(testutil.RegularFile("ok", []byte("ok")))
		data[0] = 'X'

		_, err := NewReader(bytes.NewReader(data), WithStrict(true)).Next()
		assert.ErrorIs(t, err, ErrChecksum)

		// Permissive by default.
		e, err := NewReader(bytes.NewReader(data)).Next()
		require.NoError(t, err)
		assert.Equal(t, "Xk", e.Name())
	})

	t.Run("gnu magic", func(t *testing.T) {
		f := testutil.RegularFile("gnu", nil)
		f.Magic = "ustar  \x00"
		data := testutil.Archive(f)

		_, err := NewReader(bytes.NewReader(data), WithStrict(true)).Next()
		assert.ErrorIs(t, err, ErrMagic)
	})
}

func TestReaderRequireTrailer(t *testing.T) {
	entries := testutil.Entries(testutil.RegularFile("a", []byte("1")))

	tests := []struct {
		name    string
		trailer []byte
		wantErr error
	}{
		{"two zero blocks", make([]byte, 2*BlockSize), io.EOF},
		{"one zero block", make([]byte, BlockSize), ErrMissingTrailer},
		{"partial second block", make([]byte, BlockSize+100), ErrMissingTrailer},
		{"non-zero second block", append(make([]byte, BlockSize), testutil.Header(testutil.RegularFile("z", nil))...), ErrMissingTrailer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte{}, entries...), tt.trailer...)

			r := NewReader(bytes.NewReader(data), WithRequireTrailer(true))
			_, err := r.Next()
			require.NoError(t, err)
			_, err = r.Next()
			assert.ErrorIs(t, err, tt.wantErr)

			// Without the option a single zero block ends the archive.
			r = NewReader(bytes.NewReader(data))
			_, err = r.Next()
			require.NoError(t, err)
			_, err = r.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReaderMaxEntrySize(t *testing.T) {
	data := testutil.Archive(
		testutil.RegularFile("small", []byte("1234")),
		testutil.RegularFile("large", bytes.Repeat([]byte("x"), 100)),
	)
	r := NewReader(bytes.NewReader(data), WithMaxEntrySize(10))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrSizeOverflow)
}

func TestReaderHugeSizeIsTruncatedNotAllocated(t *testing.T) {
	f := testutil.RegularFile("huge", []byte("tiny"))
	f.Size = u64(0o77777777777)
	r := NewReader(bytes.NewReader(testutil.Archive(f)))

	_, err := r.Next()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReaderDigest(t *testing.T) {
	content := []byte("hello, world")
	data := testutil.Archive(testutil.RegularFile("f", content))

	e, err := NewReader(bytes.NewReader(data), WithDigest(digest.SHA256)).Next()
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(content), e.Digest)

	e, err = NewReader(bytes.NewReader(data), WithDigest(digest.SHA512)).Next()
	require.NoError(t, err)
	assert.Equal(t, digest.SHA512.FromBytes(content), e.Digest)

	r := NewReader(bytes.NewReader(data), WithDigest("bogus"))
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrUnsupportedDigest)
	// The configuration error is reported before any entry is consumed.
	assert.Zero(t, r.Offset())
}

func TestReaderLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	data := testutil.Archive(testutil.RegularFile("logged.txt", []byte("x")))

	r := NewReader(bytes.NewReader(data), WithLogger(logger))
	for _, err := range r.All() {
		require.NoError(t, err)
	}

	out := buf.String()
	assert.Contains(t, out, "read entry")
	assert.Contains(t, out, "name=logged.txt")
	assert.Contains(t, out, "end of archive marker")
}

func TestReaderStdlibArchive(t *testing.T) {
	longName := strings.Repeat("d", 60) + "/" + strings.Repeat("e", 60) + "/file.txt"
	mtime := time.Unix(1600000000, 0)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "dir/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  mtime,
		Format:   tar.FormatUSTAR,
	}))
	body := bytes.Repeat([]byte("0123456789"), 77)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     longName,
		Typeflag: tar.TypeReg,
		Mode:     0o640,
		Uid:      501,
		Gid:      20,
		Uname:    "alice",
		Gname:    "staff",
		Size:     int64(len(body)),
		ModTime:  mtime,
		Format:   tar.FormatUSTAR,
	}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()), WithStrict(true), WithRequireTrailer(true))

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "dir/", e.Name())
	assert.True(t, e.Header.FileInfo().IsDir())

	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, longName, e.Name())
	assert.NotEmpty(t, e.Header.Prefix)
	assert.Equal(t, uint32(0o640), e.Header.Mode)
	assert.Equal(t, uint32(501), e.Header.UID)
	assert.Equal(t, uint32(20), e.Header.GID)
	assert.Equal(t, "alice", e.Header.Uname)
	assert.Equal(t, "staff", e.Header.Gname)
	assert.Equal(t, mtime, e.Header.ModTimeUnix())
	assert.Equal(t, body, e.Content)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
