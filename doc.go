// Package ustar reads POSIX ustar tape archives from a byte stream.
//
// An archive is a sequence of 512-byte blocks. Each member starts with a
// header block, followed by its content padded to a block boundary. An
// all-zero header block ends the archive.
//
// Decoding is permissive: numeric fields that are not valid octal decode to
// zero, and header checksums and signatures are only checked when the reader
// is created with [WithStrict].
//
// # Reading
//
//	r := ustar.NewReader(f)
//	for e, err := range r.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(e.Name(), len(e.Content))
//	}
//
// Next may be used instead of All; it returns io.EOF at the end of the archive.
//
// Extended pax headers and GNU extensions are not interpreted; such members
// are returned as ordinary entries with their raw type flag.
package ustar
