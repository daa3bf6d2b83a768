package ustar

import "github.com/meigma/ustar/internal/field"

// ComputeChecksum returns the unsigned byte sum of the block with the checksum
// field treated as eight ASCII spaces.
func ComputeChecksum(b *Block) uint64 {
	var sum uint64
	for i, c := range b {
		if i >= spanChecksum.Off && i < spanChecksum.End() {
			c = ' '
		}
		sum += uint64(c)
	}
	return sum
}

// VerifyChecksum reports whether the checksum stored in the block matches
// ComputeChecksum. A checksum field that is not valid octal never verifies.
func VerifyChecksum(b *Block) bool {
	stored, ok := field.ParseOctal(spanChecksum.Slice(b[:]))
	if !ok {
		return false
	}
	return stored == ComputeChecksum(b)
}
