// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import "math"

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// Blocks returns the number of blockSize-sized blocks needed to hold size bytes.
// blockSize must be positive.
func Blocks(size, blockSize uint64) uint64 {
	n := size / blockSize
	if size%blockSize != 0 {
		n++
	}
	return n
}

// Padding returns the number of bytes needed to pad size up to a multiple of blockSize.
func Padding(size, blockSize uint64) uint64 {
	if rem := size % blockSize; rem != 0 {
		return blockSize - rem
	}
	return 0
}
