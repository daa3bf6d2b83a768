package ustar

// BlockSize is the size of every header and content block in an archive.
const BlockSize = 512

// Block is one raw archive block.
type Block [BlockSize]byte

// IsZero reports whether every byte of the block is zero. An all-zero block
// marks the end of an archive.
func (b *Block) IsZero() bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
