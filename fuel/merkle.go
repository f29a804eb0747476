package fuel

import "crypto/sha256"

var (
	leafPrefix     = []byte{0x00}
	interiorPrefix = []byte{0x01}
)

// LeafSize is the chunk width used when computing a code root.
const LeafSize = 8

// MerkleRoot returns the root of the binary Merkle tree over items.
// Leaves hash as sha256(0x00||item), interior nodes as
// sha256(0x01||left||right), and the left subtree holds the largest
// power of two strictly less than the item count.
func MerkleRoot(items [][]byte) Bytes32 {
	switch len(items) {
	case 0:
		return sha256.Sum256(nil)
	case 1:
		return Hash(leafPrefix, items[0])
	default:
		k := prevPowerOfTwo(len(items))
		left := MerkleRoot(items[:k])
		right := MerkleRoot(items[k:])
		return Hash(interiorPrefix, left[:], right[:])
	}
}

// CodeRoot returns the Merkle root of code split into LeafSize-byte
// leaves, the last one zero-padded. A predicate's code root is the
// address that owns whatever the predicate guards.
func CodeRoot(code []byte) Bytes32 {
	var leaves [][]byte
	for i := 0; i < len(code); i += LeafSize {
		leaf := make([]byte, LeafSize)
		copy(leaf, code[i:])
		leaves = append(leaves, leaf)
	}
	return MerkleRoot(leaves)
}

// prevPowerOfTwo returns the largest power of two k with k < n <= 2k.
func prevPowerOfTwo(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}
