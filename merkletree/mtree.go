package merkletree

import (
	"github.com/mining-pool/pow-ledger/utils"
)

// EmptyRoot is the root of a tree without leaves, SHA-256 of the empty string.
var EmptyRoot = utils.Sha256Hex("")

// MerkleTree keeps every level of the reduction, leaves first.
// Nodes are lowercase hex strings; a parent is the SHA-256 of the
// concatenation of its children's hex strings.
type MerkleTree struct {
	Leaves []string
	Levels [][]string
}

func NewMerkleTree(leaves []string) *MerkleTree {
	return &MerkleTree{
		Leaves: leaves,
		Levels: CalculateLevels(leaves),
	}
}

func CalculateLevels(leaves []string) [][]string {
	if len(leaves) == 0 {
		return [][]string{{EmptyRoot}}
	}

	L := make([]string, len(leaves))
	copy(L, leaves)
	levels := [][]string{L}

	for len(L) > 1 {
		if len(L)%2 != 0 {
			L = append(L, L[len(L)-1])
			levels[len(levels)-1] = L
		}

		next := make([]string, len(L)/2)
		for i := 0; i < len(L); i += 2 {
			next[i/2] = MerkleJoin(L[i], L[i+1])
		}
		levels = append(levels, next)
		L = next
	}

	return levels
}

func MerkleJoin(h1, h2 string) string {
	return utils.Sha256Hex(h1 + h2)
}

func (mt *MerkleTree) Root() string {
	top := mt.Levels[len(mt.Levels)-1]
	return top[0]
}

// Branch returns the sibling hashes from leaf index up to the root.
func (mt *MerkleTree) Branch(index int) ([]string, bool) {
	if index < 0 || index >= len(mt.Leaves) {
		return nil, false
	}

	branch := make([]string, 0, len(mt.Levels)-1)
	for _, level := range mt.Levels[:len(mt.Levels)-1] {
		branch = append(branch, level[index^1])
		index >>= 1
	}

	return branch, true
}

// VerifyBranch folds a branch from Branch back into a root.
func VerifyBranch(leaf string, index int, branch []string, root string) bool {
	h := leaf
	for _, sibling := range branch {
		if index&1 == 0 {
			h = MerkleJoin(h, sibling)
		} else {
			h = MerkleJoin(sibling, h)
		}
		index >>= 1
	}

	return h == root
}

// ComputeRoot reduces the ordered leaf hashes to a single root.
func ComputeRoot(leaves []string) string {
	return NewMerkleTree(leaves).Root()
}
