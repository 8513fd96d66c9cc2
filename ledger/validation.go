package ledger

import (
	"fmt"

	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

var ErrEmptyChain = errors.New("chain has no genesis block")

type ValidationReason string

const (
	ReasonHashMismatch       ValidationReason = "invalid hash"
	ReasonBrokenLink         ValidationReason = "broken link with previous block"
	ReasonInsufficientWork   ValidationReason = "invalid proof of work"
	ReasonMerkleRootMismatch ValidationReason = "invalid merkle root"
)

// ValidationError names the first block that failed validation.
type ValidationError struct {
	Index  uint64
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("block #%d: %s", e.Index, e.Reason)
}

// ValidateChain walks blocks from index 1 and returns the first failure.
// The genesis block is trusted as is.
func ValidateChain(blocks []*types.Block, difficulty int) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	for i := 1; i < len(blocks); i++ {
		if err := ValidateBlock(blocks[i], blocks[i-1], difficulty); err != nil {
			return err
		}
	}

	return nil
}

// ValidateBlock checks, in order, the stored hash, the link to previous,
// the proof of work and the merkle root.
func ValidateBlock(block, previous *types.Block, difficulty int) error {
	if block.Hash() != block.ComputeHash() {
		return &ValidationError{Index: block.Index(), Reason: ReasonHashMismatch}
	}

	if block.PreviousHash() != previous.Hash() {
		return &ValidationError{Index: block.Index(), Reason: ReasonBrokenLink}
	}

	if !types.MeetsDifficulty(block.Hash(), difficulty) {
		return &ValidationError{Index: block.Index(), Reason: ReasonInsufficientWork}
	}

	if block.MerkleRoot() != block.ComputeMerkleRoot() {
		return &ValidationError{Index: block.Index(), Reason: ReasonMerkleRootMismatch}
	}

	return nil
}
