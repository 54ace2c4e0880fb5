package ledger

import (
	"fmt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/merkle"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/signature"
)

// Block represents the canonical set of fields a block hash commits to.
type Block struct {
	Index         uint64     `json:"index"`         // Position of the block in the chain, strictly increasing.
	TimeStamp     uint64     `json:"timestamp"`     // The time the block was assembled.
	Transactions  []SignedTx `json:"transactions"`  // Ordered transactions included in the block.
	PrevBlockHash string     `json:"previous_hash"` // Hash of the block at Index-1.
	Nonce         uint64     `json:"nonce"`         // Value varied during mining to solve the hash.
	Difficulty    int        `json:"difficulty"`    // Required leading zero characters in the hash.
	MerkleRoot    string     `json:"merkle_root"`   // Merkle commitment over Transactions.
}

// Hash returns the unique hash for the block, derived from the canonical
// JSON serialization of all its fields.
func (b Block) Hash() string {
	return signature.Hash(b)
}

// =============================================================================

// BlockData represents a block with its derived hash. This is the form a
// block is persisted in and shipped over the wire.
type BlockData struct {
	Block
	Hash string `json:"hash"`
}

// NewBlockData constructs block data from the specified block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Block: block,
		Hash:  block.Hash(),
	}
}

// Validate performs the structural checks a block must pass before it can be
// accepted: required fields, hash integrity, the difficulty target and the
// merkle commitment over its transactions.
func (bd BlockData) Validate() error {
	if bd.Hash == "" || bd.PrevBlockHash == "" || bd.MerkleRoot == "" {
		return ErrMissingFields
	}

	if hash := bd.Block.Hash(); hash != bd.Hash {
		return fmt.Errorf("block %d hash does not recompute, got %s, exp %s", bd.Index, hash, bd.Hash)
	}

	if !IsHashSolved(bd.Difficulty, bd.Hash) {
		return fmt.Errorf("block %d hash does not meet difficulty %d", bd.Index, bd.Difficulty)
	}

	root, err := merkle.Root(bd.Transactions)
	if err != nil {
		return fmt.Errorf("computing merkle root: %w", err)
	}
	if root != bd.MerkleRoot {
		return fmt.Errorf("block %d merkle root does not recompute, got %s, exp %s", bd.Index, root, bd.MerkleRoot)
	}

	return nil
}

// ValidateLink checks the block extends the specified previous block.
func (bd BlockData) ValidateLink(prev BlockData) error {
	if bd.Index != prev.Index+1 {
		return fmt.Errorf("block %d out of sequence, chain is at %d", bd.Index, prev.Index)
	}

	if bd.PrevBlockHash != prev.Hash {
		return fmt.Errorf("block %d previous hash does not match, got %s, exp %s", bd.Index, bd.PrevBlockHash, prev.Hash)
	}

	return nil
}

// =============================================================================

// IsHashSolved checks the hash meets the difficulty requirement of leading
// zero characters.
func IsHashSolved(difficulty int, hash string) bool {
	if len(hash) != 64 {
		return false
	}

	if difficulty < 1 || difficulty > 64 {
		return false
	}

	return hash[:difficulty] == signature.ZeroHash[:difficulty]
}
