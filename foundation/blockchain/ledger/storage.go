package ledger

import "errors"

// ErrNotFound is returned by storage implementations when a block or the
// chain state does not exist.
var ErrNotFound = errors.New("not found")

// ChainState is the persisted snapshot of chain progress. It is written on
// every block append so a node can resume where it left off.
type ChainState struct {
	Height          uint64 `json:"height"`
	LatestBlockHash string `json:"latest_block_hash"`
	Difficulty      int    `json:"difficulty"`
}

// Storage interface represents the behavior required to be implemented by
// any package providing durable persistence for blocks and chain state.
// Implementations are expected to be synchronous: when a call returns, the
// data is durable.
type Storage interface {
	SaveBlock(bd BlockData) error
	LoadBlock(hash string) (BlockData, error)
	SaveChainState(state ChainState) error
	LoadChainState() (ChainState, error)
	LoadChain() ([]BlockData, error)
	Backup(name string) error
	Restore(name string) error
	Backups() ([]string, error)
	Close() error
}
