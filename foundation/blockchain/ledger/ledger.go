// Package ledger maintains the append-only block chain and the pending
// transaction pool. It is the single owner of chain state: every mutation
// runs under its lock and persists through the Storage interface before it
// becomes visible.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/merkle"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/signature"
)

// Set of errors returned when validating and accepting transactions,
// blocks and chains.
var (
	ErrMissingFields        = errors.New("required fields are missing")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrStaleTransaction     = errors.New("transaction is outside the freshness window")
	ErrDuplicateTransaction = errors.New("transaction already in the pending pool")
	ErrRecoveryFailed       = errors.New("chain recovery failed")
)

// EventHandler defines a function that is called when interesting ledger
// events occur.
type EventHandler func(v string, args ...any)

// =============================================================================

// Ledger owns the ordered block sequence and the pending transaction pool.
type Ledger struct {
	mu sync.RWMutex

	storage   Storage
	evHandler EventHandler

	genesisDifficulty int

	chain      []BlockData
	pool       []SignedTx
	difficulty int
}

// New constructs a ledger from the chain held by the specified storage. A
// fresh storage produces a chain holding only the genesis block, which is
// persisted immediately.
func New(storage Storage, genesisDifficulty int, evHandler EventHandler) (*Ledger, error) {
	if genesisDifficulty < 1 {
		genesisDifficulty = 1
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	l := Ledger{
		storage:           storage,
		evHandler:         ev,
		genesisDifficulty: genesisDifficulty,
		difficulty:        genesisDifficulty,
	}

	blocks, err := storage.LoadChain()
	if err != nil {
		return nil, fmt.Errorf("loading chain: %w", err)
	}

	if len(blocks) == 0 {
		gen := newGenesisBlock(genesisDifficulty, time.Now())

		if err := storage.SaveBlock(gen); err != nil {
			return nil, fmt.Errorf("saving genesis block: %w", err)
		}

		state := ChainState{Height: 0, LatestBlockHash: gen.Hash, Difficulty: genesisDifficulty}
		if err := storage.SaveChainState(state); err != nil {
			return nil, fmt.Errorf("saving chain state: %w", err)
		}

		l.chain = []BlockData{gen}
		ev("ledger: created genesis block: %s", gen.Hash)

		return &l, nil
	}

	if err := validateChain(blocks); err != nil {
		return nil, fmt.Errorf("stored chain is invalid: %w", err)
	}
	l.chain = blocks

	state, err := storage.LoadChainState()
	switch {
	case err == nil:
		if state.Difficulty >= 1 {
			l.difficulty = state.Difficulty
		}
	case errors.Is(err, ErrNotFound):
		// No snapshot yet, keep the genesis difficulty.
	default:
		return nil, fmt.Errorf("loading chain state: %w", err)
	}

	ev("ledger: loaded chain at height %d with difficulty %d", l.chain[len(l.chain)-1].Index, l.difficulty)

	return &l, nil
}

// Close flushes the chain state snapshot and releases the storage.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.chain[len(l.chain)-1]
	state := ChainState{Height: latest.Index, LatestBlockHash: latest.Hash, Difficulty: l.difficulty}
	if err := l.storage.SaveChainState(state); err != nil {
		l.storage.Close()
		return fmt.Errorf("flushing chain state: %w", err)
	}

	return l.storage.Close()
}

// =============================================================================
// Pending pool

// SubmitTransaction verifies a signed transaction and accepts it into the
// pending pool, returning the block index the transaction is expected to
// land in.
func (l *Ledger) SubmitTransaction(tx SignedTx) (uint64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, have := range l.pool {
		if have.Signature == tx.Signature {
			return 0, ErrDuplicateTransaction
		}
	}

	l.pool = append(l.pool, tx)
	l.evHandler("ledger: accepted transaction: %s", tx)

	return l.chain[len(l.chain)-1].Index + 1, nil
}

// PendingTransactions returns a copy of the pending pool.
func (l *Ledger) PendingTransactions() []SignedTx {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := make([]SignedTx, len(l.pool))
	copy(txs, l.pool)

	return txs
}

// PendingCount returns the number of transactions waiting to be mined.
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.pool)
}

// DrainPool atomically removes and returns every pending transaction so the
// mining engine can assemble a candidate block from a stable snapshot.
func (l *Ledger) DrainPool() []SignedTx {
	l.mu.Lock()
	defer l.mu.Unlock()

	txs := l.pool
	l.pool = nil

	return txs
}

// RequeueTransactions returns drained transactions to the pool after a
// cancelled mining attempt. Transactions that made it into the chain or
// back into the pool in the meantime are dropped.
func (l *Ledger) RequeueTransactions(txs []SignedTx) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{})
	for _, tx := range l.pool {
		seen[tx.Signature] = struct{}{}
	}
	for _, bd := range l.chain {
		for _, tx := range bd.Transactions {
			seen[tx.Signature] = struct{}{}
		}
	}

	for _, tx := range txs {
		if _, exists := seen[tx.Signature]; exists {
			continue
		}
		l.pool = append(l.pool, tx)
	}
}

// =============================================================================
// Chain access

// GenesisBlock returns block zero of the chain.
func (l *Ledger) GenesisBlock() BlockData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[0]
}

// LatestBlock returns the block at the tip of the chain.
func (l *Ledger) LatestBlock() BlockData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1]
}

// Height returns the index of the latest block.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1].Index
}

// Blocks returns the blocks in the inclusive index range [start, end],
// clamped to the chain tip.
func (l *Ledger) Blocks(start uint64, end uint64) []BlockData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	latest := l.chain[len(l.chain)-1].Index
	if end > latest {
		end = latest
	}
	if start > end {
		return nil
	}

	blocks := make([]BlockData, 0, end-start+1)
	blocks = append(blocks, l.chain[start:end+1]...)

	return blocks
}

// Chain returns a copy of the full block sequence.
func (l *Ledger) Chain() []BlockData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]BlockData, len(l.chain))
	copy(blocks, l.chain)

	return blocks
}

// KnowsBlockHash reports whether a block with the specified hash exists in
// the local chain.
func (l *Ledger) KnowsBlockHash(hash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, bd := range l.chain {
		if bd.Hash == hash {
			return true
		}
	}

	return false
}

// ChainState returns the current chain progress snapshot.
func (l *Ledger) ChainState() ChainState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	latest := l.chain[len(l.chain)-1]

	return ChainState{
		Height:          latest.Index,
		LatestBlockHash: latest.Hash,
		Difficulty:      l.difficulty,
	}
}

// =============================================================================
// Chain mutation

// AppendBlock validates the block, links it to the chain tip and persists
// it. The block becomes visible only after storage reports success.
func (l *Ledger) AppendBlock(bd BlockData) error {
	if err := bd.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.chain[len(l.chain)-1]
	if err := bd.ValidateLink(latest); err != nil {
		return err
	}

	if err := l.storage.SaveBlock(bd); err != nil {
		return fmt.Errorf("saving block %d: %w", bd.Index, err)
	}

	state := ChainState{Height: bd.Index, LatestBlockHash: bd.Hash, Difficulty: l.difficulty}
	if err := l.storage.SaveChainState(state); err != nil {
		return fmt.Errorf("saving chain state: %w", err)
	}

	l.chain = append(l.chain, bd)
	l.purgeMined([]BlockData{bd})
	l.evHandler("ledger: appended block %d: %s", bd.Index, bd.Hash)

	return nil
}

// ReplaceChain adopts a longer chain wholesale after validating every block
// in it. The fork choice is chain length only.
func (l *Ledger) ReplaceChain(blocks []BlockData) error {
	if err := validateChain(blocks); err != nil {
		return fmt.Errorf("candidate chain is invalid: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(blocks) <= len(l.chain) {
		return fmt.Errorf("candidate chain length %d does not exceed local length %d", len(blocks), len(l.chain))
	}

	for _, bd := range blocks {
		if err := l.storage.SaveBlock(bd); err != nil {
			return fmt.Errorf("saving block %d: %w", bd.Index, err)
		}
	}

	latest := blocks[len(blocks)-1]
	state := ChainState{Height: latest.Index, LatestBlockHash: latest.Hash, Difficulty: l.difficulty}
	if err := l.storage.SaveChainState(state); err != nil {
		return fmt.Errorf("saving chain state: %w", err)
	}

	chain := make([]BlockData, len(blocks))
	copy(chain, blocks)
	l.chain = chain
	l.purgeMined(blocks)

	l.evHandler("ledger: replaced chain, new height %d: %s", latest.Index, latest.Hash)

	return nil
}

// purgeMined drops pending transactions that appear in the specified
// blocks. Callers must hold the write lock.
func (l *Ledger) purgeMined(blocks []BlockData) {
	if len(l.pool) == 0 {
		return
	}

	mined := make(map[string]struct{})
	for _, bd := range blocks {
		for _, tx := range bd.Transactions {
			mined[tx.Signature] = struct{}{}
		}
	}

	pool := l.pool[:0]
	for _, tx := range l.pool {
		if _, exists := mined[tx.Signature]; exists {
			continue
		}
		pool = append(pool, tx)
	}
	l.pool = pool
}

// =============================================================================
// Queries

// Validate walks the chain from the block after genesis checking hash
// integrity, linkage and transaction signatures. It returns the first
// violation found.
func (l *Ledger) Validate() error {
	return validateChain(l.Chain())
}

// Balance folds over every transaction in every block, subtracting amounts
// sent and adding amounts received by the account.
func (l *Ledger) Balance(account AccountID) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var balance float64
	for _, bd := range l.chain {
		for _, tx := range bd.Transactions {
			if tx.Sender == account {
				balance -= tx.Amount
			}
			if tx.Recipient == account {
				balance += tx.Amount
			}
		}
	}

	return balance
}

// Difficulty returns the difficulty the next candidate block will be mined
// at.
func (l *Ledger) Difficulty() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.difficulty
}

// UpdateDifficulty records an adjusted difficulty and persists the chain
// state snapshot carrying it.
func (l *Ledger) UpdateDifficulty(difficulty int) error {
	if difficulty < 1 {
		difficulty = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.difficulty = difficulty

	latest := l.chain[len(l.chain)-1]
	state := ChainState{Height: latest.Index, LatestBlockHash: latest.Hash, Difficulty: difficulty}
	if err := l.storage.SaveChainState(state); err != nil {
		return fmt.Errorf("saving chain state: %w", err)
	}

	return nil
}

// =============================================================================
// Backup and recovery

// Backup snapshots the stored chain under the specified name.
func (l *Ledger) Backup(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.storage.Backup(name)
}

// Restore replaces the stored and in-memory chain from the named backup.
func (l *Ledger) Restore(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.restore(name)
}

// Recover reloads the chain from the most recent backup snapshot. It makes
// exactly one attempt and reports ErrRecoveryFailed when no usable backup
// exists.
func (l *Ledger) Recover() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	names, err := l.storage.Backups()
	if err != nil {
		return fmt.Errorf("%w: listing backups: %s", ErrRecoveryFailed, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no backups exist", ErrRecoveryFailed)
	}

	name := names[len(names)-1]
	if err := l.restore(name); err != nil {
		return fmt.Errorf("%w: %s", ErrRecoveryFailed, err)
	}

	l.evHandler("ledger: recovered chain from backup %s at height %d", name, l.chain[len(l.chain)-1].Index)

	return nil
}

// restore swaps in the named backup. Callers must hold the write lock.
func (l *Ledger) restore(name string) error {
	if err := l.storage.Restore(name); err != nil {
		return fmt.Errorf("restoring backup %s: %w", name, err)
	}

	blocks, err := l.storage.LoadChain()
	if err != nil {
		return fmt.Errorf("loading restored chain: %w", err)
	}

	if err := validateChain(blocks); err != nil {
		return fmt.Errorf("restored chain is invalid: %w", err)
	}

	l.chain = blocks

	state, err := l.storage.LoadChainState()
	if err == nil && state.Difficulty >= 1 {
		l.difficulty = state.Difficulty
	}

	return nil
}

// =============================================================================

// newGenesisBlock constructs block zero of the chain. The genesis block is
// not mined: its previous hash is the zero hash and it carries no
// transactions.
func newGenesisBlock(difficulty int, now time.Time) BlockData {
	block := Block{
		Index:         0,
		TimeStamp:     uint64(now.UTC().Unix()),
		Transactions:  []SignedTx{},
		PrevBlockHash: signature.ZeroHash,
		Nonce:         0,
		Difficulty:    difficulty,
		MerkleRoot:    merkle.EmptyRoot(),
	}

	return NewBlockData(block)
}

// validateChain walks a standalone chain from genesis checking structure,
// linkage and transaction signatures. The genesis block is exempt from the
// difficulty requirement since it is never mined.
func validateChain(blocks []BlockData) error {
	if len(blocks) == 0 {
		return errors.New("chain is empty")
	}

	gen := blocks[0]
	if gen.Index != 0 {
		return fmt.Errorf("first block has index %d, expected 0", gen.Index)
	}
	if gen.PrevBlockHash != signature.ZeroHash {
		return errors.New("genesis previous hash is not the zero hash")
	}
	if hash := gen.Block.Hash(); hash != gen.Hash {
		return errors.New("genesis hash does not recompute")
	}

	for i := 1; i < len(blocks); i++ {
		bd := blocks[i]

		if err := bd.Validate(); err != nil {
			return err
		}

		if err := bd.ValidateLink(blocks[i-1]); err != nil {
			return err
		}

		for _, tx := range bd.Transactions {
			if err := tx.Validate(); err != nil {
				return fmt.Errorf("block %d: %w", bd.Index, err)
			}
		}
	}

	return nil
}
