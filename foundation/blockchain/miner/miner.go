// Package miner implements the proof of work engine that assembles
// candidate blocks from the pending pool, searches for a valid nonce and
// seals the result onto the ledger.
package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/merkle"
)

// ErrNoTransactions is returned when a mining attempt finds the pending
// pool empty. Assembling from an empty pool produces no block.
var ErrNoTransactions = errors.New("no transactions in the pending pool")

// EventHandler defines a function that is called when interesting mining
// events occur.
type EventHandler func(v string, args ...any)

// =============================================================================

// Engine drives the assemble, search and seal cycle for new blocks.
type Engine struct {
	ledger          *ledger.Ledger
	targetBlockTime time.Duration
	evHandler       EventHandler
}

// New constructs a mining engine against the specified ledger.
func New(lgr *ledger.Ledger, targetBlockTime time.Duration, evHandler EventHandler) *Engine {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Engine{
		ledger:          lgr,
		targetBlockTime: targetBlockTime,
		evHandler:       ev,
	}
}

// MineNextBlock drains the pending pool, assembles a candidate block and
// searches for a nonce that satisfies the current difficulty. The sealed
// block is appended to the ledger and the difficulty is retargeted from the
// observed block time. Cancellation is honored between nonce attempts and
// returns the drained transactions to the pool.
func (e *Engine) MineNextBlock(ctx context.Context) (ledger.BlockData, error) {
	txs := e.ledger.DrainPool()
	if len(txs) == 0 {
		return ledger.BlockData{}, ErrNoTransactions
	}

	start := time.Now()

	root, err := merkle.Root(txs)
	if err != nil {
		e.ledger.RequeueTransactions(txs)
		return ledger.BlockData{}, fmt.Errorf("computing merkle root: %w", err)
	}

	difficulty := e.ledger.Difficulty()
	latest := e.ledger.LatestBlock()

	block := ledger.Block{
		Index:         latest.Index + 1,
		TimeStamp:     uint64(start.UTC().Unix()),
		Transactions:  txs,
		PrevBlockHash: latest.Hash,
		Nonce:         0,
		Difficulty:    difficulty,
		MerkleRoot:    root,
	}

	bd, err := e.search(ctx, block)
	if err != nil {
		e.ledger.RequeueTransactions(txs)
		return ledger.BlockData{}, err
	}

	elapsed := time.Since(start)

	if err := e.ledger.AppendBlock(bd); err != nil {
		e.ledger.RequeueTransactions(txs)
		return ledger.BlockData{}, fmt.Errorf("sealing block %d: %w", bd.Index, err)
	}

	if adjusted := AdjustDifficulty(difficulty, elapsed, e.targetBlockTime); adjusted != difficulty {
		if err := e.ledger.UpdateDifficulty(adjusted); err != nil {
			return bd, fmt.Errorf("updating difficulty: %w", err)
		}
		e.evHandler("miner: difficulty adjusted from %d to %d, block time %v", difficulty, adjusted, elapsed)
	}

	return bd, nil
}

// search increments the nonce until the block hash satisfies the
// difficulty. The context is checked once per nonce attempt so a cancelled
// search stops within one iteration.
func (e *Engine) search(ctx context.Context, block ledger.Block) (ledger.BlockData, error) {
	e.evHandler("miner: search: started: block %d difficulty %d txs %d", block.Index, block.Difficulty, len(block.Transactions))

	for {
		if ctx.Err() != nil {
			e.evHandler("miner: search: cancelled: block %d", block.Index)
			return ledger.BlockData{}, ctx.Err()
		}

		hash := block.Hash()
		if !ledger.IsHashSolved(block.Difficulty, hash) {
			block.Nonce++
			continue
		}

		e.evHandler("miner: search: solved: block %d nonce %d", block.Index, block.Nonce)

		return ledger.BlockData{Block: block, Hash: hash}, nil
	}
}

// =============================================================================

// AdjustDifficulty retargets the difficulty from the observed block time.
// Blocks arriving in under half the target raise the difficulty by one,
// blocks taking over twice the target lower it by one with a floor of one.
func AdjustDifficulty(difficulty int, blockTime time.Duration, target time.Duration) int {
	switch {
	case blockTime < target/2:
		return difficulty + 1

	case blockTime > target*2:
		if difficulty > 1 {
			return difficulty - 1
		}
		return 1
	}

	return difficulty
}
