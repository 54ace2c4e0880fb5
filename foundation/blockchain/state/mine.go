package state

import (
	"context"
	"fmt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// MineNewBlock attempts to drain the pending pool into a new block with a
// proper hash that becomes the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (ledger.BlockData, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	block, err := s.engine.MineNextBlock(ctx)
	if err != nil {
		return ledger.BlockData{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return ledger.BlockData{}, ctx.Err()
	}

	return block, nil
}

// ProcessPeerBlock takes a block received from a peer, validates it and if
// that passes appends it to the chain. A block whose parent is not the
// current tip is discarded; when it signals the peer is ahead, a chain
// reconciliation is requested instead.
func (s *State) ProcessPeerBlock(bd ledger.BlockData) error {
	s.evHandler("state: ProcessPeerBlock: started: block[%s]", bd.Hash)
	defer s.evHandler("state: ProcessPeerBlock: completed")

	// Announcements replay across the network. Seeing a block twice is
	// normal, not an error.
	if s.ledger.KnowsBlockHash(bd.Hash) {
		return nil
	}

	// Any mining attempt in flight is now working against a stale tip.
	s.Worker.SignalCancelMining()

	latest := s.ledger.LatestBlock()
	if bd.Index > latest.Index+1 {
		s.evHandler("state: ProcessPeerBlock: local height %d behind block %d: signal sync", latest.Index, bd.Index)
		s.Worker.SignalSync()
		return fmt.Errorf("block %d is ahead of local height %d", bd.Index, latest.Index)
	}

	if err := s.ledger.AppendBlock(bd); err != nil {
		return err
	}

	// Relay the announcement. Peers already holding the block drop it by
	// hash, so the relay wave dies out on its own.
	s.Worker.SignalShareBlock(bd)

	// Anything still pending can be mined on top of the new tip.
	s.Worker.SignalStartMining()

	return nil
}
