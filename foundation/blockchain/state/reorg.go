package state

import (
	"fmt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
)

// Reconcile compares the local chain height against the peers and adopts
// the longest chain on the network wholesale. No mining is allowed to take
// place while the replacement is running. New transactions can still be
// placed into the pending pool.
func (s *State) Reconcile() error {
	s.evHandler("state: Reconcile: started")
	defer s.evHandler("state: Reconcile: completed")

	peers := s.table.ActivePeers()
	if len(peers) == 0 {
		peers = s.seeds
	}

	localHeight := s.ledger.Height()

	var best dht.Peer
	var bestHeight uint64
	found := false

	for _, pr := range peers {
		ack, err := s.NetRequestPeerStatus(pr)
		if err != nil {
			s.evHandler("state: Reconcile: status: %s: ERROR: %s", pr.Address(), err)
			continue
		}

		if ack.Height > localHeight && (!found || ack.Height > bestHeight) {
			best = pr
			bestHeight = ack.Height
			found = true
		}
	}

	if !found {
		s.evHandler("state: Reconcile: chain is current: height %d", localHeight)
		return nil
	}

	// Mining against a tip that is about to be replaced is wasted work.
	s.turnMiningOff()
	defer s.turnMiningOn()
	s.Worker.SignalCancelMining()

	blocks, err := s.NetRequestPeerBlocks(best, 0, bestHeight)
	if err != nil {
		return fmt.Errorf("fetching chain from %s: %w", best.Address(), err)
	}

	if err := s.ledger.ReplaceChain(blocks); err != nil {
		return fmt.Errorf("adopting chain from %s: %w", best.Address(), err)
	}

	s.evHandler("state: Reconcile: adopted chain from %s at height %d", best.Address(), bestHeight)

	// Whatever is still pending can be mined on top of the new chain.
	s.Worker.SignalStartMining()

	return nil
}

// CheckChainIntegrity validates the in-memory chain and makes a single
// recovery attempt from the most recent backup when corruption is found.
func (s *State) CheckChainIntegrity() error {
	if err := s.ledger.Validate(); err != nil {
		s.evHandler("state: CheckChainIntegrity: corruption detected: %s", err)

		if err := s.ledger.Recover(); err != nil {
			return err
		}

		s.evHandler("state: CheckChainIntegrity: recovered: height %d", s.ledger.Height())
	}

	return nil
}

// BackupChain snapshots the stored chain under the specified name.
func (s *State) BackupChain(name string) error {
	return s.ledger.Backup(name)
}
