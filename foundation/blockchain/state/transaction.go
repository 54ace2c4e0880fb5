package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion
// and returns the block index the transaction is expected to land in.
func (s *State) UpsertWalletTransaction(signedTx ledger.SignedTx) (uint64, error) {
	if !signedTx.Tx.Fresh(time.Now(), s.txFreshness) {
		return 0, fmt.Errorf("%w: stamped %d", ledger.ErrStaleTransaction, signedTx.TimeStamp)
	}

	idx, err := s.ledger.SubmitTransaction(signedTx)
	if err != nil {
		return 0, err
	}

	s.Worker.SignalShareTx(signedTx)
	s.Worker.SignalStartMining()

	return idx, nil
}

// UpsertNodeTransaction accepts a transaction gossiped by a peer node.
// Only a transaction entering the pool for the first time is relayed;
// duplicates are dropped silently so announcements cannot circulate
// forever.
func (s *State) UpsertNodeTransaction(signedTx ledger.SignedTx) error {
	if !signedTx.Tx.Fresh(time.Now(), s.txFreshness) {
		return fmt.Errorf("%w: stamped %d", ledger.ErrStaleTransaction, signedTx.TimeStamp)
	}

	if _, err := s.ledger.SubmitTransaction(signedTx); err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return nil
		}
		return err
	}

	s.Worker.SignalShareTx(signedTx)
	s.Worker.SignalStartMining()

	return nil
}
