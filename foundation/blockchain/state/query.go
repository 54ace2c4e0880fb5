package state

import (
	"fmt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// RetrieveHost returns the gossip address this node advertises.
func (s *State) RetrieveHost() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// RetrieveVersion returns the protocol version this node speaks.
func (s *State) RetrieveVersion() string {
	return s.version
}

// RetrieveNodeID returns this node's routing table identity.
func (s *State) RetrieveNodeID() dht.NodeID {
	return s.table.Self()
}

// RetrieveGenesisBlock returns block zero of the chain.
func (s *State) RetrieveGenesisBlock() ledger.BlockData {
	return s.ledger.GenesisBlock()
}

// RetrieveLatestBlock returns the block at the tip of the chain.
func (s *State) RetrieveLatestBlock() ledger.BlockData {
	return s.ledger.LatestBlock()
}

// RetrieveHeight returns the index of the latest block.
func (s *State) RetrieveHeight() uint64 {
	return s.ledger.Height()
}

// RetrieveChain returns a copy of the full block sequence.
func (s *State) RetrieveChain() []ledger.BlockData {
	return s.ledger.Chain()
}

// RetrieveChainState returns the current chain progress snapshot.
func (s *State) RetrieveChainState() ledger.ChainState {
	return s.ledger.ChainState()
}

// RetrieveDifficulty returns the difficulty the next block will be mined at.
func (s *State) RetrieveDifficulty() int {
	return s.ledger.Difficulty()
}

// RetrieveMempool returns a copy of the pending transaction pool.
func (s *State) RetrieveMempool() []ledger.SignedTx {
	return s.ledger.PendingTransactions()
}

// RetrieveKnownPeers returns every peer in the routing table.
func (s *State) RetrieveKnownPeers() []dht.Peer {
	return s.table.Peers()
}

// ActivePeerCount returns the number of peers currently marked active.
func (s *State) ActivePeerCount() int {
	return len(s.table.ActivePeers())
}

// QueryMempoolLength returns the number of pending transactions.
func (s *State) QueryMempoolLength() int {
	return s.ledger.PendingCount()
}

// QueryBlocksByRange returns the blocks in the inclusive index range,
// clamped to the chain tip.
func (s *State) QueryBlocksByRange(start uint64, end uint64) []ledger.BlockData {
	return s.ledger.Blocks(start, end)
}

// QueryBalance folds the chain into the balance of the specified account.
func (s *State) QueryBalance(account ledger.AccountID) float64 {
	return s.ledger.Balance(account)
}

// ValidateChain walks the full chain and returns the first violation found.
func (s *State) ValidateChain() error {
	return s.ledger.Validate()
}
