package state

import (
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/gossip"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// The State implements the gossip.Handler interface so the gossip server
// can dispatch inbound peer traffic straight into the node.

// Handshake registers the caller as a known peer and answers with this
// node's version and chain height.
func (s *State) Handshake(remote gossip.Handshake) gossip.HandshakeAck {
	peer := dht.NewPeer(remote.Host, remote.Port)
	peer.Version = remote.Version
	peer.Height = remote.Height

	s.addPeer(peer)

	return gossip.NewHandshakeAck(s.version, s.ledger.Height())
}

// KnownPeers answers a peer exchange request with the active peers in the
// routing table.
func (s *State) KnownPeers() []gossip.PeerSummary {
	peers := s.table.ActivePeers()

	summaries := make([]gossip.PeerSummary, 0, len(peers))
	for _, p := range peers {
		summaries = append(summaries, gossip.PeerSummary{
			Host:     p.Host,
			Port:     p.Port,
			Version:  p.Version,
			Height:   p.Height,
			LastSeen: uint64(p.LastSeen.Unix()),
		})
	}

	return summaries
}

// BlocksInRange answers a block range request from local storage.
func (s *State) BlocksInRange(start uint64, end uint64) []ledger.BlockData {
	return s.ledger.Blocks(start, end)
}

// IncomingBlock handles a block announcement from a peer.
func (s *State) IncomingBlock(bd ledger.BlockData) error {
	return s.ProcessPeerBlock(bd)
}

// IncomingTransaction handles a transaction announcement from a peer.
func (s *State) IncomingTransaction(tx ledger.SignedTx) error {
	return s.UpsertNodeTransaction(tx)
}

// =============================================================================

// NetSendBlockToPeers announces a block to every active peer. Failing peers
// are marked inactive and skipped, never retried here.
func (s *State) NetSendBlockToPeers(bd ledger.BlockData) {
	s.evHandler("state: NetSendBlockToPeers: started: block[%s]", bd.Hash)
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	for _, peer := range s.table.ActivePeers() {
		if err := s.client.SendBlock(peer, bd); err != nil {
			s.evHandler("state: NetSendBlockToPeers: WARNING: %s: %s", peer.Address(), err)
			s.table.MarkInactive(peer.ID)
			continue
		}
		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", peer.Address())
	}
}

// NetSendTxToPeers shares a new transaction with every active peer.
func (s *State) NetSendTxToPeers(tx ledger.SignedTx) {
	s.evHandler("state: NetSendTxToPeers: started")
	defer s.evHandler("state: NetSendTxToPeers: completed")

	for _, peer := range s.table.ActivePeers() {
		if err := s.client.SendTransaction(peer, tx); err != nil {
			s.evHandler("state: NetSendTxToPeers: WARNING: %s: %s", peer.Address(), err)
			s.table.MarkInactive(peer.ID)
		}
	}
}

// NetRequestPeerStatus handshakes with the specified peer and records its
// version and height in the routing table.
func (s *State) NetRequestPeerStatus(pr dht.Peer) (gossip.HandshakeAck, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr.Address())
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr.Address())

	ack, err := s.client.Handshake(pr, s.ledger.Height())
	if err != nil {
		s.table.MarkInactive(pr.ID)
		return gossip.HandshakeAck{}, err
	}

	pr.Version = ack.Version
	pr.Height = ack.Height
	s.addPeer(pr)

	return ack, nil
}

// NetRequestPeers asks the specified peer for the peers it knows about and
// merges them into the routing table.
func (s *State) NetRequestPeers(pr dht.Peer) error {
	s.evHandler("state: NetRequestPeers: started: %s", pr.Address())
	defer s.evHandler("state: NetRequestPeers: completed: %s", pr.Address())

	summaries, err := s.client.GetPeers(pr)
	if err != nil {
		s.table.MarkInactive(pr.ID)
		return err
	}

	for _, sum := range summaries {
		peer := dht.NewPeer(sum.Host, sum.Port)
		peer.Version = sum.Version
		peer.Height = sum.Height
		if sum.LastSeen > 0 {
			peer.LastSeen = time.Unix(int64(sum.LastSeen), 0).UTC()
		}
		s.addPeer(peer)
	}

	return nil
}

// NetRequestPeerBlocks fetches the peer's blocks in the inclusive range.
func (s *State) NetRequestPeerBlocks(pr dht.Peer, start uint64, end uint64) ([]ledger.BlockData, error) {
	s.evHandler("state: NetRequestPeerBlocks: started: %s: [%d,%d]", pr.Address(), start, end)
	defer s.evHandler("state: NetRequestPeerBlocks: completed: %s", pr.Address())

	blocks, err := s.client.GetBlocks(pr, start, end)
	if err != nil {
		s.table.MarkInactive(pr.ID)
		return nil, err
	}

	return blocks, nil
}

// =============================================================================

// Discover refreshes the routing table by asking the closest known
// neighbors for their peers. A lookup of the node's own ID is the standard
// way to walk toward the neighborhood it is responsible for.
func (s *State) Discover() error {
	s.evHandler("state: Discover: started")
	defer s.evHandler("state: Discover: completed")

	peers := s.table.FindNode(s.table.Self())
	if len(peers) == 0 {
		peers = s.seeds
	}

	for _, pr := range peers {
		if err := s.NetRequestPeers(pr); err != nil {
			s.evHandler("state: Discover: peers: %s: ERROR: %s", pr.Address(), err)
		}
	}

	return nil
}

// EvictStalePeers drops peers not seen inside the threshold from the
// routing table and returns them.
func (s *State) EvictStalePeers(threshold time.Duration) []dht.Peer {
	evicted := s.table.EvictStale(threshold)
	for _, pr := range evicted {
		s.evHandler("state: EvictStalePeers: evicted %s: last seen %s", pr.Address(), pr.LastSeen.Format(time.RFC3339))
	}

	return evicted
}

// =============================================================================

// addPeer merges one peer into the routing table, never the node itself.
func (s *State) addPeer(peer dht.Peer) {
	if peer.ID == s.table.Self() {
		return
	}

	s.table.AddNode(peer)
}
