// Package state is the core API for the node and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/gossip"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/miner"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks, transactions and peers.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for mining, chain reconciliation, peer
// discovery and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining()
	SignalSync()
	SignalShareTx(tx ledger.SignedTx)
	SignalShareBlock(block ledger.BlockData)
}

// =============================================================================

// Config represents the configuration required to start the node.
type Config struct {
	Host              string
	Port              int
	Version           string
	Storage           ledger.Storage
	GenesisDifficulty int
	TargetBlockTime   time.Duration
	TxFreshness       time.Duration
	NetworkTimeout    time.Duration
	KnownPeers        []dht.Peer
	EvHandler         EventHandler
}

// State manages the node: the ledger, the mining engine, the peer routing
// table and the gossip client speaking to other nodes.
type State struct {
	mu          sync.Mutex
	allowMining bool

	host        string
	port        int
	version     string
	txFreshness time.Duration
	evHandler   EventHandler

	ledger *ledger.Ledger
	engine *miner.Engine
	table  *dht.Table
	client *gossip.Client
	seeds  []dht.Peer

	Worker Worker
}

// New constructs the node state from the chain held in storage.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	lgr, err := ledger.New(cfg.Storage, cfg.GenesisDifficulty, ledger.EventHandler(ev))
	if err != nil {
		return nil, fmt.Errorf("constructing ledger: %w", err)
	}

	client := gossip.NewClient(cfg.Host, cfg.Port, cfg.Version, cfg.NetworkTimeout, gossip.EventHandler(ev))

	self := dht.NewPeer(cfg.Host, cfg.Port)
	table := dht.NewTable(self.ID, dht.K, client)

	txFreshness := cfg.TxFreshness
	if txFreshness <= 0 {
		txFreshness = time.Hour
	}

	s := State{
		allowMining: true,
		host:        cfg.Host,
		port:        cfg.Port,
		version:     cfg.Version,
		txFreshness: txFreshness,
		evHandler:   ev,
		ledger:      lgr,
		engine:      miner.New(lgr, cfg.TargetBlockTime, miner.EventHandler(ev)),
		table:       table,
		client:      client,
		seeds:       cfg.KnownPeers,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the ledger flushes and the storage is properly closed.
	defer func() {
		s.ledger.Close()
	}()

	// Stop all chain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// SignalMining sends a signal to the mining goroutine to start.
func (s *State) SignalMining() {
	s.Worker.SignalStartMining()
}

// IsMiningAllowed reports whether mining operations may run. Mining is
// suspended while the chain is being reconciled against a peer.
func (s *State) IsMiningAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allowMining
}

// turnMiningOff suspends mining operations.
func (s *State) turnMiningOff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowMining = false
}

// turnMiningOn resumes mining operations.
func (s *State) turnMiningOn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowMining = true
}
