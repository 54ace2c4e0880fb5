// Package worker implements mining, chain reconciliation, peer discovery
// and transaction sharing for the node.
package worker

import (
	"sync"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/state"
)

// maxTxShareRequests represents the max number of pending tx network share
// requests that can be outstanding before share requests are dropped. To
// keep this simple, a buffered channel of this arbitrary number is being
// used. If the channel does become full, requests for new transactions to
// be shared will not be accepted.
const maxTxShareRequests = 100

// maxBlockShareRequests bounds the pending block relay requests the same
// way. Blocks arrive far less often than transactions.
const maxBlockShareRequests = 10

// Cadence of the background operations.
const (
	reconcileInterval   = time.Minute
	discoverInterval    = 5 * time.Minute
	maintenanceInterval = 5 * time.Minute
)

// staleThreshold is how long a peer may stay silent before the maintenance
// operation evicts it from the routing table.
const staleThreshold = time.Hour

// =============================================================================

// Worker manages the POW workflows for the node.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	syncRequests chan bool
	txSharing    chan ledger.SignedTx
	blockSharing chan ledger.BlockData
	evHandler    state.EventHandler

	reconcileTicker   *time.Ticker
	discoverTicker    *time.Ticker
	maintenanceTicker *time.Ticker
}

// Run creates a worker, registers it with the state and starts all the
// background operations.
func Run(st *state.State, evHandler state.EventHandler) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:        st,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		syncRequests: make(chan bool, 1),
		txSharing:    make(chan ledger.SignedTx, maxTxShareRequests),
		blockSharing: make(chan ledger.BlockData, maxBlockShareRequests),
		evHandler:    evHandler,

		reconcileTicker:   time.NewTicker(reconcileInterval),
		discoverTicker:    time.NewTicker(discoverInterval),
		maintenanceTicker: time.NewTicker(maintenanceInterval),
	}

	// Register this worker with the state. During initialization the state
	// needs to signal the worker, so this must happen before Sync.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.shareTxOperations,
		w.shareBlockOperations,
		w.reconcileOperations,
		w.discoverOperations,
		w.maintenanceOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.reconcileTicker.Stop()
	w.discoverTicker.Stop()
	w.maintenanceTicker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// Sync updates the routing table from the seed peers and adopts the longest
// chain on the network. It runs once before the background operations start.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	if err := w.state.Discover(); err != nil {
		w.evHandler("worker: sync: discover: ERROR: %s", err)
	}

	if err := w.state.Reconcile(); err != nil {
		w.evHandler("worker: sync: reconcile: ERROR: %s", err)
	}
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation
// function to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: cancel mining signaled")
}

// SignalSync requests a chain reconciliation outside the regular cadence.
func (w *Worker) SignalSync() {
	select {
	case w.syncRequests <- true:
	default:
	}
	w.evHandler("worker: SignalSync: sync signaled")
}

// SignalShareTx queues up a share transaction operation. If maxTxShareRequests
// signals exist in the channel, this transaction won't be shared.
func (w *Worker) SignalShareTx(tx ledger.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transaction won't be shared")
	}
}

// SignalShareBlock queues up a block relay operation. If the queue is full
// the block won't be relayed, peers will pick it up through reconciliation.
func (w *Worker) SignalShareBlock(block ledger.BlockData) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, block won't be shared")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
