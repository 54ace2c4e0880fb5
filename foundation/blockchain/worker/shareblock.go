package worker

import (
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// shareBlockOperations handles relaying blocks accepted from peers.
func (w *Worker) shareBlockOperations() {
	w.evHandler("worker: shareBlockOperations: G started")
	defer w.evHandler("worker: shareBlockOperations: G completed")

	for {
		select {
		case block := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(block)
			}
		case <-w.shut:
			w.evHandler("worker: shareBlockOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation announces one block to the active peers.
func (w *Worker) runShareBlockOperation(block ledger.BlockData) {
	w.evHandler("worker: runShareBlockOperation: started")
	defer w.evHandler("worker: runShareBlockOperation: completed")

	w.state.NetSendBlockToPeers(block)
}
