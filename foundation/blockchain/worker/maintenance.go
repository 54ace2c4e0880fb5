package worker

import "fmt"

// maintenanceOperations handles routing table hygiene and chain health.
func (w *Worker) maintenanceOperations() {
	w.evHandler("worker: maintenanceOperations: G started")
	defer w.evHandler("worker: maintenanceOperations: G completed")

	for {
		select {
		case <-w.maintenanceTicker.C:
			if !w.isShutdown() {
				w.runMaintenanceOperation()
			}
		case <-w.shut:
			w.evHandler("worker: maintenanceOperations: received shut signal")
			return
		}
	}
}

// runMaintenanceOperation evicts stale peers, verifies chain integrity and
// snapshots a backup of the current chain.
func (w *Worker) runMaintenanceOperation() {
	w.evHandler("worker: runMaintenanceOperation: started")
	defer w.evHandler("worker: runMaintenanceOperation: completed")

	if evicted := w.state.EvictStalePeers(staleThreshold); len(evicted) > 0 {
		w.evHandler("worker: runMaintenanceOperation: evicted %d stale peers", len(evicted))
	}

	if err := w.state.CheckChainIntegrity(); err != nil {
		w.evHandler("worker: runMaintenanceOperation: integrity: ERROR: %s", err)
		return
	}

	// Named by height so the snapshot for an unchanged chain just
	// overwrites itself and the newest backup sorts last.
	height := w.state.RetrieveHeight()
	name := fmt.Sprintf("height-%012d", height)
	if err := w.state.BackupChain(name); err != nil {
		w.evHandler("worker: runMaintenanceOperation: backup: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runMaintenanceOperation: backup %s written", name)
}
