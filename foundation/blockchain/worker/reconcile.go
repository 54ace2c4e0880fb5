package worker

// reconcileOperations keeps the local chain in sync with the network, both
// on a fixed cadence and on demand when a peer shows a longer chain.
func (w *Worker) reconcileOperations() {
	w.evHandler("worker: reconcileOperations: G started")
	defer w.evHandler("worker: reconcileOperations: G completed")

	for {
		select {
		case <-w.syncRequests:
			if !w.isShutdown() {
				w.runReconcileOperation()
			}
		case <-w.reconcileTicker.C:
			if !w.isShutdown() {
				w.runReconcileOperation()
			}
		case <-w.shut:
			w.evHandler("worker: reconcileOperations: received shut signal")
			return
		}
	}
}

// runReconcileOperation adopts the longest chain the peers can offer.
func (w *Worker) runReconcileOperation() {
	w.evHandler("worker: runReconcileOperation: started")
	defer w.evHandler("worker: runReconcileOperation: completed")

	if err := w.state.Reconcile(); err != nil {
		w.evHandler("worker: runReconcileOperation: ERROR: %s", err)
	}
}
