package worker

// discoverOperations handles finding new peers.
func (w *Worker) discoverOperations() {
	w.evHandler("worker: discoverOperations: G started")
	defer w.evHandler("worker: discoverOperations: G completed")

	for {
		select {
		case <-w.discoverTicker.C:
			if !w.isShutdown() {
				w.runDiscoverOperation()
			}
		case <-w.shut:
			w.evHandler("worker: discoverOperations: received shut signal")
			return
		}
	}
}

// runDiscoverOperation refreshes the routing table from the neighbors.
func (w *Worker) runDiscoverOperation() {
	w.evHandler("worker: runDiscoverOperation: started")
	defer w.evHandler("worker: runDiscoverOperation: completed")

	if err := w.state.Discover(); err != nil {
		w.evHandler("worker: runDiscoverOperation: ERROR: %s", err)
	}
}
