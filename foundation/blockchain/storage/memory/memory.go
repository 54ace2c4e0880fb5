// Package memory implements the ability to read and write chain data in
// memory using a slice. Used for testing and for nodes that never need to
// survive a restart.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// snapshot is one named backup of the chain.
type snapshot struct {
	blocks []ledger.BlockData
	state  ledger.ChainState
	hasSt  bool
}

// Memory represents the serialization implementation for reading and
// storing blocks in memory. This implements the ledger.Storage interface.
type Memory struct {
	mu      sync.RWMutex
	blocks  []ledger.BlockData
	state   ledger.ChainState
	hasSt   bool
	backups map[string]snapshot
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{backups: make(map[string]snapshot)}, nil
}

// Close in this implementation has nothing to do since everything is in
// memory.
func (m *Memory) Close() error {
	return nil
}

// SaveBlock stores the block at its index, extending or overwriting the
// slice as chain replacement requires.
func (m *Memory) SaveBlock(bd ledger.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case bd.Index < uint64(len(m.blocks)):
		m.blocks[bd.Index] = bd
	case bd.Index == uint64(len(m.blocks)):
		m.blocks = append(m.blocks, bd)
	default:
		return fmt.Errorf("block %d is out of order, have %d blocks", bd.Index, len(m.blocks))
	}

	return nil
}

// LoadBlock returns the stored block with the specified hash.
func (m *Memory) LoadBlock(hash string) (ledger.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, bd := range m.blocks {
		if bd.Hash == hash {
			return bd, nil
		}
	}

	return ledger.BlockData{}, ledger.ErrNotFound
}

// SaveChainState stores the chain progress snapshot.
func (m *Memory) SaveChainState(state ledger.ChainState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state
	m.hasSt = true

	return nil
}

// LoadChainState returns the chain progress snapshot.
func (m *Memory) LoadChainState() (ledger.ChainState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasSt {
		return ledger.ChainState{}, ledger.ErrNotFound
	}

	return m.state, nil
}

// LoadChain returns every stored block ordered by index.
func (m *Memory) LoadChain() ([]ledger.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]ledger.BlockData, len(m.blocks))
	copy(blocks, m.blocks)

	return blocks, nil
}

// Backup snapshots the chain under the specified name.
func (m *Memory) Backup(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks := make([]ledger.BlockData, len(m.blocks))
	copy(blocks, m.blocks)

	m.backups[name] = snapshot{blocks: blocks, state: m.state, hasSt: m.hasSt}

	return nil
}

// Restore replaces the chain from the named backup.
func (m *Memory) Restore(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, exists := m.backups[name]
	if !exists {
		return fmt.Errorf("backup %s: %w", name, ledger.ErrNotFound)
	}

	blocks := make([]ledger.BlockData, len(snap.blocks))
	copy(blocks, snap.blocks)

	m.blocks = blocks
	m.state = snap.state
	m.hasSt = snap.hasSt

	return nil
}

// Backups returns the existing backup names in sorted order.
func (m *Memory) Backups() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.backups))
	for name := range m.backups {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
