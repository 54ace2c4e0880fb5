// Package disk implements the ability to read and write chain data in
// separate files on disk, one file per block.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// ledger.Storage interface.
type Disk struct {
	blocksPath  string
	statePath   string
	backupsPath string
}

// New constructs a Disk value for use, creating the directory layout under
// the specified path.
func New(dbPath string) (*Disk, error) {
	d := Disk{
		blocksPath:  filepath.Join(dbPath, "blocks"),
		statePath:   filepath.Join(dbPath, "state.json"),
		backupsPath: filepath.Join(dbPath, "backups"),
	}

	for _, dir := range []string{d.blocksPath, d.backupsPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// SaveBlock stores the block on disk in a file labeled with the block
// index.
func (d *Disk) SaveBlock(bd ledger.BlockData) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(bd, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(blockPath(d.blocksPath, bd.Index), data, 0600)
}

// LoadBlock walks the block files to locate and return the block with the
// specified hash.
func (d *Disk) LoadBlock(hash string) (ledger.BlockData, error) {
	blocks, err := d.LoadChain()
	if err != nil {
		return ledger.BlockData{}, err
	}

	for _, bd := range blocks {
		if bd.Hash == hash {
			return bd, nil
		}
	}

	return ledger.BlockData{}, ledger.ErrNotFound
}

// SaveChainState stores the chain progress snapshot.
func (d *Disk) SaveChainState(state ledger.ChainState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(d.statePath, data, 0600)
}

// LoadChainState returns the chain progress snapshot.
func (d *Disk) LoadChainState() (ledger.ChainState, error) {
	data, err := os.ReadFile(d.statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.ChainState{}, ledger.ErrNotFound
		}
		return ledger.ChainState{}, err
	}

	var state ledger.ChainState
	if err := json.Unmarshal(data, &state); err != nil {
		return ledger.ChainState{}, err
	}

	return state, nil
}

// LoadChain reads every block file ordered by index.
func (d *Disk) LoadChain() ([]ledger.BlockData, error) {
	return readBlocks(d.blocksPath)
}

// Backup copies the block files and the chain state under the specified
// name. An existing backup with that name is replaced.
func (d *Disk) Backup(name string) error {
	dst := filepath.Join(d.backupsPath, name)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dst, "blocks"), 0755); err != nil {
		return err
	}

	if err := copyDir(d.blocksPath, filepath.Join(dst, "blocks")); err != nil {
		return fmt.Errorf("backing up blocks: %w", err)
	}

	if err := copyFile(d.statePath, filepath.Join(dst, "state.json")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("backing up chain state: %w", err)
	}

	return nil
}

// Restore replaces the stored chain completely from the named backup.
func (d *Disk) Restore(name string) error {
	src := filepath.Join(d.backupsPath, name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("backup %s: %w", name, ledger.ErrNotFound)
		}
		return err
	}

	if err := os.RemoveAll(d.blocksPath); err != nil {
		return err
	}
	if err := os.MkdirAll(d.blocksPath, 0755); err != nil {
		return err
	}

	if err := copyDir(filepath.Join(src, "blocks"), d.blocksPath); err != nil {
		return fmt.Errorf("restoring blocks: %w", err)
	}

	if err := copyFile(filepath.Join(src, "state.json"), d.statePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("restoring chain state: %w", err)
	}

	return nil
}

// Backups returns the existing backup names in sorted order.
func (d *Disk) Backups() ([]string, error) {
	entries, err := os.ReadDir(d.backupsPath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// =============================================================================

// blockPath forms the path to the specified block.
func blockPath(dir string, index uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%012d.json", index))
}

// readBlocks decodes every block file in the directory in index order.
func readBlocks(dir string) ([]ledger.BlockData, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			names = append(names, entry.Name())
		}
	}

	// Zero padded names keep lexical order equal to index order.
	sort.Strings(names)

	blocks := make([]ledger.BlockData, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		var bd ledger.BlockData
		if err := json.Unmarshal(data, &bd); err != nil {
			return nil, fmt.Errorf("decoding block file %s: %w", name, err)
		}

		blocks = append(blocks, bd)
	}

	return blocks, nil
}

// copyDir copies the regular files in src into dst.
func copyDir(src string, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// copyFile copies one file preserving nothing but the bytes.
func copyFile(src string, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0600)
}
