// Package leveldb implements the ability to read and write chain data in a
// LevelDB key value store.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// Key prefixes. Block keys carry the index big endian so the natural key
// order of the store is the chain order.
const (
	prefixBlocks = "blocks:"
	prefixHashes = "hashes:"
	keyState     = "meta:state"
)

// LevelDB represents the serialization implementation for reading and
// storing blocks in a LevelDB database. This implements the ledger.Storage
// interface.
type LevelDB struct {
	db          *leveldb.DB
	backupsPath string
}

// New opens or creates the database under the specified path.
func New(dbPath string) (*LevelDB, error) {
	backupsPath := filepath.Join(dbPath, "backups")
	if err := os.MkdirAll(backupsPath, 0755); err != nil {
		return nil, err
	}

	db, err := leveldb.OpenFile(filepath.Join(dbPath, "db"), nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb at %s: %w", dbPath, err)
	}

	return &LevelDB{db: db, backupsPath: backupsPath}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// SaveBlock stores the block under its index key and records the hash to
// index mapping in the same batch.
func (l *LevelDB) SaveBlock(bd ledger.BlockData) error {
	data, err := json.Marshal(bd)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(bd.Index), data)
	batch.Put(hashKey(bd.Hash), indexValue(bd.Index))

	return l.db.Write(batch, nil)
}

// LoadBlock returns the stored block with the specified hash.
func (l *LevelDB) LoadBlock(hash string) (ledger.BlockData, error) {
	idx, err := l.db.Get(hashKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return ledger.BlockData{}, ledger.ErrNotFound
		}
		return ledger.BlockData{}, err
	}

	data, err := l.db.Get(append([]byte(prefixBlocks), idx...), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return ledger.BlockData{}, ledger.ErrNotFound
		}
		return ledger.BlockData{}, err
	}

	var bd ledger.BlockData
	if err := json.Unmarshal(data, &bd); err != nil {
		return ledger.BlockData{}, err
	}

	return bd, nil
}

// SaveChainState stores the chain progress snapshot.
func (l *LevelDB) SaveChainState(state ledger.ChainState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return l.db.Put([]byte(keyState), data, nil)
}

// LoadChainState returns the chain progress snapshot.
func (l *LevelDB) LoadChainState() (ledger.ChainState, error) {
	data, err := l.db.Get([]byte(keyState), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
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

// LoadChain walks the block keys in index order.
func (l *LevelDB) LoadChain() ([]ledger.BlockData, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefixBlocks)), nil)
	defer iter.Release()

	var blocks []ledger.BlockData
	for iter.Next() {
		var bd ledger.BlockData
		if err := json.Unmarshal(iter.Value(), &bd); err != nil {
			return nil, fmt.Errorf("decoding block key %x: %w", iter.Key(), err)
		}
		blocks = append(blocks, bd)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	return blocks, nil
}

// =============================================================================

// dump is the serialized form of one backup.
type dump struct {
	Blocks []ledger.BlockData `json:"blocks"`
	State  *ledger.ChainState `json:"state,omitempty"`
}

// Backup serializes the chain and its state into one backup file under the
// specified name.
func (l *LevelDB) Backup(name string) error {
	blocks, err := l.LoadChain()
	if err != nil {
		return err
	}

	d := dump{Blocks: blocks}
	if state, err := l.LoadChainState(); err == nil {
		d.State = &state
	}

	data, err := json.Marshal(d)
	if err != nil {
		return err
	}

	return os.WriteFile(l.backupPath(name), data, 0600)
}

// Restore replaces the stored chain completely from the named backup.
func (l *LevelDB) Restore(name string) error {
	data, err := os.ReadFile(l.backupPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("backup %s: %w", name, ledger.ErrNotFound)
		}
		return err
	}

	var d dump
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decoding backup %s: %w", name, err)
	}

	batch := new(leveldb.Batch)

	for _, prefix := range []string{prefixBlocks, prefixHashes} {
		iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
		for iter.Next() {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			batch.Delete(key)
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return err
		}
	}

	for _, bd := range d.Blocks {
		blockData, err := json.Marshal(bd)
		if err != nil {
			return err
		}
		batch.Put(blockKey(bd.Index), blockData)
		batch.Put(hashKey(bd.Hash), indexValue(bd.Index))
	}

	if d.State != nil {
		stateData, err := json.Marshal(*d.State)
		if err != nil {
			return err
		}
		batch.Put([]byte(keyState), stateData)
	}

	return l.db.Write(batch, nil)
}

// Backups returns the existing backup names in sorted order.
func (l *LevelDB) Backups() ([]string, error) {
	entries, err := os.ReadDir(l.backupsPath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(names)

	return names, nil
}

// backupPath forms the path to the named backup file.
func (l *LevelDB) backupPath(name string) string {
	return filepath.Join(l.backupsPath, name+".json")
}

// =============================================================================

// blockKey forms the ordered key for the specified block index.
func blockKey(index uint64) []byte {
	return append([]byte(prefixBlocks), indexValue(index)...)
}

// hashKey forms the lookup key for the specified block hash.
func hashKey(hash string) []byte {
	return append([]byte(prefixHashes), hash...)
}

// indexValue encodes a block index big endian so keys sort numerically.
func indexValue(index uint64) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, index)
	return v
}
