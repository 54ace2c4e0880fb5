// Package bolt implements the ability to read and write chain data in a
// single bbolt database file.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// Bucket names. Block keys carry the index big endian so the bucket cursor
// walks the chain in order.
var (
	bucketBlocks = []byte("blocks")
	bucketHashes = []byte("hashes")
	bucketMeta   = []byte("meta")
)

// keyState is the meta bucket key holding the chain progress snapshot.
var keyState = []byte("state")

// Bolt represents the serialization implementation for reading and storing
// blocks in a bbolt database file. This implements the ledger.Storage
// interface.
type Bolt struct {
	db          *bbolt.DB
	dbFilePath  string
	backupsPath string
}

// New opens or creates the database file under the specified path.
func New(dbPath string) (*Bolt, error) {
	backupsPath := filepath.Join(dbPath, "backups")
	if err := os.MkdirAll(backupsPath, 0755); err != nil {
		return nil, err
	}

	dbFilePath := filepath.Join(dbPath, "chain.db")
	db, err := open(dbFilePath)
	if err != nil {
		return nil, err
	}

	return &Bolt{db: db, dbFilePath: dbFilePath, backupsPath: backupsPath}, nil
}

// open opens the database file and guarantees the buckets exist.
func open(dbFilePath string) (*bbolt.DB, error) {
	db, err := bbolt.Open(dbFilePath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt at %s: %w", dbFilePath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlocks, bucketHashes, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return db, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// SaveBlock stores the block under its index key and records the hash to
// index mapping in the same transaction.
func (b *Bolt) SaveBlock(bd ledger.BlockData) error {
	data, err := json.Marshal(bd)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlocks).Put(indexKey(bd.Index), data); err != nil {
			return err
		}
		return tx.Bucket(bucketHashes).Put([]byte(bd.Hash), indexKey(bd.Index))
	})
}

// LoadBlock returns the stored block with the specified hash.
func (b *Bolt) LoadBlock(hash string) (ledger.BlockData, error) {
	var bd ledger.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketHashes).Get([]byte(hash))
		if idx == nil {
			return ledger.ErrNotFound
		}

		data := tx.Bucket(bucketBlocks).Get(idx)
		if data == nil {
			return ledger.ErrNotFound
		}

		return json.Unmarshal(data, &bd)
	})
	if err != nil {
		return ledger.BlockData{}, err
	}

	return bd, nil
}

// SaveChainState stores the chain progress snapshot.
func (b *Bolt) SaveChainState(state ledger.ChainState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyState, data)
	})
}

// LoadChainState returns the chain progress snapshot.
func (b *Bolt) LoadChainState() (ledger.ChainState, error) {
	var state ledger.ChainState

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyState)
		if data == nil {
			return ledger.ErrNotFound
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return ledger.ChainState{}, err
	}

	return state, nil
}

// LoadChain walks the block bucket in index order.
func (b *Bolt) LoadChain() ([]ledger.BlockData, error) {
	var blocks []ledger.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, v []byte) error {
			var bd ledger.BlockData
			if err := json.Unmarshal(v, &bd); err != nil {
				return fmt.Errorf("decoding block key %x: %w", k, err)
			}
			blocks = append(blocks, bd)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}

// =============================================================================

// Backup writes a hot copy of the database file under the specified name
// using the bolt transaction snapshot.
func (b *Bolt) Backup(name string) error {
	f, err := os.OpenFile(b.backupPath(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return b.db.View(func(tx *bbolt.Tx) error {
		_, err := tx.WriteTo(f)
		return err
	})
}

// Restore replaces the database file completely from the named backup. The
// database is closed, overwritten and reopened.
func (b *Bolt) Restore(name string) error {
	src := b.backupPath(name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("backup %s: %w", name, ledger.ErrNotFound)
		}
		return err
	}

	if err := b.db.Close(); err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.dbFilePath, data, 0600); err != nil {
		return err
	}

	db, err := open(b.dbFilePath)
	if err != nil {
		return err
	}
	b.db = db

	return nil
}

// Backups returns the existing backup names in sorted order.
func (b *Bolt) Backups() ([]string, error) {
	entries, err := os.ReadDir(b.backupsPath)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".db"))
		}
	}
	sort.Strings(names)

	return names, nil
}

// backupPath forms the path to the named backup file.
func (b *Bolt) backupPath(name string) string {
	return filepath.Join(b.backupsPath, name+".db")
}

// =============================================================================

// indexKey encodes a block index big endian so bucket keys sort
// numerically.
func indexKey(index uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, index)
	return k
}
