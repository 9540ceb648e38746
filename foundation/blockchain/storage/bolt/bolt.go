// Package bolt implements the ability to read and write blocks to a bbolt
// key/value file keyed by block number.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"go.etcd.io/bbolt"
)

// blocksBucket holds every block keyed by its big endian block number.
var blocksBucket = []byte("blocks")

// Bolt represents the storage implementation for reading and storing blocks
// in a bbolt database. This implements the database.Storage interface.
type Bolt struct {
	mu sync.Mutex
	db *bbolt.DB
}

// New opens or creates the bbolt file at the specified path.
func New(dbPath string) (*Bolt, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block under its number. The block must be the next one
// after the last stored block.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)

		var last uint64
		if k, _ := bkt.Cursor().Last(); k != nil {
			last = binary.BigEndian.Uint64(k)
		}

		if exp := last + 1; blockData.Header.Number != exp {
			return fmt.Errorf("block %d is out of order, expected %d", blockData.Header.Number, exp)
		}

		return bkt.Put(key(blockData.Header.Number), data)
	})
}

// GetBlock locates and returns the contents of the specified block by number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(blocksBucket).Get(key(num))
		if data == nil {
			return database.ErrNotFound
		}

		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{storage: b}
}

// Reset removes every stored block.
func (b *Bolt) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(blocksBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucket(blocksBucket)
		return err
	})
}

// key encodes the block number so keys sort in chain order.
func key(num uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, num)
	return k
}

// =============================================================================

// boltIterator represents the iteration implementation for walking through
// the stored blocks. This implements the database Iterator interface.
type boltIterator struct {
	storage *Bolt  // Access to the storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, database.ErrNotFound
	}

	bi.current++
	blockData, err := bi.storage.GetBlock(bi.current)
	if errors.Is(err, database.ErrNotFound) {
		bi.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
