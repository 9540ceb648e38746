// Package badger implements the ability to read and write blocks to a badger
// key/value store keyed by block number.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/qrcledger/node/foundation/blockchain/database"
)

// keyPrefix scopes block keys inside the store.
const keyPrefix = "block:"

// Badger represents the storage implementation for reading and storing blocks
// in a badger database. This implements the database.Storage interface.
type Badger struct {
	mu    sync.Mutex
	db    *badger.DB
	count uint64
}

// New opens or creates the badger store in the specified directory.
func New(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	b := Badger{db: db}

	// Count the blocks already stored so writes stay in order.
	err = db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		iter := txn.NewIterator(iopts)
		defer iter.Close()

		prefix := []byte(keyPrefix)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			b.count++
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &b, nil
}

// Close releases the badger store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Write stores the block under its number. The block must be the next one
// after the last stored block.
func (b *Badger) Write(blockData database.BlockData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exp := b.count + 1; blockData.Header.Number != exp {
		return fmt.Errorf("block %d is out of order, expected %d", blockData.Header.Number, exp)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(blockData.Header.Number), data)
	})
	if err != nil {
		return err
	}

	b.count++
	return nil
}

// GetBlock locates and returns the contents of the specified block by number.
func (b *Badger) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(num))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return database.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &blockData)
		})
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (b *Badger) ForEach() database.Iterator {
	return &badgerIterator{storage: b}
}

// Reset removes every stored block.
func (b *Badger) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return err
	}

	b.count = 0
	return nil
}

// key encodes the block number zero padded so keys sort in chain order.
func key(num uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", keyPrefix, num)
}

// =============================================================================

// badgerIterator represents the iteration implementation for walking through
// the stored blocks. This implements the database Iterator interface.
type badgerIterator struct {
	storage *Badger // Access to the storage API.
	current uint64  // Current block number being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block.
func (bi *badgerIterator) Next() (database.BlockData, error) {
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
func (bi *badgerIterator) Done() bool {
	return bi.eoc
}
