// Package disk implements the ability to read and write blocks to an append
// only file on disk, one JSON document per line.
package disk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/qrcledger/node/foundation/blockchain/database"
)

// maxLineSize is the largest block document the reader accepts.
const maxLineSize = 16 << 20

// syncFile flushes the file to stable storage.
var syncFile = (*os.File).Sync

// Disk represents the storage implementation for reading and storing blocks
// in a single append only file. This implements the database.Storage
// interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
	dbFile *os.File
	count  uint64
}

// New opens or creates the block file at the specified path.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	dbFile, err := os.OpenFile(dbPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	d := Disk{
		dbPath: dbPath,
		dbFile: dbFile,
	}

	// Count the blocks already on disk so writes stay in order.
	err = d.scan(func(database.BlockData) bool {
		d.count++
		return true
	})
	if err != nil {
		dbFile.Close()
		return nil, err
	}

	return &d, nil
}

// Close cleanly releases the file.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dbFile.Close()
}

// Write appends the block to the end of the file and syncs it to disk.
func (d *Disk) Write(blockData database.BlockData) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp := d.count + 1; blockData.Header.Number != exp {
		return fmt.Errorf("block %d is out of order, expected %d", blockData.Header.Number, exp)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	info, err := d.dbFile.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()

	if _, err := d.dbFile.Write(append(data, '\n')); err != nil {
		return d.rollback(offset, err)
	}

	if err := syncFile(d.dbFile); err != nil {
		return d.rollback(offset, err)
	}

	d.count++

	return nil
}

// rollback truncates the file back to the offset it had before a failed
// write so a partial or unsynced line never stays behind.
func (d *Disk) rollback(offset int64, err error) error {
	if terr := d.dbFile.Truncate(offset); terr != nil {
		return fmt.Errorf("%w: truncate to %d: %w", err, offset, terr)
	}
	return err
}

// GetBlock searches the file to locate and return the contents of the
// specified block by number.
func (d *Disk) GetBlock(num uint64) (database.BlockData, error) {
	var found database.BlockData
	var ok bool

	err := d.scan(func(blockData database.BlockData) bool {
		if blockData.Header.Number == num {
			found = blockData
			ok = true
			return false
		}
		return true
	})
	if err != nil {
		return database.BlockData{}, err
	}

	if !ok {
		return database.BlockData{}, database.ErrNotFound
	}

	return found, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{disk: d}
}

// Reset truncates the file back to empty.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.dbFile.Truncate(0); err != nil {
		return err
	}

	d.count = 0
	return nil
}

// scan reads each block in the file in order until f returns false.
func (d *Disk) scan(f func(database.BlockData) bool) error {
	dbFile, err := os.Open(d.dbPath)
	if err != nil {
		return err
	}
	defer dbFile.Close()

	scanner := bufio.NewScanner(dbFile)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		var blockData database.BlockData
		if err := json.Unmarshal(scanner.Bytes(), &blockData); err != nil {
			return err
		}

		if !f(blockData) {
			return nil
		}
	}

	return scanner.Err()
}

// =============================================================================

// diskIterator represents the iteration implementation for walking through
// and reading blocks on disk. This implements the database Iterator
// interface.
type diskIterator struct {
	disk    *Disk          // Access to the storage API.
	file    *os.File       // Open handle while iterating.
	scanner *bufio.Scanner // Line reader over the file.
	eoc     bool           // Represents the iterator is at the end of the chain.
	err     error          // Decode failure, the file is closed once set.
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, database.ErrNotFound
	}

	if di.err != nil {
		return database.BlockData{}, di.err
	}

	if di.scanner == nil {
		f, err := os.Open(di.disk.dbPath)
		if err != nil {
			di.eoc = true
			return database.BlockData{}, err
		}

		di.file = f
		di.scanner = bufio.NewScanner(f)
		di.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	}

	if !di.scanner.Scan() {
		di.file.Close()

		if err := di.scanner.Err(); err != nil {
			return database.BlockData{}, err
		}

		di.eoc = true
		return database.BlockData{}, database.ErrNotFound
	}

	var blockData database.BlockData
	if err := json.Unmarshal(di.scanner.Bytes(), &blockData); err != nil {
		di.file.Close()
		di.err = fmt.Errorf("decode block: %w", err)
		return database.BlockData{}, di.err
	}

	return blockData, nil
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}
