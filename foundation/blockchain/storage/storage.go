// Package storage selects the backend that holds the sealed blocks.
package storage

import (
	"fmt"
	"strings"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/storage/badger"
	"github.com/qrcledger/node/foundation/blockchain/storage/bolt"
	"github.com/qrcledger/node/foundation/blockchain/storage/disk"
	"github.com/qrcledger/node/foundation/blockchain/storage/memory"
)

// Set of supported backends.
const (
	Memory = "memory"
	Disk   = "disk"
	Bolt   = "bolt"
	Badger = "badger"
)

// Open constructs the named backend. The path is a file for disk and bolt,
// a directory for badger, and ignored for memory.
func Open(backend string, path string) (database.Storage, error) {
	switch strings.ToLower(backend) {
	case Memory:
		return memory.New(), nil
	case Disk:
		return disk.New(path)
	case Bolt:
		return bolt.New(path)
	case Badger:
		return badger.New(path)
	}

	return nil, fmt.Errorf("storage backend %q does not exist", backend)
}
