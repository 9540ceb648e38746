// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory database of account
// information.
package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/qrcledger/node/foundation/blockchain/genesis"
	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a block number is outside the chain.
var ErrNotFound = errors.New("block not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. The
// genesis block is never stored, storage holds block 1 onwards.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. Next returns an error
// and Done reports true once the end of the chain is reached.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// Database manages the chain of blocks and the account balances derived from
// the transactions those blocks hold.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	blocks     []Block
	accounts   map[Address]decimal.Decimal
	nonces     map[Address]uint64
	totalTrans int
	totalValue decimal.Decimal

	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs a new database seeded with the genesis block and replays
// every block the storage already holds.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	db := Database{
		genesis:   gen,
		blocks:    []Block{GenesisBlock(gen.TimeStamp())},
		accounts:  make(map[Address]decimal.Decimal),
		nonces:    make(map[Address]uint64),
		storage:   storage,
		evHandler: ev,
	}

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block := ToBlock(blockData)
		if err := db.checkLink(block); err != nil {
			return nil, fmt.Errorf("replay storage: %w", err)
		}

		db.apply(block)
	}

	ev("database: New: loaded: height[%d]", len(db.blocks))

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Reset(); err != nil {
		return err
	}

	db.blocks = db.blocks[:1]
	db.accounts = make(map[Address]decimal.Decimal)
	db.nonces = make(map[Address]uint64)
	db.totalTrans = 0
	db.totalValue = decimal.Zero

	return nil
}

// Genesis returns the chain parameters the database was constructed with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// =============================================================================

// Append adds a sealed block to the end of the chain. Nothing is applied
// unless the block passes every linkage check and is written to storage.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkLink(block); err != nil {
		return err
	}

	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return fmt.Errorf("write block %d: %w", block.Header.Number, err)
	}

	db.apply(block)

	db.evHandler("database: Append: blk[%d]: hash[%s]: trans[%d]", block.Header.Number, block.Hash(), len(block.Trans))

	return nil
}

// checkLink validates the block can follow the current tip.
func (db *Database) checkLink(block Block) error {
	tip := db.blocks[len(db.blocks)-1]
	num := block.Header.Number

	if num != tip.Header.Number+1 {
		return &ChainLinkageError{Number: num, Reason: fmt.Sprintf("expected block number %d", tip.Header.Number+1)}
	}

	if block.Header.PrevBlockHash != tip.Hash() {
		return &ChainLinkageError{Number: num, Reason: fmt.Sprintf("prev block hash %s doesn't match tip %s", block.Header.PrevBlockHash, tip.Hash())}
	}

	if block.Header.Difficulty != db.genesis.Difficulty {
		return &ChainLinkageError{Number: num, Reason: fmt.Sprintf("difficulty %d doesn't match chain difficulty %d", block.Header.Difficulty, db.genesis.Difficulty)}
	}

	if block.Header.TimeStamp < tip.Header.TimeStamp {
		return &ChainLinkageError{Number: num, Reason: "timestamp is older than the parent block"}
	}

	if hash := block.ComputeHash(); hash != block.Hash() {
		return &ChainLinkageError{Number: num, Reason: fmt.Sprintf("stored hash %s doesn't match computed hash %s", block.Hash(), hash)}
	}

	if !block.IsSolved() {
		return &ChainLinkageError{Number: num, Reason: "hash doesn't meet the difficulty"}
	}

	return nil
}

// apply adds the block to the chain and folds its transactions into the
// account balances. The caller must hold the write lock.
func (db *Database) apply(block Block) {
	for _, tx := range block.Trans {
		db.accounts[tx.To] = db.accounts[tx.To].Add(tx.Amount)
		if !tx.Kind.IsSystem() {
			db.accounts[tx.From] = db.accounts[tx.From].Sub(tx.Amount)
			db.nonces[tx.From] = max(db.nonces[tx.From], tx.Nonce)
		}
		db.totalValue = db.totalValue.Add(tx.Amount)
	}

	db.totalTrans += len(block.Trans)
	db.blocks = append(db.blocks, block)
}

// =============================================================================

// Tip returns the latest block in the chain.
func (db *Database) Tip() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Height returns the number of blocks in the chain, genesis included.
func (db *Database) Height() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return uint64(len(db.blocks))
}

// TotalTransactions returns the number of confirmed transactions.
func (db *Database) TotalTransactions() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.totalTrans
}

// TotalValue returns the sum of every confirmed transaction amount.
func (db *Database) TotalValue() decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.totalValue
}

// Balance returns the confirmed balance for the address from the account
// information maintained as blocks are appended.
func (db *Database) Balance(address Address) decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts[address]
}

// Nonce returns the highest nonce the address has used in a confirmed
// transaction.
func (db *Database) Nonce(address Address) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.nonces[address]
}

// ReplayBalance walks the entire chain to calculate the balance for the
// address and then folds in the pending transactions.
func (db *Database) ReplayBalance(address Address, pending []Tx) decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	bal := decimal.Zero
	for _, block := range db.blocks {
		bal = bal.Add(NetEffect(address, block.Trans))
	}

	return bal.Add(NetEffect(address, pending))
}

// Accounts returns a copy of the account balances sorted by address.
func (db *Database) Accounts() []Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make([]Account, 0, len(db.accounts))
	for address, bal := range db.accounts {
		accounts = append(accounts, Account{Address: address, Balance: bal})
	}
	sort.Sort(byAddress(accounts))

	return accounts
}

// Block returns the block at the specified number.
func (db *Database) Block(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, ErrNotFound
	}

	return db.blocks[num], nil
}

// Blocks returns the blocks between the from and to numbers inclusive.
func (db *Database) Blocks(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	last := uint64(len(db.blocks)) - 1
	if to > last {
		to = last
	}
	if from > to {
		return nil
	}

	out := make([]Block, to-from+1)
	copy(out, db.blocks[from:to+1])

	return out
}

// RecentBlocks returns up to the last n blocks in chain order.
func (db *Database) RecentBlocks(n int) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	start := max(len(db.blocks)-n, 0)
	out := make([]Block, len(db.blocks)-start)
	copy(out, db.blocks[start:])

	return out
}

// RecentTransactions returns up to the last n confirmed transactions in
// chain order.
func (db *Database) RecentTransactions(n int) []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var out []Tx
	for i := len(db.blocks) - 1; i >= 0 && len(out) < n; i-- {
		trans := db.blocks[i].Trans
		for j := len(trans) - 1; j >= 0 && len(out) < n; j-- {
			out = append(out, trans[j])
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// Validate walks the chain and checks every block against its own hash,
// its parent, and its difficulty.
func (db *Database) Validate() error {
	db.mu.RLock()
	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)
	db.mu.RUnlock()

	return ValidateChain(blocks)
}

// =============================================================================

// ValidateChain checks a full chain starting at the genesis block.
func ValidateChain(blocks []Block) error {
	if len(blocks) == 0 {
		return &ChainIntegrityError{Number: 0, Reason: "chain is empty"}
	}

	for i, block := range blocks {
		num := uint64(i)

		if block.Header.Number != num {
			return &ChainIntegrityError{Number: num, Reason: fmt.Sprintf("block holds number %d", block.Header.Number)}
		}

		if hash := block.ComputeHash(); hash != block.Hash() {
			return &ChainIntegrityError{Number: num, Reason: fmt.Sprintf("stored hash %s doesn't match computed hash %s", block.Hash(), hash)}
		}

		if !block.IsSolved() {
			return &ChainIntegrityError{Number: num, Reason: "hash doesn't meet the difficulty"}
		}

		if i == 0 {
			if block.Header.PrevBlockHash != signature.ZeroHash {
				return &ChainIntegrityError{Number: num, Reason: "genesis block doesn't link to the zero hash"}
			}
			continue
		}

		if block.Header.PrevBlockHash != blocks[i-1].Hash() {
			return &ChainIntegrityError{Number: num, Reason: "prev block hash doesn't match the parent block"}
		}
	}

	return nil
}

// ReadAll loads every block a storage holds behind a genesis block so the
// chain can be audited without constructing a database.
func ReadAll(gen genesis.Genesis, storage Storage) ([]Block, error) {
	blocks := []Block{GenesisBlock(gen.TimeStamp())}

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, ToBlock(blockData))
	}

	return blocks, nil
}
