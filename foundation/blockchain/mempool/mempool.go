// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"sync"

	"github.com/qrcledger/node/foundation/blockchain/database"
)

// ErrMempoolFull is returned by Enqueue when the pool is at its limit.
var ErrMempoolFull = errors.New("mempool is full")

// Mempool represents a first in first out queue of transactions waiting to
// be mined. A transaction taken out by DrainUpTo is owned by the caller
// until it's sealed or handed back with Requeue.
type Mempool struct {
	mu    sync.Mutex
	pool  []database.Tx
	limit int
}

// New constructs a new unbounded mempool.
func New() *Mempool {
	return NewWithLimit(0)
}

// NewWithLimit constructs a new mempool that holds at most limit
// transactions. A limit of zero means unbounded.
func NewWithLimit(limit int) *Mempool {
	return &Mempool{
		limit: max(limit, 0),
	}
}

// Size returns the current number of transactions in the pool.
func (mp *Mempool) Size() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.pool)
}

// Enqueue adds the transaction to the back of the pool and returns the new
// size of the pool.
func (mp *Mempool) Enqueue(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.limit > 0 && len(mp.pool) >= mp.limit {
		return len(mp.pool), ErrMempoolFull
	}

	mp.pool = append(mp.pool, tx)

	return len(mp.pool), nil
}

// DrainUpTo removes and returns up to howMany of the oldest transactions.
// A negative value drains the whole pool.
func (mp *Mempool) DrainUpTo(howMany int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if howMany < 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	if howMany == 0 {
		return []database.Tx{}
	}

	batch := make([]database.Tx, howMany)
	copy(batch, mp.pool[:howMany])

	rest := make([]database.Tx, len(mp.pool)-howMany)
	copy(rest, mp.pool[howMany:])
	mp.pool = rest

	return batch
}

// Requeue puts the transactions back at the front of the pool in the order
// provided. The limit is not enforced since these were already accepted.
func (mp *Mempool) Requeue(trans []database.Tx) {
	if len(trans) == 0 {
		return
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := make([]database.Tx, 0, len(trans)+len(mp.pool))
	pool = append(pool, trans...)
	pool = append(pool, mp.pool...)
	mp.pool = pool
}

// Copy returns a snapshot of the pool in queue order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
