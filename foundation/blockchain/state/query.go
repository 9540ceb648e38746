package state

import (
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Set of transaction statuses reported by QueryRecentTransactions.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
)

// Stats represents a summary of the ledger.
type Stats struct {
	ChainHeight     uint64
	PendingCount    int
	TotalTxCount    int
	UniqueAddresses int
	TotalValue      decimal.Decimal
	Difficulty      uint8
	LatestHash      string
	IsMining        bool
}

// TxRecord represents a transaction and where it currently lives.
type TxRecord struct {
	Tx     database.Tx
	Status string
}

// =============================================================================

// QueryBalance returns the confirmed balance for the address. When pending
// is true the transactions waiting in the mempool are folded in.
func (s *State) QueryBalance(address database.Address, pending bool) decimal.Decimal {
	bal := s.db.Balance(address)
	if pending {
		bal = bal.Add(database.NetEffect(address, s.mempool.Copy()))
	}
	return bal
}

// QueryNonce returns the highest nonce accepted for the address, pending or
// confirmed. A wallet signs its next transaction with this value plus one.
func (s *State) QueryNonce(address database.Address) uint64 {
	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()

	return s.lastNonce(address)
}

// QueryReplayBalance calculates the balance by walking the whole chain.
func (s *State) QueryReplayBalance(address database.Address, pending bool) decimal.Decimal {
	var trans []database.Tx
	if pending {
		trans = s.mempool.Copy()
	}
	return s.db.ReplayBalance(address, trans)
}

// QueryStats returns a summary of the ledger.
func (s *State) QueryStats() Stats {
	tip := s.db.Tip()

	return Stats{
		ChainHeight:     s.db.Height(),
		PendingCount:    s.mempool.Size(),
		TotalTxCount:    s.db.TotalTransactions(),
		UniqueAddresses: len(s.db.Accounts()),
		TotalValue:      s.db.TotalValue(),
		Difficulty:      s.genesis.Difficulty,
		LatestHash:      tip.Hash(),
		IsMining:        s.mining.Load(),
	}
}

// QueryLatestBlock returns the tip of the chain.
func (s *State) QueryLatestBlock() database.Block {
	return s.db.Tip()
}

// QueryRecentBlocks returns up to the last n blocks in chain order.
func (s *State) QueryRecentBlocks(n int) []database.Block {
	return s.db.RecentBlocks(n)
}

// QueryRecentTransactions returns up to the last n transactions, oldest
// first. Pending transactions are newer than every confirmed one.
func (s *State) QueryRecentTransactions(n int) []TxRecord {
	if n <= 0 {
		return nil
	}

	pending := s.mempool.Copy()
	if len(pending) > n {
		pending = pending[len(pending)-n:]
	}

	confirmed := s.db.RecentTransactions(n - len(pending))

	out := make([]TxRecord, 0, len(confirmed)+len(pending))
	for _, tx := range confirmed {
		out = append(out, TxRecord{Tx: tx, Status: StatusConfirmed})
	}
	for _, tx := range pending {
		out = append(out, TxRecord{Tx: tx, Status: StatusPending})
	}

	return out
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	if from == QueryLatest {
		from = s.db.Tip().Header.Number
		to = from
	}
	if to == QueryLatest {
		to = s.db.Tip().Header.Number
	}

	return s.db.Blocks(from, to)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Size()
}

// QueryMempool returns a copy of the mempool in queue order.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Copy()
}

// QueryAccounts returns a copy of the confirmed account balances.
func (s *State) QueryAccounts() []database.Account {
	return s.db.Accounts()
}

// ValidateChain checks every block in the chain against its hash, its
// parent, and its difficulty.
func (s *State) ValidateChain() error {
	return s.db.Validate()
}
