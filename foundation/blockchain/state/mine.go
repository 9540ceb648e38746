package state

import (
	"context"
	"errors"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// MineNewBlock drains up to maxBatch transactions from the mempool and
// attempts to create a new block with a proper hash that can become the next
// block in the chain. A maxBatch of zero or less uses the genesis trans per
// block. Only one mining operation runs at a time.
func (s *State) MineNewBlock(ctx context.Context, maxBatch int) (database.Block, error) {
	if !s.mining.CompareAndSwap(false, true) {
		return database.Block{}, ErrMiningInProgress
	}
	defer s.mining.Store(false)

	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there any transactions in the pool.
	if s.mempool.Size() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	if maxBatch <= 0 {
		maxBatch = int(s.genesis.TransPerBlock)
	}

	trans := s.mempool.DrainUpTo(maxBatch)
	if s.requireFunds {
		trans = s.dropUnfunded(trans)
	}

	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	// A block is never older than its parent, even when the clock is behind
	// the genesis date or steps backwards.
	tip := s.db.Tip()
	timeStamp := max(now(), tip.Header.TimeStamp)

	blockTrans := trans
	if s.beneficiaryID != "" && s.genesis.MiningReward.IsPositive() {
		reward := database.Tx{
			From:      database.SystemAddress,
			To:        s.beneficiaryID,
			Amount:    s.genesis.MiningReward,
			TimeStamp: timeStamp,
			Kind:      database.KindReward,
		}
		blockTrans = append(blockTrans[:len(blockTrans):len(blockTrans)], reward)
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(blockTrans))

	// Attempt to create a new block by solving the POW puzzle. This can be
	// cancelled and no lock is held while it runs.
	block, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.genesis.Difficulty,
		PrevBlock:  tip,
		Trans:      blockTrans,
		TimeStamp:  timeStamp,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		s.mempool.Requeue(trans)

		if errors.Is(err, database.ErrMiningAborted) {
			s.evHandler("state: MineNewBlock: MINING: CANCELLED: requeued trans[%d]", len(trans))
		}
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: append block")

	return s.appendBlock(block, trans)
}

// =============================================================================

// appendBlock adds the sealed block to the chain. If the chain rejects the
// block the user transactions go back to the front of the mempool.
func (s *State) appendBlock(block database.Block, trans []database.Tx) (database.Block, error) {
	if err := s.db.Append(block); err != nil {
		s.mempool.Requeue(trans)
		s.evHandler("state: appendBlock: REJECTED: blk[%d]: requeued trans[%d]: %s", block.Header.Number, len(trans), err)
		return database.Block{}, err
	}

	s.evHandler("viewer: block: blk[%d]: hash[%s]: nonce[%d]: trans[%d]", block.Header.Number, block.Hash(), block.Header.Nonce, len(block.Trans))

	return block, nil
}

// dropUnfunded walks the batch in order against the confirmed balances and
// removes every transaction its sender can't cover at that point.
func (s *State) dropUnfunded(trans []database.Tx) []database.Tx {
	bals := make(map[database.Address]decimal.Decimal)
	balance := func(a database.Address) decimal.Decimal {
		if b, exists := bals[a]; exists {
			return b
		}
		return s.db.Balance(a)
	}

	kept := make([]database.Tx, 0, len(trans))
	for _, tx := range trans {
		if !tx.Kind.IsSystem() {
			from := balance(tx.From)
			if from.LessThan(tx.Amount) {
				s.evHandler("state: dropUnfunded: DROPPED: tx[%s]: %s: bal[%s]", tx.ID(), tx, database.FormatAmount(from))
				continue
			}
			bals[tx.From] = from.Sub(tx.Amount)
		}

		bals[tx.To] = balance(tx.To).Add(tx.Amount)
		kept = append(kept, tx)
	}

	return kept
}
