package state

import (
	"fmt"

	"github.com/qrcledger/node/foundation/blockchain/database"
)

// SubmitTransaction accepts a transaction from a wallet for inclusion and
// returns its id. A zero nonce is replaced with the next nonce for the sender.
func (s *State) SubmitTransaction(tx database.Tx) (string, error) {
	if tx.Kind == "" {
		tx.Kind = database.KindTransfer
	}

	if tx.Kind.IsSystem() {
		return "", &database.InvalidTransactionError{Field: "kind", Reason: fmt.Sprintf("%s transactions can't be submitted", tx.Kind)}
	}

	tx, n, err := s.accept(tx)
	if err != nil {
		return "", err
	}

	id := tx.ID()
	s.evHandler("state: SubmitTransaction: tx[%s]: %s: mempool[%d]", id, tx, n)

	if n >= int(s.genesis.TransPerBlock) {
		s.Worker.SignalStartMining()
	}

	return id, nil
}

// accept validates the transaction and adds it to the mempool. The nonce
// check and the enqueue happen under one lock so a nonce is only ever
// accepted once per sender.
func (s *State) accept(tx database.Tx) (database.Tx, int, error) {
	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()

	if err := tx.Validate(); err != nil {
		return database.Tx{}, 0, err
	}

	last := s.lastNonce(tx.From)
	switch {
	case tx.Nonce == 0:
		tx.Nonce = last + 1

	case tx.Nonce <= last:
		return database.Tx{}, 0, &database.InvalidTransactionError{
			Field:  "nonce",
			Reason: fmt.Sprintf("nonce %d has already been used, next is %d", tx.Nonce, last+1),
		}
	}

	if err := s.validateTransaction(tx); err != nil {
		return database.Tx{}, 0, err
	}

	if tx.TimeStamp == 0 {
		tx.TimeStamp = now()
	}

	n, err := s.mempool.Enqueue(tx)
	if err != nil {
		return database.Tx{}, 0, err
	}

	s.nonces[tx.From] = tx.Nonce

	return tx, n, nil
}

// lastNonce returns the highest nonce accepted for the address, pending or
// confirmed. The caller must hold the nonce lock.
func (s *State) lastNonce(address database.Address) uint64 {
	return max(s.nonces[address], s.db.Nonce(address))
}

// =============================================================================

// validateTransaction takes the transaction and validates it has a proper
// signature and the sender can cover it.
func (s *State) validateTransaction(tx database.Tx) error {
	if err := s.verifier.Verify(tx.SigningDigest(), tx.Sig, string(tx.From)); err != nil {
		return &database.InvalidTransactionError{Field: "sig", Reason: err.Error()}
	}

	if s.requireFunds {
		if bal := s.db.Balance(tx.From); bal.LessThan(tx.Amount) {
			return &database.InvalidTransactionError{
				Field:  "amount",
				Reason: fmt.Sprintf("insufficient funds, bal %s, needed %s", database.FormatAmount(bal), database.FormatAmount(tx.Amount)),
			}
		}
	}

	return nil
}
