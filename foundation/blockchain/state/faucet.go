package state

import (
	"time"

	"github.com/qrcledger/node/foundation/blockchain/database"
)

// Faucet mints the configured faucet amount to the address. An address can
// claim once per cooldown period.
func (s *State) Faucet(address database.Address) (database.Tx, error) {
	if !s.genesis.FaucetAmount.IsPositive() {
		return database.Tx{}, ErrFaucetDisabled
	}

	if !address.IsAddress() {
		return database.Tx{}, &database.InvalidTransactionError{Field: "address", Reason: "address is not properly formatted"}
	}

	tx := database.Tx{
		From:      database.SystemAddress,
		To:        address,
		Amount:    s.genesis.FaucetAmount,
		TimeStamp: now(),
		Kind:      database.KindFaucet,
	}

	if err := tx.Validate(); err != nil {
		return database.Tx{}, err
	}

	s.faucetMu.Lock()
	defer s.faucetMu.Unlock()

	t := time.Now()
	if last, exists := s.faucetClaims[address]; exists && t.Sub(last) < s.genesis.FaucetCooldown() {
		return database.Tx{}, ErrFaucetCooldown
	}

	n, err := s.mempool.Enqueue(tx)
	if err != nil {
		return database.Tx{}, err
	}
	s.faucetClaims[address] = t

	s.evHandler("state: Faucet: tx[%s]: %s: mempool[%d]", tx.ID(), tx, n)

	if n >= int(s.genesis.TransPerBlock) {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}
