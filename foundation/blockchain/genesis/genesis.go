// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Set of defaults used when no genesis file is provided.
const (
	DefaultTransPerBlock  = 100
	DefaultDifficulty     = 2
	DefaultFaucetAmount   = "100"
	DefaultFaucetCooldown = 24 * time.Hour
)

// maxDifficulty matches the number of hex digits in a 256 bit hash.
const maxDifficulty = 64

// Genesis represents the genesis file.
type Genesis struct {
	Date               time.Time       `json:"date"`
	TransPerBlock      uint16          `json:"trans_per_block"`      // The maximum number of transactions that can be in a block.
	Difficulty         uint8           `json:"difficulty"`           // How difficult it needs to be to solve the work problem.
	MiningReward       decimal.Decimal `json:"mining_reward"`        // Reward for mining a block, zero turns rewards off.
	FaucetAmount       decimal.Decimal `json:"faucet_amount"`        // Value minted per faucet claim.
	FaucetCooldownSecs uint64          `json:"faucet_cooldown_secs"` // Time an address must wait between claims.
}

// Default returns the genesis values used when no file is available.
func Default() Genesis {
	return Genesis{
		TransPerBlock:      DefaultTransPerBlock,
		Difficulty:         DefaultDifficulty,
		MiningReward:       decimal.Zero,
		FaucetAmount:       decimal.RequireFromString(DefaultFaucetAmount),
		FaucetCooldownSecs: uint64(DefaultFaucetCooldown / time.Second),
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Values the file leaves out keep
// their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("unmarshal genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the chain parameters are usable.
func (g Genesis) Validate() error {
	if g.Difficulty > maxDifficulty {
		return fmt.Errorf("difficulty %d is above the max of %d", g.Difficulty, maxDifficulty)
	}

	if g.TransPerBlock == 0 {
		return errors.New("trans_per_block must be greater than zero")
	}

	if g.MiningReward.IsNegative() {
		return errors.New("mining_reward can't be negative")
	}

	if g.FaucetAmount.IsNegative() {
		return errors.New("faucet_amount can't be negative")
	}

	return nil
}

// TimeStamp returns the genesis date as unix milliseconds, zero when the
// date isn't set.
func (g Genesis) TimeStamp() uint64 {
	if g.Date.IsZero() {
		return 0
	}
	return uint64(g.Date.UTC().UnixMilli())
}

// FaucetCooldown returns the faucet cooldown as a duration.
func (g Genesis) FaucetCooldown() time.Duration {
	return time.Duration(g.FaucetCooldownSecs) * time.Second
}
