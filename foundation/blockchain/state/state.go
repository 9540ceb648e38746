// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
	"github.com/qrcledger/node/foundation/blockchain/mempool"
	"github.com/qrcledger/node/foundation/blockchain/signature"
)

// Set of errors returned by the state API.
var (
	ErrNoTransactions   = errors.New("no transactions in mempool")
	ErrMiningInProgress = errors.New("mining operation already in progress")
	ErrFaucetCooldown   = errors.New("faucet already claimed, try again later")
	ErrFaucetDisabled   = errors.New("faucet is disabled")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// noopWorker is used until a real worker registers itself.
type noopWorker struct{}

func (noopWorker) Shutdown()           {}
func (noopWorker) SignalStartMining()  {}
func (noopWorker) SignalCancelMining() {}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID database.Address   // Receives the mining reward, empty turns rewards off.
	Genesis       genesis.Genesis    // Chain parameters.
	Storage       database.Storage   // Where sealed blocks are kept.
	Verifier      signature.Verifier // Checks transaction signatures, nil accepts all.
	MempoolLimit  int                // Max pending transactions, zero is unbounded.
	RequireFunds  bool               // Reject and drop transactions the sender can't cover.
	EvHandler     EventHandler
}

// State manages the blockchain database.
type State struct {
	beneficiaryID database.Address
	requireFunds  bool
	evHandler     EventHandler

	genesis  genesis.Genesis
	mempool  *mempool.Mempool
	db       *database.Database
	verifier signature.Verifier

	mining atomic.Bool

	nonceMu sync.Mutex
	nonces  map[database.Address]uint64

	faucetMu     sync.Mutex
	faucetClaims map[database.Address]time.Time

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	if cfg.BeneficiaryID != "" && !cfg.BeneficiaryID.IsAddress() {
		return nil, errors.New("beneficiary address is not properly formatted")
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = signature.Unchecked{}
	}

	// Access the storage for the blockchain and replay what's there.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		requireFunds:  cfg.RequireFunds,
		evHandler:     ev,

		genesis:  cfg.Genesis,
		mempool:  mempool.NewWithLimit(cfg.MempoolLimit),
		db:       db,
		verifier: verifier,

		nonces:       make(map[database.Address]uint64),
		faucetClaims: make(map[database.Address]time.Time),

		Worker: noopWorker{},
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	// Make sure the database file is properly closed.
	return s.db.Close()
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// IsMining reports whether a mining operation is running.
func (s *State) IsMining() bool {
	return s.mining.Load()
}

// now returns the current time as unix milliseconds.
func now() uint64 {
	return uint64(time.Now().UTC().UnixMilli())
}
