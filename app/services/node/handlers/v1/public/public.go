// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/qrcledger/node/business/sys/validate"
	"github.com/qrcledger/node/business/web/errs"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/state"
	"github.com/qrcledger/node/foundation/events"
	"github.com/qrcledger/node/foundation/nameservice"
	"github.com/qrcledger/node/foundation/web"
	"go.uber.org/zap"
)

// Default sizes for the recent lists.
const (
	defaultRecentBlocks = 10
	defaultRecentTrans  = 20
	maxRecent           = 1_000
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The filter
// query parameter limits the stream to events starting with that prefix.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("filter"))
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// CreateWallet generates a new key pair. The node doesn't keep the private
// key.
func (h Handlers) CreateWallet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	resp := wallet{
		Address:    database.PublicKeyToAddress(privateKey.PublicKey),
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// SubmitTransaction adds a new user transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return badRequest(err)
	}

	dbTx, err := ntx.toTx()
	if err != nil {
		return err
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", dbTx.From, "to", dbTx.To, "amount", database.FormatAmount(dbTx.Amount))

	id, err := h.State.SubmitTransaction(dbTx)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, submitted{TxID: id}, http.StatusOK)
}

// Balance returns the balance for the address. The pending query parameter
// folds in the transactions still in the mempool.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := database.ToAddress(web.Param(r, "address"))
	if err != nil {
		return &database.InvalidTransactionError{Field: "address", Reason: err.Error()}
	}

	pending, err := boolQuery(r, "pending")
	if err != nil {
		return err
	}

	resp := balance{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: amount(h.State.QueryBalance(address, pending)),
		Pending: pending,
		Nonce:   h.State.QueryNonce(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns a summary of the ledger.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s := h.State.QueryStats()

	resp := stats{
		ChainHeight:     s.ChainHeight,
		PendingCount:    s.PendingCount,
		TotalTxCount:    s.TotalTxCount,
		UniqueAddresses: s.UniqueAddresses,
		TotalValue:      amount(s.TotalValue),
		Difficulty:      s.Difficulty,
		LatestHash:      s.LatestHash,
		IsMining:        s.IsMining,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RecentBlocks returns the last n blocks in chain order.
func (h Handlers) RecentBlocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := intQuery(r, "n", defaultRecentBlocks)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toBlocks(h.NS, h.State.QueryRecentBlocks(n)), http.StatusOK)
}

// BlocksByNumber returns the blocks between the from and to numbers. Either
// number can be the word latest.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockNumber(web.Param(r, "from"))
	if err != nil {
		return err
	}

	to, err := blockNumber(web.Param(r, "to"))
	if err != nil {
		return err
	}

	if from > to {
		return errs.NewTrusted(errors.New("from is greater than to"), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, toBlocks(h.NS, h.State.QueryBlocksByNumber(from, to)), http.StatusOK)
}

// RecentTransactions returns the last n transactions with pending ones last.
func (h Handlers) RecentTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := intQuery(r, "n", defaultRecentTrans)
	if err != nil {
		return err
	}

	records := h.State.QueryRecentTransactions(n)

	trans := make([]tx, len(records))
	for i, rec := range records {
		trans[i] = toTx(h.NS, rec.Tx, rec.Status)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.QueryMempool()

	trans := make([]tx, len(pool))
	for i, dbTx := range pool {
		trans[i] = toTx(h.NS, dbTx, state.StatusPending)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// ClaimFaucet mints the faucet amount to the address.
func (h Handlers) ClaimFaucet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var fc faucetClaim
	if err := web.Decode(r, &fc); err != nil {
		return badRequest(err)
	}

	dbTx, err := h.State.Faucet(database.Address(fc.Address))
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := claimed{
		TxID:   dbTx.ID(),
		Amount: amount(dbTx.Amount),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ValidateChain audits the chain.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{Valid: true}
	if err := h.State.ValidateChain(); err != nil {
		resp = validation{Valid: false, Error: err.Error()}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Accounts returns the confirmed balances for every known address.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := h.State.QueryAccounts()

	resp := make([]balance, len(accounts))
	for i, acct := range accounts {
		resp[i] = balance{
			Address: acct.Address,
			Name:    h.NS.Lookup(acct.Address),
			Balance: amount(acct.Balance),
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// badRequest marks decode failures as client errors. Validation errors are
// left alone so their fields reach the client.
func badRequest(err error) error {
	if validate.IsFieldErrors(err) || database.IsInvalidTransaction(err) {
		return err
	}
	return errs.NewTrusted(err, http.StatusBadRequest)
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errs.NewTrusted(fmt.Errorf("%s must be a positive number", key), http.StatusBadRequest)
	}

	return min(n, maxRecent), nil
}

func boolQuery(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errs.NewTrusted(fmt.Errorf("%s must be true or false", key), http.StatusBadRequest)
	}

	return b, nil
}

func blockNumber(s string) (uint64, error) {
	if s == "latest" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("block number %q is not a number", s), http.StatusBadRequest)
	}

	return num, nil
}
