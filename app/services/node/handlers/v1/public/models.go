package public

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/qrcledger/node/business/sys/validate"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/state"
	"github.com/qrcledger/node/foundation/nameservice"
	"github.com/shopspring/decimal"
)

// newTx is what a wallet submits to move value between two addresses.
type newTx struct {
	Sender    string      `json:"sender" validate:"required,qrc"`
	Recipient string      `json:"recipient" validate:"required,qrc"`
	Amount    json.Number `json:"amount" validate:"required,amount"`
	Kind      string      `json:"kind" validate:"omitempty,oneof=transfer fee"`
	Nonce     uint64      `json:"nonce"`
	Signature string      `json:"signature" validate:"omitempty,hexadecimal"`
}

// Validate checks the data in the model is considered clean.
func (ntx newTx) Validate() error {
	return validate.Check(ntx)
}

// toTx converts the request into a ledger transaction.
func (ntx newTx) toTx() (database.Tx, error) {
	amount, err := database.ParseAmount(ntx.Amount.String())
	if err != nil {
		return database.Tx{}, &database.InvalidTransactionError{Field: "amount", Reason: err.Error()}
	}

	var sig []byte
	if ntx.Signature != "" {
		s := ntx.Signature
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			s = "0x" + s
		}

		sig, err = hexutil.Decode(s)
		if err != nil {
			return database.Tx{}, &database.InvalidTransactionError{Field: "signature", Reason: fmt.Sprintf("decode: %s", err)}
		}
	}

	tx := database.Tx{
		From:   database.Address(ntx.Sender),
		To:     database.Address(ntx.Recipient),
		Amount: amount,
		Kind:   database.Kind(ntx.Kind),
		Nonce:  ntx.Nonce,
		Sig:    sig,
	}

	return tx, nil
}

// faucetClaim asks the faucet to fund an address.
type faucetClaim struct {
	Address string `json:"address" validate:"required,qrc"`
}

// Validate checks the data in the model is considered clean.
func (fc faucetClaim) Validate() error {
	return validate.Check(fc)
}

// =============================================================================

type wallet struct {
	Address    database.Address `json:"address"`
	PublicKey  string           `json:"public_key"`
	PrivateKey string           `json:"private_key"`
}

type submitted struct {
	TxID string `json:"tx_id"`
}

type claimed struct {
	TxID   string      `json:"tx_id"`
	Amount json.Number `json:"amount"`
}

type balance struct {
	Address database.Address `json:"address"`
	Name    string           `json:"name"`
	Balance json.Number      `json:"balance"`
	Pending bool             `json:"pending"`
	Nonce   uint64           `json:"nonce,omitempty"`
}

type stats struct {
	ChainHeight     uint64      `json:"chain_height"`
	PendingCount    int         `json:"pending_count"`
	TotalTxCount    int         `json:"total_tx_count"`
	UniqueAddresses int         `json:"unique_addresses"`
	TotalValue      json.Number `json:"total_value"`
	Difficulty      uint8       `json:"difficulty"`
	LatestHash      string      `json:"latest_hash"`
	IsMining        bool        `json:"is_mining"`
}

type tx struct {
	ID        string           `json:"id"`
	From      database.Address `json:"from"`
	FromName  string           `json:"from_name"`
	To        database.Address `json:"to"`
	ToName    string           `json:"to_name"`
	Amount    json.Number      `json:"amount"`
	Kind      database.Kind    `json:"kind"`
	Nonce     uint64           `json:"nonce,omitempty"`
	TimeStamp uint64           `json:"timestamp"`
	Sig       string           `json:"sig,omitempty"`
	Status    string           `json:"status,omitempty"`
}

type block struct {
	Number        uint64 `json:"number"`
	Hash          string `json:"hash"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Nonce         uint64 `json:"nonce"`
	Difficulty    uint8  `json:"difficulty"`
	Trans         []tx   `json:"trans"`
}

type validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// =============================================================================

// amount renders a decimal as a JSON number with fixed precision.
func amount(d decimal.Decimal) json.Number {
	return json.Number(database.FormatAmount(d))
}

func toTx(ns *nameservice.NameService, dbTx database.Tx, status string) tx {
	var sig string
	if len(dbTx.Sig) > 0 {
		sig = hexutil.Encode(dbTx.Sig)
	}

	return tx{
		ID:        dbTx.ID(),
		From:      dbTx.From,
		FromName:  ns.Lookup(dbTx.From),
		To:        dbTx.To,
		ToName:    ns.Lookup(dbTx.To),
		Amount:    amount(dbTx.Amount),
		Kind:      dbTx.Kind,
		Nonce:     dbTx.Nonce,
		TimeStamp: dbTx.TimeStamp,
		Sig:       sig,
		Status:    status,
	}
}

func toBlock(ns *nameservice.NameService, dbBlock database.Block) block {
	trans := make([]tx, len(dbBlock.Trans))
	for i, dbTx := range dbBlock.Trans {
		trans[i] = toTx(ns, dbTx, state.StatusConfirmed)
	}

	return block{
		Number:        dbBlock.Header.Number,
		Hash:          dbBlock.Hash(),
		PrevBlockHash: dbBlock.Header.PrevBlockHash,
		TimeStamp:     dbBlock.Header.TimeStamp,
		Nonce:         dbBlock.Header.Nonce,
		Difficulty:    dbBlock.Header.Difficulty,
		Trans:         trans,
	}
}

func toBlocks(ns *nameservice.NameService, dbBlocks []database.Block) []block {
	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(ns, dbBlock)
	}
	return blocks
}
