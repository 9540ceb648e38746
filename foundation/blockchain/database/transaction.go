package database

import (
	"encoding/hex"
	"fmt"

	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// AmountPrecision is the number of fractional digits an amount may carry.
const AmountPrecision = 8

// Kind identifies the purpose of a transaction.
type Kind string

// Set of transaction kinds.
const (
	KindTransfer Kind = "transfer"
	KindFee      Kind = "fee"
	KindReward   Kind = "reward"
	KindFaucet   Kind = "faucet"
)

// IsValid reports whether the kind is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindTransfer, KindFee, KindReward, KindFaucet:
		return true
	}
	return false
}

// IsSystem reports whether the kind mints value from the system address.
func (k Kind) IsSystem() bool {
	return k == KindReward || k == KindFaucet
}

// =============================================================================

// Tx is the transactional information between two parties. Once a Tx is
// enqueued it is never mutated.
type Tx struct {
	From      Address         `json:"from"`            // Address sending the value.
	To        Address         `json:"to"`              // Address receiving the value.
	Amount    decimal.Decimal `json:"amount"`          // Value moved, at most 8 fractional digits.
	Nonce     uint64          `json:"nonce,omitempty"` // Per sender sequence, zero for system kinds.
	TimeStamp uint64          `json:"timestamp"`       // Unix milliseconds the tx was accepted.
	Kind      Kind            `json:"kind"`            // Purpose of the transaction.
	Sig       []byte          `json:"sig,omitempty"`
}

// ParseAmount converts the string form of an amount into a decimal and
// validates its precision.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not a number", s)
	}

	if !d.Equal(d.Truncate(AmountPrecision)) {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more than %d decimal places", s, AmountPrecision)
	}

	return d, nil
}

// FormatAmount renders an amount in its canonical fixed precision form.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPrecision)
}

// Validate checks the transaction is well formed. It does not look at
// balances.
func (tx Tx) Validate() error {
	if !tx.Kind.IsValid() {
		return &InvalidTransactionError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", tx.Kind)}
	}

	if !tx.From.IsAddress() {
		return &InvalidTransactionError{Field: "from", Reason: "address is not properly formatted"}
	}

	if !tx.To.IsAddress() {
		return &InvalidTransactionError{Field: "to", Reason: "address is not properly formatted"}
	}

	if !tx.Amount.IsPositive() {
		return &InvalidTransactionError{Field: "amount", Reason: "must be greater than zero"}
	}

	if !tx.Amount.Equal(tx.Amount.Truncate(AmountPrecision)) {
		return &InvalidTransactionError{Field: "amount", Reason: fmt.Sprintf("more than %d decimal places", AmountPrecision)}
	}

	switch {
	case tx.Kind.IsSystem():
		if tx.From != SystemAddress {
			return &InvalidTransactionError{Field: "from", Reason: fmt.Sprintf("%s transactions must come from the system address", tx.Kind)}
		}

	default:
		if tx.From == SystemAddress {
			return &InvalidTransactionError{Field: "from", Reason: "the system address can't send value"}
		}

		if tx.From == tx.To {
			return &InvalidTransactionError{Field: "to", Reason: "sending money to yourself"}
		}
	}

	return nil
}

// ID returns the digest of the full canonical transaction. It is the value
// handed back to the submitter for correlation.
func (tx Tx) ID() string {
	return signature.Hash(tx.canonical())
}

// SigningDigest returns the digest a wallet signs. It excludes the timestamp
// and signature since those are not known when the wallet signs. The nonce
// is covered so a signature is only good for one transaction.
func (tx Tx) SigningDigest() []byte {
	digest, err := signature.Digest(SigningTx{
		Amount: FormatAmount(tx.Amount),
		From:   string(tx.From),
		Kind:   string(tx.Kind),
		Nonce:  tx.Nonce,
		To:     string(tx.To),
	})
	if err != nil {
		return nil
	}
	return digest
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s:%s:nonce[%d]", tx.Kind, tx.From, tx.To, FormatAmount(tx.Amount), tx.Nonce)
}

// canonical returns the fixed layout used for hashing.
func (tx Tx) canonical() canonicalTx {
	return canonicalTx{
		Amount:    FormatAmount(tx.Amount),
		From:      string(tx.From),
		Kind:      string(tx.Kind),
		Nonce:     tx.Nonce,
		Sig:       hex.EncodeToString(tx.Sig),
		TimeStamp: tx.TimeStamp,
		To:        string(tx.To),
	}
}

// =============================================================================

// SigningTx is the layout of the data a wallet signs.
type SigningTx struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	Kind   string `json:"kind"`
	Nonce  uint64 `json:"nonce"`
	To     string `json:"to"`
}

// canonicalTx is the layout of a transaction when it's hashed. Fields are
// declared in key order and amounts use fixed precision.
type canonicalTx struct {
	Amount    string `json:"amount"`
	From      string `json:"from"`
	Kind      string `json:"kind"`
	Nonce     uint64 `json:"nonce"`
	Sig       string `json:"sig"`
	TimeStamp uint64 `json:"timestamp"`
	To        string `json:"to"`
}

// =============================================================================

// NetEffect returns the change the set of transactions makes to the balance
// of the specified address.
func NetEffect(address Address, trans []Tx) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range trans {
		if tx.To == address {
			net = net.Add(tx.Amount)
		}
		if tx.From == address && !tx.Kind.IsSystem() {
			net = net.Sub(tx.Amount)
		}
	}
	return net
}
