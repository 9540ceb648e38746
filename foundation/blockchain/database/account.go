package database

import (
	"crypto/ecdsa"
	"errors"

	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// Account represents the balance information for an individual address.
type Account struct {
	Address Address
	Balance decimal.Decimal
}

// =============================================================================

// Address represents a QRC wallet address that is associated with
// transactions on the blockchain.
type Address string

// SystemAddress is the sender of faucet and reward transactions. It is never
// debited.
var SystemAddress = Address(signature.SystemAddress())

// ToAddress converts a string to an address and validates the string is
// formatted correctly.
func ToAddress(s string) (Address, error) {
	a := Address(s)
	if !a.IsAddress() {
		return "", errors.New("invalid address format")
	}

	return a, nil
}

// PublicKeyToAddress converts the public key to an address value.
func PublicKeyToAddress(pk ecdsa.PublicKey) Address {
	return Address(signature.PublicKeyToAddress(pk))
}

// IsAddress verifies whether the underlying data represents a valid
// QRC address.
func (a Address) IsAddress() bool {
	return signature.IsAddress(string(a))
}

// =============================================================================

// byAddress provides sorting support by the address value.
type byAddress []Account

// Len returns the number of accounts in the list.
func (ba byAddress) Len() int {
	return len(ba)
}

// Less helps to sort the list by address in ascending order.
func (ba byAddress) Less(i, j int) bool {
	return ba[i].Address < ba[j].Address
}

// Swap moves accounts in the order of the address value.
func (ba byAddress) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
