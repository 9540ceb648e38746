// Package signature provides helper functions for handling the blockchain
// hashing, address and signature needs.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// ZeroHash represents a hash code of zeros. It is the previous hash of the
// genesis block.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// AddressPrefix is the tag every QRC address starts with.
const AddressPrefix = "QRC"

// addressLength is the number of digest bytes that make up an address.
const addressLength = 20

// =============================================================================

// Hash returns a unique string for the value. The value is marshaled to JSON
// so callers must provide values with a fixed field order to get a canonical
// hash.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashData(data)
}

// HashData returns the SHA3-256 digest of the data as 64 lowercase hex
// characters.
func HashData(data []byte) string {
	hash := sha3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Digest returns the raw SHA3-256 digest of the JSON form of the value.
func Digest(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	hash := sha3.Sum256(data)
	return hash[:], nil
}

// =============================================================================

// Address derives the QRC address for the specified public key bytes.
func Address(publicKey []byte) string {
	hash := sha3.Sum256(publicKey)
	return AddressPrefix + base58.Encode(hash[:addressLength])
}

// PublicKeyToAddress derives the QRC address for an ECDSA public key.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return Address(crypto.FromECDSAPub(&pk))
}

// SystemAddress is the address that mints faucet and reward transactions.
// It is a well formed address no key can produce.
func SystemAddress() string {
	return AddressPrefix + base58.Encode(make([]byte, addressLength))
}

// IsAddress reports whether the string is a well formed QRC address.
func IsAddress(address string) bool {
	if len(address) <= len(AddressPrefix) || address[:len(AddressPrefix)] != AddressPrefix {
		return false
	}

	body, err := base58.Decode(address[len(AddressPrefix):])
	if err != nil {
		return false
	}

	return len(body) == addressLength
}

// =============================================================================

// Sign uses the specified private key to sign the digest. The result is the
// 65 byte [R|S|V] signature.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	data := stamp(digest)

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, errors.New("invalid signature")
	}

	return sig, nil
}

// FromAddress extracts the address of the account that signed the digest.
func FromAddress(digest []byte, sig []byte) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length, got %d, exp %d", len(sig), crypto.SignatureLength)
	}

	publicKey, err := crypto.SigToPub(stamp(digest), sig)
	if err != nil {
		return "", err
	}

	return PublicKeyToAddress(*publicKey), nil
}

// stamp returns a hash of 32 bytes that represents the digest with the QRC
// stamp embedded into the final hash. Signatures produced by this package
// can't be replayed as signatures over arbitrary data.
func stamp(digest []byte) []byte {
	stamp := []byte("\x19QRC Signed Message:\n32")
	return crypto.Keccak256(stamp, digest)
}
