package signature

import (
	"fmt"
	"strings"
)

// Set of verifier strategies.
const (
	VerifierNone      = "none"
	VerifierSecp256k1 = "secp256k1"
)

// Verifier represents the behavior required to check that a signature over a
// transaction digest was produced by the holder of the claimed address.
type Verifier interface {
	Verify(digest []byte, sig []byte, address string) error
}

// RetrieveVerifier returns the verifier for the specified strategy name.
func RetrieveVerifier(strategy string) (Verifier, error) {
	switch strings.ToLower(strategy) {
	case VerifierNone, "":
		return Unchecked{}, nil
	case VerifierSecp256k1:
		return Secp256k1{}, nil
	}

	return nil, fmt.Errorf("verifier strategy %q does not exist", strategy)
}

// =============================================================================

// Unchecked accepts every signature. Real key binding is delegated to an
// external collaborator in this mode.
type Unchecked struct{}

// Verify implements the Verifier interface.
func (Unchecked) Verify(digest []byte, sig []byte, address string) error {
	return nil
}

// Secp256k1 recovers the public key from a recoverable ECDSA signature and
// checks it derives the claimed address.
type Secp256k1 struct{}

// Verify implements the Verifier interface.
func (Secp256k1) Verify(digest []byte, sig []byte, address string) error {
	if len(sig) == 0 {
		return fmt.Errorf("signature is required")
	}

	from, err := FromAddress(digest, sig)
	if err != nil {
		return err
	}

	if from != address {
		return fmt.Errorf("signature belongs to %s, not %s", from, address)
	}

	return nil
}
