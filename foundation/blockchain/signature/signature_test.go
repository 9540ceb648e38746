package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/qrcledger/node/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

func Test_Signing(t *testing.T) {
	t.Log("Given the need to sign and recover a digest.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a known private key.", testID)
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a private key: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to generate a private key.", success, testID)

			digest, err := signature.Digest(struct{ Name string }{Name: "Bill"})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to produce a digest: %v", failed, testID, err)
			}

			sig, err := signature.Sign(digest, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign data: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to sign data.", success, testID)

			addr, err := signature.FromAddress(digest, sig)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to recover the from address: %v", failed, testID, err)
			}

			exp := signature.PublicKeyToAddress(pk.PublicKey)
			if addr != exp {
				t.Logf("\t\tTest %d:\tgot: %s", testID, addr)
				t.Logf("\t\tTest %d:\texp: %s", testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould get back the right address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the right address.", success, testID)

			v, err := signature.RetrieveVerifier(signature.VerifierSecp256k1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the verifier: %v", failed, testID, err)
			}

			if err := v.Verify(digest, sig, exp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the signature for the signer: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the signature for the signer.", success, testID)

			if err := v.Verify(digest, sig, signature.SystemAddress()); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the signature for another address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the signature for another address.", success, testID)

			other, _ := signature.Digest(struct{ Name string }{Name: "Jill"})
			if err := v.Verify(other, sig, exp); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the signature over different data.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the signature over different data.", success, testID)
		}
	}
}

func Test_Hash(t *testing.T) {
	t.Log("Given the need to hash data.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling empty data.", testID)
		{
			exp := "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
			got := signature.HashData(nil)
			if got != exp {
				t.Logf("\t\tTest %d:\tgot: %s", testID, got)
				t.Logf("\t\tTest %d:\texp: %s", testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould get the SHA3-256 digest.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the SHA3-256 digest.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen hashing the same value twice.", testID)
		{
			value := struct {
				Name string `json:"name"`
				Age  int    `json:"age"`
			}{Name: "Bill", Age: 50}

			h1 := signature.Hash(value)
			h2 := signature.Hash(value)
			if h1 != h2 || len(h1) != 64 {
				t.Fatalf("\t%s\tTest %d:\tShould get the same 64 character hash: %s %s", failed, testID, h1, h2)
			}
			t.Logf("\t%s\tTest %d:\tShould get the same 64 character hash.", success, testID)
		}
	}
}

func Test_Address(t *testing.T) {
	type table struct {
		name    string
		address string
		valid   bool
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	tt := []table{
		{name: "derived", address: signature.PublicKeyToAddress(pk.PublicKey), valid: true},
		{name: "system", address: signature.SystemAddress(), valid: true},
		{name: "prefix", address: "QRC", valid: false},
		{name: "wrongprefix", address: "0x" + signature.PublicKeyToAddress(pk.PublicKey)[3:], valid: false},
		{name: "badchars", address: "QRC0OIl", valid: false},
		{name: "short", address: "QRC" + "2NEpo7TZRRrLZSi2U", valid: false},
	}

	t.Log("Given the need to validate addresses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s address.", testID, tst.name)
				{
					if got := signature.IsAddress(tst.address); got != tst.valid {
						t.Fatalf("\t%s\tTest %d:\tShould report valid %v for %q, got %v.", failed, testID, tst.valid, tst.address, got)
					}
					t.Logf("\t%s\tTest %d:\tShould report valid %v.", success, testID, tst.valid)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
