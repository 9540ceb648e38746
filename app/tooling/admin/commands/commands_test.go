package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/qrcledger/node/app/tooling/admin/commands"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/qrcledger/node/foundation/blockchain/storage/memory"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Commands(t *testing.T) {
	gen := genesis.Default()
	gen.Difficulty = 0

	alice := database.Address(signature.Address([]byte("alice")))
	bob := database.Address(signature.Address([]byte("bob")))

	t.Log("Given the need to audit a stored chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the storage holds a valid block.", testID)
		{
			strg := memory.New()

			block, err := database.POW(context.Background(), database.POWArgs{
				Difficulty: gen.Difficulty,
				PrevBlock:  database.GenesisBlock(gen.TimeStamp()),
				Trans: []database.Tx{
					{From: alice, To: bob, Amount: decimal.NewFromInt(7), TimeStamp: 1, Kind: database.KindTransfer},
				},
				TimeStamp: 1,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %v", failed, testID, err)
			}
			if err := strg.Write(database.NewBlockData(block)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to store the block: %v", failed, testID, err)
			}

			var out bytes.Buffer
			if err := commands.Validate(&out, gen, strg); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate: %v", failed, testID, err)
			}
			if !strings.Contains(out.String(), "height[2]") {
				t.Fatalf("\t%s\tTest %d:\tShould report height 2: %s", failed, testID, out.String())
			}
			t.Logf("\t%s\tTest %d:\tShould validate.", success, testID)

			out.Reset()
			if err := commands.Balances(&out, string(bob), gen, strg); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould print balances: %v", failed, testID, err)
			}
			if !strings.Contains(out.String(), "7.00000000") {
				t.Fatalf("\t%s\tTest %d:\tShould show bob with 7: %s", failed, testID, out.String())
			}
			t.Logf("\t%s\tTest %d:\tShould show bob with 7.", success, testID)

			out.Reset()
			if err := commands.Transactions(&out, string(alice), gen, strg); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould print transactions: %v", failed, testID, err)
			}
			if strings.Count(out.String(), "\n") != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould print one transaction: %s", failed, testID, out.String())
			}
			t.Logf("\t%s\tTest %d:\tShould print one transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a stored block was tampered with.", testID)
		{
			strg := memory.New()

			block, err := database.POW(context.Background(), database.POWArgs{
				Difficulty: gen.Difficulty,
				PrevBlock:  database.GenesisBlock(gen.TimeStamp()),
				Trans: []database.Tx{
					{From: alice, To: bob, Amount: decimal.NewFromInt(7), TimeStamp: 1, Kind: database.KindTransfer},
				},
				TimeStamp: 1,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %v", failed, testID, err)
			}

			bd := database.NewBlockData(block)
			bd.Trans = []database.Tx{
				{From: alice, To: bob, Amount: decimal.NewFromInt(700), TimeStamp: 1, Kind: database.KindTransfer},
			}
			if err := strg.Write(bd); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to store the block: %v", failed, testID, err)
			}

			err = commands.Validate(&bytes.Buffer{}, gen, strg)
			if !database.IsChainIntegrity(err) {
				t.Fatalf("\t%s\tTest %d:\tShould report an integrity error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report an integrity error.", success, testID)
		}
	}
}
