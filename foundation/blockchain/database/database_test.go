package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

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

var (
	alice = database.Address(signature.Address([]byte("alice")))
	bob   = database.Address(signature.Address([]byte("bob")))
	carol = database.Address(signature.Address([]byte("carol")))
)

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start a new chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen constructing a database over empty storage.", testID)
		{
			db, err := database.New(genesis.Default(), memory.New(), nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open database: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to open database.", success, testID)

			if db.Height() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have a chain of length 1, got %d.", failed, testID, db.Height())
			}
			t.Logf("\t%s\tTest %d:\tShould have a chain of length 1.", success, testID)

			tip := db.Tip()
			if tip.Header.Number != 0 || len(tip.Trans) != 0 || tip.Header.PrevBlockHash != signature.ZeroHash {
				t.Fatalf("\t%s\tTest %d:\tShould have an empty genesis block linked to the zero hash: %+v", failed, testID, tip.Header)
			}
			t.Logf("\t%s\tTest %d:\tShould have an empty genesis block linked to the zero hash.", success, testID)

			if err := db.Validate(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate the genesis chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the genesis chain.", success, testID)
		}
	}
}

func Test_POW(t *testing.T) {
	t.Log("Given the need to solve blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen solving the same candidate twice at difficulty 2.", testID)
		{
			args := database.POWArgs{
				Difficulty: 2,
				PrevBlock:  database.GenesisBlock(0),
				Trans:      []database.Tx{transfer(alice, bob, "10", 1)},
				TimeStamp:  1000,
			}

			b1, err := database.POW(context.Background(), args)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to solve the block: %v", failed, testID, err)
			}
			b2, err := database.POW(context.Background(), args)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to solve the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to solve the block.", success, testID)

			if b1.Hash() != b2.Hash() || b1.Header.Nonce != b2.Header.Nonce {
				t.Fatalf("\t%s\tTest %d:\tShould get the same nonce and hash: %d/%s %d/%s", failed, testID, b1.Header.Nonce, b1.Hash(), b2.Header.Nonce, b2.Hash())
			}
			t.Logf("\t%s\tTest %d:\tShould get the same nonce and hash.", success, testID)

			if b1.Hash()[:2] != "00" || !b1.IsSolved() || b1.ComputeHash() != b1.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould have a hash starting with 00: %s", failed, testID, b1.Hash())
			}
			t.Logf("\t%s\tTest %d:\tShould have a hash starting with 00.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen solving at difficulty 0.", testID)
		{
			b, err := database.POW(context.Background(), database.POWArgs{PrevBlock: database.GenesisBlock(0), TimeStamp: 1})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to solve the block: %v", failed, testID, err)
			}
			if b.Header.Nonce != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first nonce, got %d.", failed, testID, b.Header.Nonce)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the first nonce.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen cancelling an impossible search.", testID)
		{
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := database.POW(ctx, database.POWArgs{Difficulty: 64, PrevBlock: database.GenesisBlock(0)})
			if !errors.Is(err, database.ErrMiningAborted) {
				t.Fatalf("\t%s\tTest %d:\tShould get a mining aborted error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a mining aborted error.", success, testID)
		}
	}
}

func Test_Append(t *testing.T) {
	t.Log("Given the need to append blocks to the chain.")
	{
		gen := genesis.Default()
		gen.Difficulty = 1

		db, err := database.New(gen, memory.New(), nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
		}

		trans := []database.Tx{
			transfer(alice, bob, "10", 1),
			transfer(bob, carol, "4", 2),
		}

		b1, err := database.POW(context.Background(), database.POWArgs{Difficulty: 1, PrevBlock: db.Tip(), Trans: trans})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to solve a block: %v", failed, err)
		}

		testID := 0
		t.Logf("\tTest %d:\tWhen appending a block with broken links.", testID)
		{
			tampered := b1
			tampered.Trans = []database.Tx{transfer(alice, bob, "1000", 1)}

			wrongDiff, err := database.POW(context.Background(), database.POWArgs{Difficulty: 0, PrevBlock: db.Tip(), Trans: trans})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to solve a block: %v", failed, testID, err)
			}

			skipped, err := database.POW(context.Background(), database.POWArgs{Difficulty: 1, PrevBlock: b1, Trans: trans})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to solve a block: %v", failed, testID, err)
			}

			for name, b := range map[string]database.Block{"tampered": tampered, "difficulty": wrongDiff, "skipped": skipped} {
				err := db.Append(b)
				if !database.IsChainLinkage(err) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the %s block with a linkage error: %v", failed, testID, name, err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the %s block with a linkage error.", success, testID, name)
			}

			if db.Height() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain untouched.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the chain untouched.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen appending a valid block.", testID)
		{
			if err := db.Append(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to append the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to append the block.", success, testID)

			if err := db.Append(b1); !database.IsChainLinkage(err) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the same block twice: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the same block twice.", success, testID)

			exp := map[database.Address]string{alice: "-10", bob: "6", carol: "4"}
			for addr, want := range exp {
				bal := db.Balance(addr)
				replay := db.ReplayBalance(addr, nil)
				if !bal.Equal(decimal.RequireFromString(want)) || !bal.Equal(replay) {
					t.Fatalf("\t%s\tTest %d:\tShould have balance %s for %s, got %s replay %s.", failed, testID, want, addr, bal, replay)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould have matching incremental and replayed balances.", success, testID)

			pending := []database.Tx{transfer(carol, alice, "1.5", 3)}
			if got := db.ReplayBalance(carol, pending); !got.Equal(decimal.RequireFromString("2.5")) {
				t.Fatalf("\t%s\tTest %d:\tShould fold pending transactions into the balance, got %s.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould fold pending transactions into the balance.", success, testID)

			if db.TotalTransactions() != 2 || len(db.RecentTransactions(20)) != 2 || len(db.RecentBlocks(10)) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould report two transactions over two blocks.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report two transactions over two blocks.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen validating a chain with a tampered block.", testID)
		{
			if err := db.Validate(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate the stored chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the stored chain.", success, testID)

			blocks := db.Blocks(0, 10)
			blocks[1].Trans = []database.Tx{transfer(alice, bob, "1000", 1)}

			err := database.ValidateChain(blocks)
			if !database.IsChainIntegrity(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get a chain integrity error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a chain integrity error.", success, testID)
		}
	}
}

func Test_Replay(t *testing.T) {
	t.Log("Given the need to reload a chain from storage.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen opening a database over populated storage.", testID)
		{
			gen := genesis.Default()
			gen.Difficulty = 1
			strg := memory.New()

			db, err := database.New(gen, strg, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open database: %v", failed, testID, err)
			}

			for i := range 3 {
				b, err := database.POW(context.Background(), database.POWArgs{
					Difficulty: 1,
					PrevBlock:  db.Tip(),
					Trans:      []database.Tx{transfer(alice, bob, "2", uint64(i))},
				})
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to solve a block: %v", failed, testID, err)
				}
				if err := db.Append(b); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to append a block: %v", failed, testID, err)
				}
			}

			db2, err := database.New(gen, strg, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen database: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to reopen database.", success, testID)

			if db2.Tip().Hash() != db.Tip().Hash() || !db2.Balance(bob).Equal(decimal.NewFromInt(6)) {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild the same chain and balances.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild the same chain and balances.", success, testID)
		}
	}
}

// =============================================================================

func transfer(from database.Address, to database.Address, amount string, ts uint64) database.Tx {
	return database.Tx{
		From:      from,
		To:        to,
		Amount:    decimal.RequireFromString(amount),
		TimeStamp: ts,
		Kind:      database.KindTransfer,
	}
}
