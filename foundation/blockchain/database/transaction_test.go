package database_test

import (
	"testing"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

func Test_TxValidate(t *testing.T) {
	type table struct {
		name  string
		tx    database.Tx
		field string
	}

	tt := []table{
		{name: "good", tx: transfer(alice, bob, "10.12345678", 1)},
		{name: "zero", tx: transfer(alice, bob, "0", 1), field: "amount"},
		{name: "negative", tx: transfer(alice, bob, "-5", 1), field: "amount"},
		{name: "precision", tx: transfer(alice, bob, "0.123456789", 1), field: "amount"},
		{name: "self", tx: transfer(alice, alice, "1", 1), field: "to"},
		{name: "badfrom", tx: transfer("QRCnope", bob, "1", 1), field: "from"},
		{name: "badto", tx: transfer(alice, "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", "1", 1), field: "to"},
		{name: "badkind", tx: database.Tx{From: alice, To: bob, Amount: decimal.NewFromInt(1), Kind: "gift"}, field: "kind"},
		{name: "mint", tx: database.Tx{From: alice, To: bob, Amount: decimal.NewFromInt(1), Kind: database.KindReward}, field: "from"},
		{name: "system", tx: database.Tx{From: database.SystemAddress, To: bob, Amount: decimal.NewFromInt(1), Kind: database.KindTransfer}, field: "from"},
		{name: "faucet", tx: database.Tx{From: database.SystemAddress, To: bob, Amount: decimal.NewFromInt(100), Kind: database.KindFaucet}},
	}

	t.Log("Given the need to validate transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
				{
					err := tst.tx.Validate()

					if tst.field == "" {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)
						return
					}

					ite := database.GetInvalidTransaction(err)
					if ite == nil {
						t.Fatalf("\t%s\tTest %d:\tShould get an invalid transaction error: %v", failed, testID, err)
					}
					if ite.Field != tst.field {
						t.Fatalf("\t%s\tTest %d:\tShould flag the %s field, got %s.", failed, testID, tst.field, ite.Field)
					}
					t.Logf("\t%s\tTest %d:\tShould flag the %s field.", success, testID, tst.field)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_TxID(t *testing.T) {
	t.Log("Given the need to identify transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the same amount is written two ways.", testID)
		{
			tx1 := transfer(alice, bob, "10", 1)
			tx2 := transfer(alice, bob, "10.00000000", 1)

			if tx1.ID() != tx2.ID() {
				t.Fatalf("\t%s\tTest %d:\tShould get the same id: %s %s", failed, testID, tx1.ID(), tx2.ID())
			}
			t.Logf("\t%s\tTest %d:\tShould get the same id.", success, testID)

			tx3 := transfer(alice, bob, "10", 2)
			if tx1.ID() == tx3.ID() {
				t.Fatalf("\t%s\tTest %d:\tShould get a different id for a different timestamp.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get a different id for a different timestamp.", success, testID)
		}
	}
}
