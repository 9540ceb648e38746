package commands

import (
	"fmt"
	"io"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
)

// Balances prints the confirmed balances. An empty address prints every
// account.
func Balances(w io.Writer, address string, gen genesis.Genesis, strg database.Storage) error {
	db, err := database.New(gen, strg, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.Tip().Hash())

	if address != "" {
		addr, err := database.ToAddress(address)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", addr, database.FormatAmount(db.Balance(addr)))
		return nil
	}

	for _, acct := range db.Accounts() {
		fmt.Fprintf(w, "Address: %s  Balance: %s\n", acct.Address, database.FormatAmount(acct.Balance))
	}

	return nil
}

// Transactions prints the confirmed transactions in chain order. An empty
// address prints every transaction.
func Transactions(w io.Writer, address string, gen genesis.Genesis, strg database.Storage) error {
	blocks, err := database.ReadAll(gen, strg)
	if err != nil {
		return err
	}

	addr := database.Address(address)
	for _, block := range blocks {
		for _, tx := range block.Trans {
			if address != "" && tx.From != addr && tx.To != addr {
				continue
			}
			fmt.Fprintf(w, "Block: %d  ID: %s  Kind: %s  From: %s  To: %s  Amount: %s\n",
				block.Header.Number, tx.ID(), tx.Kind, tx.From, tx.To, database.FormatAmount(tx.Amount))
		}
	}

	return nil
}
