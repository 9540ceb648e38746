package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var pending bool

type balance struct {
	Address string      `json:"address"`
	Balance json.Number `json:"balance"`
	Nonce   uint64      `json:"nonce"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&pending, "pending", "n", false, "Include transactions still in the mempool.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	address := database.PublicKeyToAddress(privateKey.PublicKey)
	fmt.Println("For Address:", address)

	bal, err := fetchBalance(address, pending)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(bal.Balance)
}

// fetchBalance asks the node for the balance and last nonce of the address.
func fetchBalance(address database.Address, pending bool) (balance, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s?pending=%t", url, address, pending))
	if err != nil {
		return balance{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return balance{}, decodeError(resp)
	}

	var bal balance
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		return balance{}, err
	}

	return bal, nil
}
