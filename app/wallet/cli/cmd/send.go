package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
	nonce  uint64
)

// submitTx is the document the node accepts on /v1/tx/submit.
type submitTx struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the value.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "c", 0, "Nonce to sign with, zero asks the node for the next one.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	if nonce == 0 {
		bal, err := fetchBalance(database.PublicKeyToAddress(privateKey.PublicKey), true)
		if err != nil {
			log.Fatal(err)
		}
		nonce = bal.Nonce + 1
	}

	stx, err := signTx(privateKey, to, amount, nonce)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(stx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatal(decodeError(resp))
	}

	var submitted struct {
		TxID string `json:"tx_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		log.Fatal(err)
	}

	fmt.Println(submitted.TxID)
}

// signTx builds the transfer and signs the digest the node verifies.
func signTx(privateKey *ecdsa.PrivateKey, to string, amount string, nonce uint64) (submitTx, error) {
	if nonce == 0 {
		return submitTx{}, errors.New("nonce must be greater than zero")
	}

	value, err := database.ParseAmount(amount)
	if err != nil {
		return submitTx{}, err
	}

	recipient, err := database.ToAddress(to)
	if err != nil {
		return submitTx{}, fmt.Errorf("to: %w", err)
	}

	tx := database.Tx{
		From:   database.PublicKeyToAddress(privateKey.PublicKey),
		To:     recipient,
		Amount: value,
		Nonce:  nonce,
		Kind:   database.KindTransfer,
	}

	if err := tx.Validate(); err != nil {
		return submitTx{}, err
	}

	sig, err := signature.Sign(tx.SigningDigest(), privateKey)
	if err != nil {
		return submitTx{}, err
	}

	stx := submitTx{
		Sender:    string(tx.From),
		Recipient: string(tx.To),
		Amount:    database.FormatAmount(tx.Amount),
		Kind:      string(tx.Kind),
		Nonce:     tx.Nonce,
		Signature: hexutil.Encode(sig),
	}

	return stx, nil
}

// decodeError turns an error response from the node into an error.
func decodeError(resp *http.Response) error {
	var er struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("node returned %s", resp.Status)
	}

	msg := er.Error
	for field, reason := range er.Fields {
		msg += fmt.Sprintf("\n  %s: %s", field, reason)
	}
	if strings.TrimSpace(msg) == "" {
		msg = resp.Status
	}

	return errors.New(msg)
}
