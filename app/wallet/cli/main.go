// This program is a wallet for the QRC ledger. It manages a private key and
// signs transactions it submits to a node.
package main

import "github.com/qrcledger/node/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
