// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Validate walks every stored block and reports the first block that
// doesn't hold up to its hash, its parent, or its difficulty.
func Validate(w io.Writer, gen genesis.Genesis, strg database.Storage) error {
	blocks, err := database.ReadAll(gen, strg)
	if err != nil {
		return err
	}

	if err := database.ValidateChain(blocks); err != nil {
		return err
	}

	tip := blocks[len(blocks)-1]
	fmt.Fprintf(w, "chain is valid: height[%d]: tip[%s]\n", len(blocks), tip.Hash())

	return nil
}
