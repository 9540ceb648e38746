// This program performs administrative tasks for the QRC ledger.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/qrcledger/node/app/tooling/admin/commands"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
	"github.com/qrcledger/node/foundation/blockchain/storage"
	"github.com/qrcledger/node/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args  conf.Args
		State struct {
			Storage     string `conf:"default:disk"`
			DBPath      string `conf:"default:zblock/blocks.db"`
			GenesisPath string `conf:"default:zblock/genesis.json"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "QRC ledger administration",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	strg, err := storage.Open(cfg.State.Storage, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open %s storage: %w", cfg.State.Storage, err)
	}
	defer strg.Close()

	log.Infow("admin", "storage", cfg.State.Storage, "path", cfg.State.DBPath)

	return processCommands(cfg.Args, gen, strg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, gen genesis.Genesis, strg database.Storage) error {
	switch args.Num(0) {
	case "validate":
		if err := commands.Validate(os.Stdout, gen, strg); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), gen, strg); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(os.Stdout, args.Num(1), gen, strg); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	default:
		fmt.Println("validate: audit every stored block against its hash, parent and difficulty")
		fmt.Println("bals:     print the confirmed balances, optionally for one address")
		fmt.Println("trans:    print the confirmed transactions, optionally for one address")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}
