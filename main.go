package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/api"
	"github.com/mining-pool/pow-ledger/config"
	"github.com/mining-pool/pow-ledger/ledger"
	"github.com/mining-pool/pow-ledger/storage"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/mining-pool/pow-ledger/utils"
)

var log = logging.Logger("main")

func main() {
	path := "config.jsonc"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(path); err != nil {
		log.Fatal(err)
	}
}

// run returns instead of exiting so the deferred cleanup always happens.
func run(path string) error {
	conf := config.DefaultOptions()
	if utils.FileExists(path) {
		var err error
		conf, err = config.Load(path)
		if err != nil {
			return err
		}
	} else {
		log.Warnf("%s not found, running with defaults", path)
	}

	if err := logging.SetLogLevel("*", conf.LogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *storage.DB
	sinks := make([]ledger.BlockSink, 0)
	if conf.Storage != nil {
		var err error
		db, err = storage.NewStorage(ctx, conf.Storage)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	chain, err := ledger.NewChain(ctx, conf.Chain, conf.Mining, sinks...)
	if err != nil {
		return err
	}

	if conf.Demo {
		runDemo(ctx, chain)
	}

	log.Info("chain summary: ", utils.JsonifyIndentString(chain.Summary()))

	if conf.API == nil {
		return nil
	}

	server := api.NewAPIServer(conf, chain, db)
	if err := server.Serve(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Warn("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runDemo mines three rounds between three parties and prints the outcome.
func runDemo(ctx context.Context, chain *ledger.Chain) {
	alice := "Alice_" + utils.Sha256Hex("alice")[:16]
	bob := "Bob_" + utils.Sha256Hex("bob")[:16]
	charlie := "Charlie_" + utils.Sha256Hex("charlie")[:16]

	rounds := []struct {
		miner string
		txs   []*types.Transaction
	}{
		{alice, []*types.Transaction{
			types.NewTransaction(alice, bob, 25),
			types.NewTransaction(bob, charlie, 10),
		}},
		{bob, []*types.Transaction{
			types.NewTransaction(charlie, alice, 5),
			types.NewTransaction(alice, bob, 15),
			types.NewTransaction(bob, charlie, 8),
		}},
		{charlie, []*types.Transaction{
			types.NewTransaction(charlie, bob, 20),
		}},
	}

	for _, round := range rounds {
		for _, tx := range round.txs {
			if err := chain.SubmitTransaction(tx); err != nil {
				log.Warn("demo transaction rejected: ", err)
			}
		}

		block, err := chain.MinePendingTransactions(ctx, round.miner)
		if err != nil {
			log.Error(err)
			return
		}
		log.Infof("block #%d: %s (nonce %d)", block.Index(), block.Hash(), block.Nonce())
	}

	log.Info("chain valid: ", chain.IsChainValid())
	for _, addr := range []string{alice, bob, charlie} {
		log.Infof("balance %s: %s", addr, utils.FormatAmount(chain.GetBalance(addr)))
	}
}
