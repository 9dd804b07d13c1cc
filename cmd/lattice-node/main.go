// Command lattice-node runs a block-lattice ledger node.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/tolelom/latticenode/config"
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/crypto/certgen"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/ledger"
	"github.com/tolelom/latticenode/logging"
	"github.com/tolelom/latticenode/network"
	"github.com/tolelom/latticenode/processing"
	"github.com/tolelom/latticenode/rpc"
	"github.com/tolelom/latticenode/storage"
	"github.com/tolelom/latticenode/store"
	"github.com/tolelom/latticenode/wallet"
)

var (
	configFlag = &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.toml", Usage: "path to config file"}
	keyFlag    = &cli.StringFlag{Name: "key", Aliases: []string{"k"}, Value: "node.key", Usage: "path to node keystore file"}
)

func main() {
	app := &cli.App{
		Name:  "lattice-node",
		Usage: "a block-lattice ledger node",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the node",
				Flags: []cli.Flag{configFlag, keyFlag},
				Action: func(c *cli.Context) error {
					return runNode(c.String("config"), c.String("key"))
				},
			},
			{
				Name:  "genkey",
				Usage: "generate a new node key and exit",
				Flags: []cli.Flag{keyFlag},
				Action: func(c *cli.Context) error {
					return genKey(c.String("key"))
				},
			},
			{
				Name:      "gencerts",
				Usage:     "generate a CA + node TLS cert pair for mTLS",
				ArgsUsage: "<output-dir>",
				Flags:     []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("gencerts requires exactly one argument: the output directory")
					}
					return genCerts(c.String("config"), c.Args().Get(0))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func password() string {
	p := os.Getenv("LATTICE_PASSWORD")
	if p == "" {
		log.Println("WARNING: LATTICE_PASSWORD not set — keystore will use an empty password")
	}
	return p
}

func genKey(keyPath string) error {
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(keyPath, password(), w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("Generated key. Account: %s\n", w.PubKey())
	fmt.Printf("Saved to: %s\n", keyPath)
	return nil
}

func genCerts(cfgPath, outDir string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := certgen.GenerateAll(outDir, cfg.NodeID, nil); err != nil {
		return fmt.Errorf("gencerts: %w", err)
	}
	fmt.Printf("Certificates generated in %s for node %q\n", outDir, cfg.NodeID)
	return nil
}

func runNode(cfgPath, keyPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	privKey, err := wallet.LoadKey(keyPath, password())
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	constants, err := buildConstants(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("ledger constants: %w", err)
	}

	// ---- open store ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	st, err := storage.NewLevelStore(cfg.DataDir + "/chain")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// ---- logging ----
	baseLog, err := logging.New(false)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer baseLog.Sync()
	ledgerLog := logging.Named(baseLog, "ledger")

	// ---- events ----
	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventBlockProcessed, func(ev events.Event) {
		ledgerLog.Debugw("block processed", "hash", ev.Hash, "account", ev.Account, "data", ev.Data)
	})
	emitter.Subscribe(events.EventRolledBack, func(ev events.Event) {
		ledgerLog.Infow("block rolled back", "hash", ev.Hash, "account", ev.Account)
	})
	emitter.Subscribe(events.EventBlockCemented, func(ev events.Event) {
		ledgerLog.Debugw("block cemented", "hash", ev.Hash, "account", ev.Account, "data", ev.Data)
	})
	emitter.Subscribe(events.EventBatchCemented, func(ev events.Event) {
		ledgerLog.Infow("cementation batch complete", "data", ev.Data)
	})

	// ---- ledger ----
	lg := ledger.New(st, constants, ledger.Config{RollbackMaxBlocks: cfg.Ledger.Rollback.MaxBlocks}, emitter)

	// ---- genesis (if fresh chain) ----
	if err := ensureGenesis(lg, constants); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	// ---- confirming set ----
	confirming := processing.NewConfirmingSet(st, lg.Queue, emitter, cfg.Ledger.ConfirmingSet.MaxBlocks)
	confirmingDone := make(chan struct{})
	confirmingCtx, cancelConfirming := context.WithCancel(context.Background())
	go func() {
		defer close(confirmingDone)
		confirming.Run(confirmingCtx)
	}()

	// ---- block processor ----
	processorCfg := processing.Config{
		QueueCapacity: cfg.Ledger.BlockProcessor.MaxQueue,
		BatchSize:     cfg.Ledger.BlockProcessor.BatchSize,
		UncheckedCap:  cfg.Ledger.Unchecked.MaxSize,
	}
	processor := processing.NewBlockProcessor(lg, confirming, processorCfg)
	processorCtx, cancelProcessor := context.WithCancel(context.Background())
	processorDone := make(chan struct{})
	go func() {
		defer close(processorDone)
		processor.Run(processorCtx)
	}()

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for P2P")
	}

	// ---- network ----
	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	node := network.NewNode(cfg.NodeID, p2pAddr, processor, tlsCfg, logging.Named(baseLog, "network"))
	if err := node.Start(); err != nil {
		return fmt.Errorf("p2p start: %w", err)
	}
	defer node.Stop()
	log.Printf("P2P listening on %s", p2pAddr)

	// ---- connect to seed peers ----
	for _, sp := range cfg.SeedPeers {
		if err := node.AddPeer(sp.ID, sp.Addr); err != nil {
			log.Printf("seed peer %s (%s): %v", sp.ID, sp.Addr, err)
			continue
		}
		log.Printf("Connected to seed peer %s (%s)", sp.ID, sp.Addr)
	}

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(lg, st)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken, logging.Named(baseLog, "rpc"))
	if err := rpcServer.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	log.Printf("Node running (node ID: %s, account: %s)", cfg.NodeID, privKey.Public().Account().Hex())

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	// 1. Stop accepting new blocks first.
	processor.Stop()
	cancelProcessor()
	<-processorDone

	// 2. Let cementation drain, then stop it.
	confirming.Stop()
	cancelConfirming()
	<-confirmingDone

	// 3. Deferred calls run in LIFO: rpcServer.Stop → node.Stop → st.Close
	log.Println("Shutdown complete.")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildConstants translates the TOML-facing LedgerConfig into the
// core.LedgerConstants the ledger is constructed with (spec §9: "global
// singletons ... modelled as configuration passed through constructor").
func buildConstants(lc config.LedgerConfig) (core.LedgerConstants, error) {
	genesisAccount, err := crypto.AccountFromHex(lc.GenesisAccount)
	if err != nil {
		return core.LedgerConstants{}, fmt.Errorf("genesis_account: %w", err)
	}
	burnAccount, err := crypto.AccountFromHex(lc.BurnAccount)
	if err != nil {
		return core.LedgerConstants{}, fmt.Errorf("burn_account: %w", err)
	}
	genesisBytes, err := hex.DecodeString(lc.GenesisBlock)
	if err != nil {
		return core.LedgerConstants{}, fmt.Errorf("genesis_block: %w", err)
	}
	genesisBlock, err := core.DecodeBlock(core.BlockState, genesisBytes)
	if err != nil {
		return core.LedgerConstants{}, fmt.Errorf("genesis_block: decode: %w", err)
	}

	signers := make([]core.EpochSigner, 0, len(lc.EpochSigners))
	for _, s := range lc.EpochSigners {
		account, err := crypto.AccountFromHex(s.Account)
		if err != nil {
			return core.LedgerConstants{}, fmt.Errorf("epoch_signers: account: %w", err)
		}
		link, err := core.HashFromHex(s.Link)
		if err != nil {
			return core.LedgerConstants{}, fmt.Errorf("epoch_signers: link: %w", err)
		}
		signers = append(signers, core.EpochSigner{Epoch: core.Epoch(s.Epoch), Account: account, Link: link})
	}

	return core.LedgerConstants{
		GenesisAccount: genesisAccount,
		GenesisBlock:   genesisBlock,
		BurnAccount:    burnAccount,
		EpochSigners:   signers,
		Work:           crypto.WorkThresholdsStub,
	}, nil
}

// ensureGenesis commits the configured genesis block on an empty store. A
// non-empty store (the genesis account already opened) means this is a
// restart, not a first run, so genesis is left untouched.
func ensureGenesis(lg *ledger.Ledger, constants core.LedgerConstants) error {
	read := lg.Store.NewRead()
	_, exists, err := read.GetAccount(constants.GenesisAccount)
	read.Discard()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, status, err := lg.Process(context.Background(), store.WriterBootstrap, constants.GenesisBlock)
	if err != nil {
		return err
	}
	if status != core.StatusProgress {
		return fmt.Errorf("genesis block rejected: %s", status)
	}
	log.Printf("Genesis block committed: %s", constants.GenesisBlock.ComputeHash().Hex())
	return nil
}
