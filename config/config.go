package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TLSConfig holds paths to the PEM files needed for mTLS.
// When nil or all paths empty, the node falls back to plain TCP.
type TLSConfig struct {
	CACert   string `toml:"ca_cert"`   // CA certificate PEM path
	NodeCert string `toml:"node_cert"` // node certificate PEM path
	NodeKey  string `toml:"node_key"`  // node private key PEM path
}

// SeedPeer identifies a remote node to connect to on startup.
type SeedPeer struct {
	ID   string `toml:"id"`   // remote node ID
	Addr string `toml:"addr"` // host:port
}

// BlockProcessorConfig tunes the BlockProcessor (spec §4.4, §6).
type BlockProcessorConfig struct {
	MaxQueue  int `toml:"max_queue"`  // per-source bound; Forced ignores it
	Threads   int `toml:"threads"`    // currently always 1 (single canonical writer); reserved
	BatchSize int `toml:"batch_size"` // blocks the processor takes per drain pass
}

// UncheckedConfig tunes UncheckedMap (spec §4.5, §6).
type UncheckedConfig struct {
	MaxSize int `toml:"max_size"`
}

// RollbackConfig tunes RollbackPlanner (spec §4.3, §6).
type RollbackConfig struct {
	MaxBlocks int `toml:"max_blocks"`
}

// ConfirmingSetConfig tunes ConfirmingSet (spec §4.7, §6).
type ConfirmingSetConfig struct {
	BatchSize int `toml:"batch_size"`
	MaxBlocks int `toml:"max_blocks"`
}

// EpochSignerConfig names one epoch's authorised signer and its link magic
// (hex-encoded; spec §4.1 rule 7).
type EpochSignerConfig struct {
	Epoch   uint32 `toml:"epoch"`
	Account string `toml:"account"` // hex-encoded account public key
	Link    string `toml:"link"`    // hex-encoded 32-byte epoch magic
}

// LedgerConfig is §6's "Configuration (recognised options, core-relevant
// subset)" verbatim: everything the ledger core itself reads.
type LedgerConfig struct {
	BlockProcessor BlockProcessorConfig `toml:"block_processor"`
	Unchecked      UncheckedConfig      `toml:"unchecked"`
	Rollback       RollbackConfig       `toml:"rollback"`
	ConfirmingSet  ConfirmingSetConfig  `toml:"confirming_set"`
	EpochSigners   []EpochSignerConfig  `toml:"epoch_signers"`
	GenesisAccount string               `toml:"genesis_account"` // hex
	GenesisBlock   string               `toml:"genesis_block"`   // hex-encoded wire bytes
	BurnAccount    string               `toml:"burn_account"`    // hex
}

// Config holds the whole node's configuration: the core-relevant ledger
// subset plus pass-through sections for the external collaborators §6
// describes only as an interface (RPC, network transport, wallet, TLS).
type Config struct {
	NodeID  string `toml:"node_id"`
	DataDir string `toml:"data_dir"`
	RPCPort int    `toml:"rpc_port"`
	P2PPort int    `toml:"p2p_port"`

	Ledger LedgerConfig `toml:"ledger"`

	SeedPeers    []SeedPeer `toml:"seed_peers"`
	TLS          *TLSConfig `toml:"tls"`
	RPCAuthToken string     `toml:"rpc_auth_token"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:  "node0",
		DataDir: "./data",
		RPCPort: 7076,
		P2PPort: 7075,
		Ledger: LedgerConfig{
			BlockProcessor: BlockProcessorConfig{MaxQueue: 65536, Threads: 1, BatchSize: 256},
			Unchecked:      UncheckedConfig{MaxSize: 65536},
			Rollback:       RollbackConfig{MaxBlocks: 4096},
			ConfirmingSet:  ConfirmingSetConfig{BatchSize: 256, MaxBlocks: 65536},
		},
	}
}

// Load reads a TOML config file from path and validates required fields.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.P2PPort <= 0 || c.P2PPort > 65535 {
		return fmt.Errorf("p2p_port must be 1-65535, got %d", c.P2PPort)
	}
	if c.RPCPort == c.P2PPort {
		return fmt.Errorf("rpc_port and p2p_port must not be the same (%d)", c.RPCPort)
	}
	if err := requireHexAccount("genesis_account", c.Ledger.GenesisAccount); err != nil {
		return err
	}
	if err := requireHexAccount("burn_account", c.Ledger.BurnAccount); err != nil {
		return err
	}
	if c.Ledger.GenesisBlock == "" {
		return fmt.Errorf("ledger.genesis_block must not be empty")
	}
	for i, s := range c.Ledger.EpochSigners {
		if err := requireHexAccount(fmt.Sprintf("epoch_signers[%d].account", i), s.Account); err != nil {
			return err
		}
		if _, err := hex.DecodeString(s.Link); err != nil || len(s.Link) != 64 {
			return fmt.Errorf("epoch_signers[%d].link: must be 64-char hex (32 bytes), got %q", i, s.Link)
		}
	}
	if c.Ledger.Rollback.MaxBlocks <= 0 {
		return fmt.Errorf("ledger.rollback.max_blocks must be positive")
	}
	if c.Ledger.BlockProcessor.BatchSize <= 0 {
		return fmt.Errorf("ledger.block_processor.batch_size must be positive")
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

func requireHexAccount(field, value string) error {
	b, err := hex.DecodeString(value)
	if err != nil || len(b) != 32 {
		return fmt.Errorf("%s: must be 64-char hex (32 bytes), got %q", field, value)
	}
	return nil
}

// Save writes the config to path as formatted TOML.
func Save(cfg *Config, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
