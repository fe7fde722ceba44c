// Package config loads the devnode configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chainforge/devnode/framework/evm"
	"github.com/chainforge/devnode/framework/preflight"
	"github.com/chainforge/devnode/framework/types"
	"github.com/chainforge/devnode/framework/wallet"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// FileNames are the configuration files looked up in the working directory, in order.
var FileNames = []string{"devnode.toml", "devnode.yaml", "devnode.yml"}

// Config is the devnode configuration.
type Config struct {
	// Project is the compose project name shared by the node and the compiler.
	Project  string         `toml:"project" yaml:"project"`
	LogDir   string         `toml:"log_dir" yaml:"log_dir"`
	Network  Network        `toml:"network" yaml:"network"`
	Node     Service        `toml:"node" yaml:"node"`
	Compiler Service        `toml:"compiler" yaml:"compiler"`
	Polling  Polling        `toml:"polling" yaml:"polling"`
	Funding  Funding        `toml:"funding" yaml:"funding"`
	Miner    types.KeyPair  `toml:"miner" yaml:"miner"`
	Wallets  []types.Wallet `toml:"wallets" yaml:"wallets"`
}

// Network is the set of endpoints of the local devnet.
type Network struct {
	RPCURL      string `toml:"rpc_url" yaml:"rpc_url"`
	CompilerURL string `toml:"compiler_url" yaml:"compiler_url"`
}

// Service is a container group started from compose files.
type Service struct {
	ComposeFiles []string `toml:"compose_files" yaml:"compose_files"`

	// Image is the image prefix of the group's main container.
	Image string `toml:"image" yaml:"image"`

	// Marker must appear in the first compose file, it defaults to Image.
	Marker string `toml:"marker" yaml:"marker"`
}

type Polling struct {
	HealthInterval time.Duration `toml:"health_interval" yaml:"health_interval"`
	HealthAttempts uint          `toml:"health_attempts" yaml:"health_attempts"`
}

type Funding struct {
	// Amount is a decimal amount in the chain's smallest unit.
	Amount          string        `toml:"amount" yaml:"amount"`
	MinHeight       uint64        `toml:"min_height" yaml:"min_height"`
	HeightInterval  time.Duration `toml:"height_interval" yaml:"height_interval"`
	HeightAttempts  uint          `toml:"height_attempts" yaml:"height_attempts"`
	ReceiptInterval time.Duration `toml:"receipt_interval" yaml:"receipt_interval"`
	ReceiptAttempts uint          `toml:"receipt_attempts" yaml:"receipt_attempts"`
}

// Default returns the configuration of a local anvil devnet funded from its first dev account.
func Default() Config {
	return Config{
		Project: "devnode",
		Network: Network{
			RPCURL:      "http://localhost:8545",
			CompilerURL: "http://localhost:3080",
		},
		Node: Service{
			ComposeFiles: []string{"docker-compose.yml"},
			Image:        "ghcr.io/foundry-rs/foundry",
		},
		Compiler: Service{
			ComposeFiles: []string{"docker-compose.compiler.yml"},
			Image:        "ghcr.io/chainforge/solc-http",
		},
		Polling: Polling{
			HealthInterval: time.Second,
			HealthAttempts: 60,
		},
		Funding: Funding{
			Amount:          "50000000000000000000",
			MinHeight:       10,
			HeightInterval:  8 * time.Second,
			HeightAttempts:  300,
			ReceiptInterval: 500 * time.Millisecond,
			ReceiptAttempts: 60,
		},
		Miner: types.KeyPair{
			PublicKey: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			SecretKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		},
		Wallets: []types.Wallet{
			{
				Label: "#0",
				KeyPair: types.KeyPair{
					PublicKey: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
					SecretKey: "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
				},
			},
			{
				Label: "#1",
				KeyPair: types.KeyPair{
					PublicKey: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
					SecretKey: "0x5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
				},
			},
		},
	}
}

// Load reads the configuration at path over the defaults. An empty path looks for one of
// FileNames in the working directory and returns the defaults when there is none.
func Load(path string) (Config, error) {
	if path == "" {
		found, err := find(".")
		if err != nil {
			return Config{}, err
		}
		if found == "" {
			return Default(), nil
		}
		path = found
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		// toml decodes arrays of tables into the existing elements, so default wallets
		// would leak their keys into the configured ones.
		defaultWallets := cfg.Wallets
		cfg.Wallets = nil
		md, err := toml.Decode(string(b), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
		}
		if !md.IsDefined("wallets") {
			cfg.Wallets = defaultWallets
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to unmarshal %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	return cfg, nil
}

func find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("looking up config: %w", err)
		}
	}
	return "", nil
}

// Validate reports every problem of the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Project == "" {
		result = multierror.Append(result, errors.New("project must be set"))
	}
	if _, err := url.ParseRequestURI(c.Network.RPCURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("network.rpc_url: %w", err))
	}

	for name, svc := range map[string]Service{"node": c.Node, "compiler": c.Compiler} {
		if len(svc.ComposeFiles) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s.compose_files must not be empty", name))
		}
		if svc.Image == "" {
			result = multierror.Append(result, fmt.Errorf("%s.image must be set", name))
		}
	}

	if c.Polling.HealthInterval <= 0 {
		result = multierror.Append(result, errors.New("polling.health_interval must be positive"))
	}
	if c.Polling.HealthAttempts == 0 {
		result = multierror.Append(result, errors.New("polling.health_attempts must be positive"))
	}

	if _, err := c.Funding.amount(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Funding.HeightInterval <= 0 {
		result = multierror.Append(result, errors.New("funding.height_interval must be positive"))
	}
	if c.Funding.HeightAttempts == 0 {
		result = multierror.Append(result, errors.New("funding.height_attempts must be positive"))
	}

	if c.Miner.PublicKey == "" || c.Miner.SecretKey == "" {
		result = multierror.Append(result, errors.New("miner key pair must be set"))
	} else if err := checkKeyPair(c.Miner); err != nil {
		result = multierror.Append(result, fmt.Errorf("miner: %w", err))
	}
	for i, w := range c.Wallets {
		if w.PublicKey == "" {
			result = multierror.Append(result, fmt.Errorf("wallets[%d].public_key must be set", i))
			continue
		}
		if w.SecretKey == "" {
			continue
		}
		if err := checkKeyPair(w.KeyPair); err != nil {
			result = multierror.Append(result, fmt.Errorf("wallets[%d]: %w", i, err))
		}
	}
	return result.ErrorOrNil()
}

// checkKeyPair verifies that the secret key of kp controls its public key.
func checkKeyPair(kp types.KeyPair) error {
	addr, err := evm.AddressFromKey(kp.SecretKey)
	if err != nil {
		return fmt.Errorf("secret_key: %w", err)
	}
	if !strings.EqualFold(addr, kp.PublicKey) {
		return fmt.Errorf("secret_key controls %s, not %s", addr, kp.PublicKey)
	}
	return nil
}

func (f Funding) amount() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(f.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("funding.amount %q must be a positive integer", f.Amount)
	}
	return amount, nil
}

// FundingConfig returns the funding parameters of c.
func (c Config) FundingConfig() (wallet.FundingConfig, error) {
	amount, err := c.Funding.amount()
	if err != nil {
		return wallet.FundingConfig{}, err
	}
	return wallet.FundingConfig{
		Amount:         amount,
		MinHeight:      c.Funding.MinHeight,
		HeightInterval: c.Funding.HeightInterval,
		HeightAttempts: c.Funding.HeightAttempts,
	}, nil
}

// Descriptors returns the files that must be in place before the devnet starts.
func (c Config) Descriptors() []preflight.Descriptor {
	var ds []preflight.Descriptor
	for _, svc := range []Service{c.Node, c.Compiler} {
		if len(svc.ComposeFiles) == 0 {
			continue
		}
		marker := svc.Marker
		if marker == "" {
			marker = svc.Image
		}
		ds = append(ds, preflight.Descriptor{Path: svc.ComposeFiles[0], Marker: marker})
	}
	return ds
}
