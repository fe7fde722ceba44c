package types

import "math/big"

// KeyPair is an account key pair. SecretKey is only ever printed by the development funding report.
type KeyPair struct {
	PublicKey string `toml:"public_key" yaml:"public_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
}

// Wallet is a labelled development account that gets funded from the miner.
type Wallet struct {
	Label   string `toml:"label" yaml:"label"`
	KeyPair `yaml:",inline"`
}

// WalletBalance is the balance of a wallet observed after funding.
type WalletBalance struct {
	Wallet  Wallet
	Balance *big.Int
}
