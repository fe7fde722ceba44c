package types

import (
	"context"
	"math/big"
	"time"
)

// HeightOptions bounds how long a ChainClient waits for a block height.
type HeightOptions struct {
	Interval time.Duration
	Attempts uint
}

// TxReceipt identifies a submitted transaction.
type TxReceipt struct {
	Hash        string
	BlockNumber uint64
}

// ChainClient is the subset of blockchain RPC operations needed to fund development wallets.
type ChainClient interface {
	// Balance returns the balance of the given account.
	Balance(ctx context.Context, publicKey string) (*big.Int, error)
	// Spend transfers amount from the active key pair to the recipient and waits for inclusion.
	Spend(ctx context.Context, amount *big.Int, recipient string) (TxReceipt, error)
	// AwaitHeight blocks until the chain reaches at least height or the attempts are exhausted.
	AwaitHeight(ctx context.Context, height uint64, opts HeightOptions) error
	// SetKeyPair sets the key pair used to sign subsequent spends.
	SetKeyPair(kp KeyPair) error
}
