// Package wallet funds the development wallets of a devnet from its miner account.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainforge/devnode/framework/types"
	"go.uber.org/zap"
)

// MinerLabel labels the miner account in funding reports.
const MinerLabel = "Miner"

// FundingConfig controls a funding run.
type FundingConfig struct {
	// Amount is transferred to every wallet.
	Amount *big.Int

	// MinHeight is the chain height to wait for before funding.
	MinHeight      uint64
	HeightInterval time.Duration
	HeightAttempts uint
}

// DefaultFundingConfig waits for height 10, polling every 8 seconds for up to 300 attempts,
// and sends 50 ether to every wallet.
func DefaultFundingConfig() FundingConfig {
	amount, _ := new(big.Int).SetString("50000000000000000000", 10)
	return FundingConfig{
		Amount:         amount,
		MinHeight:      10,
		HeightInterval: 8 * time.Second,
		HeightAttempts: 300,
	}
}

// Fund waits for the chain to reach cfg.MinHeight and then funds every wallet from the miner in
// order, reporting each resulting balance. The first wallet that cannot be funded aborts the
// sequence with a *FundingError.
func Fund(
	ctx context.Context,
	client types.ChainClient,
	reporter types.Reporter,
	wallets []types.Wallet,
	miner types.KeyPair,
	cfg FundingConfig,
) ([]types.WalletBalance, error) {
	heightOpts := types.HeightOptions{Interval: cfg.HeightInterval, Attempts: cfg.HeightAttempts}
	if err := client.AwaitHeight(ctx, cfg.MinHeight, heightOpts); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &HeightTimeoutError{Height: cfg.MinHeight, Attempts: cfg.HeightAttempts, Err: err}
	}

	minerBalance, err := client.Balance(ctx, miner.PublicKey)
	if err != nil {
		return nil, &FundingError{Label: MinerLabel, Err: fmt.Errorf("querying balance: %w", err)}
	}
	reporter.Wallet(MinerLabel, miner, minerBalance)

	balances := make([]types.WalletBalance, 0, len(wallets))
	for i, w := range wallets {
		label := w.Label
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		balance, err := fundOne(ctx, client, w, miner, cfg.Amount)
		if err != nil {
			return balances, &FundingError{Label: label, Err: err}
		}
		reporter.Wallet(label, w.KeyPair, balance)
		balances = append(balances, types.WalletBalance{Wallet: w, Balance: balance})
	}
	return balances, nil
}

func fundOne(ctx context.Context, client types.ChainClient, w types.Wallet, miner types.KeyPair, amount *big.Int) (*big.Int, error) {
	if err := client.SetKeyPair(miner); err != nil {
		return nil, fmt.Errorf("setting miner key: %w", err)
	}
	if _, err := client.Spend(ctx, amount, w.PublicKey); err != nil {
		return nil, fmt.Errorf("sending %s: %w", amount, err)
	}
	balance, err := client.Balance(ctx, w.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("querying balance: %w", err)
	}
	return balance, nil
}

// Client is a ChainClient holding a connection that must be released.
type Client interface {
	types.ChainClient
	Close()
}

// Dialer connects to the chain.
type Dialer func(ctx context.Context) (Client, error)

// SequencerConfig holds everything a Sequencer needs.
type SequencerConfig struct {
	Logger   *zap.Logger
	Dial     Dialer
	Reporter types.Reporter
	Wallets  []types.Wallet
	Miner    types.KeyPair
	Funding  FundingConfig
}

// Sequencer funds the configured wallets, connecting to the chain only once funding starts.
type Sequencer struct {
	cfg    SequencerConfig
	logger *zap.Logger
}

// NewSequencer returns a Sequencer for cfg.
func NewSequencer(cfg SequencerConfig) *Sequencer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "funding")),
	}
}

// Fund dials the chain and funds the wallets.
func (s *Sequencer) Fund(ctx context.Context) ([]types.WalletBalance, error) {
	client, err := s.cfg.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to chain: %w", err)
	}
	defer client.Close()

	s.logger.Debug("funding wallets",
		zap.Int("wallets", len(s.cfg.Wallets)),
		zap.Uint64("min_height", s.cfg.Funding.MinHeight),
		zap.Stringer("amount", s.cfg.Funding.Amount),
	)
	s.cfg.Reporter.Step(fmt.Sprintf("Waiting for block %d", s.cfg.Funding.MinHeight))
	return Fund(ctx, client, s.cfg.Reporter, s.cfg.Wallets, s.cfg.Miner, s.cfg.Funding)
}
