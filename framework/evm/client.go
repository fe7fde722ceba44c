// Package evm implements the chain client used to fund development wallets on an EVM devnet.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	devtypes "github.com/chainforge/devnode/framework/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	transferGas = 21_000

	defaultReceiptInterval = 500 * time.Millisecond
	defaultReceiptAttempts = 60
)

// ErrHeightNotReached is returned by AwaitHeight when the chain stays below the requested height.
var ErrHeightNotReached = errors.New("chain height not reached")

var _ devtypes.ChainClient = &Client{}

// backend is the part of ethclient.Client used by Client.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Option configures a Client.
type Option func(*Client)

// WithReceiptPolling sets how often and how many times Spend polls for a transaction receipt.
func WithReceiptPolling(interval time.Duration, attempts uint) Option {
	return func(c *Client) {
		if interval > 0 {
			c.receiptInterval = interval
		}
		if attempts > 0 {
			c.receiptAttempts = attempts
		}
	}
}

// Client is a ChainClient backed by an EVM JSON-RPC endpoint.
type Client struct {
	backend backend
	chainID *big.Int
	logger  *zap.Logger

	key  *ecdsa.PrivateKey
	from common.Address

	receiptInterval time.Duration
	receiptAttempts uint
}

// Dial dials the given RPC URL and resolves the chain ID.
func Dial(ctx context.Context, rpcURL string, logger *zap.Logger, opts ...Option) (*Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return newClient(c, chainID, logger, opts...), nil
}

func newClient(b backend, chainID *big.Int, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		backend:         b,
		chainID:         chainID,
		logger:          logger.With(zap.String("component", "evm"), zap.String("chain_id", chainID.String())),
		receiptInterval: defaultReceiptInterval,
		receiptAttempts: defaultReceiptAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying client.
func (c *Client) Close() {
	c.backend.Close()
}

// Balance returns the latest balance of an account in wei.
func (c *Client) Balance(ctx context.Context, publicKey string) (*big.Int, error) {
	addr, err := parseAddress(publicKey)
	if err != nil {
		return nil, err
	}
	bal, err := c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

// SetKeyPair sets the key pair that signs subsequent spends. The public key must be the
// address derived from the secret key.
func (c *Client) SetKeyPair(kp devtypes.KeyPair) error {
	pk, err := parseHexPrivKey(kp.SecretKey)
	if err != nil {
		return err
	}
	from := crypto.PubkeyToAddress(pk.PublicKey)
	if !sameAddress(from.Hex(), kp.PublicKey) {
		return fmt.Errorf("secret key controls %s, not %s", from.Hex(), kp.PublicKey)
	}
	c.key = pk
	c.from = from
	return nil
}

// Spend transfers amount wei to recipient and waits until the transfer is included in a block.
func (c *Client) Spend(ctx context.Context, amount *big.Int, recipient string) (devtypes.TxReceipt, error) {
	if c.key == nil {
		return devtypes.TxReceipt{}, errors.New("no key pair set")
	}
	to, err := parseAddress(recipient)
	if err != nil {
		return devtypes.TxReceipt{}, err
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return devtypes.TxReceipt{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return devtypes.TxReceipt{}, fmt.Errorf("suggest gas price: %w", err)
	}

	// legacy tx suitable for local networks
	tx := types.NewTransaction(nonce, to, amount, transferGas, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return devtypes.TxReceipt{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return devtypes.TxReceipt{}, fmt.Errorf("send tx: %w", err)
	}
	c.logger.Debug("sent transfer", zap.String("tx", signed.Hash().Hex()), zap.String("to", to.Hex()), zap.Stringer("amount", amount))

	receipt, err := c.waitForReceipt(ctx, signed.Hash())
	if err != nil {
		return devtypes.TxReceipt{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return devtypes.TxReceipt{}, fmt.Errorf("transaction %s failed", signed.Hash().Hex())
	}
	return devtypes.TxReceipt{Hash: signed.Hash().Hex(), BlockNumber: receipt.BlockNumber.Uint64()}, nil
}

func (c *Client) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := retry.DoWithData(
		func() (*types.Receipt, error) {
			return c.backend.TransactionReceipt(ctx, hash)
		},
		retry.Context(ctx),
		retry.Attempts(c.receiptAttempts),
		retry.Delay(c.receiptInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("receipt of %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// AwaitHeight polls the latest block number until it is at least height. RPC errors count as
// failed attempts.
func (c *Client) AwaitHeight(ctx context.Context, height uint64, opts devtypes.HeightOptions) error {
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 1
	}

	err := retry.Do(
		func() error {
			current, err := c.backend.BlockNumber(ctx)
			if err != nil {
				return err
			}
			if current < height {
				return fmt.Errorf("%w: at %d, want %d", ErrHeightNotReached, current, height)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(opts.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("waiting for height", zap.Uint("attempt", n+1), zap.Uint64("height", height), zap.Error(err))
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ErrHeightNotReached) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHeightNotReached, err)
}
