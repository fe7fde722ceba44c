package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	devtypes "github.com/chainforge/devnode/framework/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testChainID = big.NewInt(31337)

type fakeBackend struct {
	balances map[common.Address]*big.Int
	nonce    uint64
	sent     []*types.Transaction
	sendErr  error

	// receiptMisses is the number of receipt lookups answered with NotFound.
	receiptMisses int
	receiptStatus uint64
	receiptCalls  int

	heights     []uint64
	heightErr   error
	heightCalls int
	closed      bool
}

func (b *fakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if bal, ok := b.balances[account]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	b.nonce++
	return nil
}

func (b *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	b.receiptCalls++
	if b.receiptCalls <= b.receiptMisses {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: b.receiptStatus, BlockNumber: big.NewInt(12)}, nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.heightCalls++
	if b.heightErr != nil {
		return 0, b.heightErr
	}
	i := b.heightCalls - 1
	if i >= len(b.heights) {
		i = len(b.heights) - 1
	}
	return b.heights[i], nil
}

func (b *fakeBackend) Close() {
	b.closed = true
}

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	return newClient(b, testChainID, zaptest.NewLogger(t), WithReceiptPolling(time.Millisecond, 5))
}

func TestClient_SetKeyPair(t *testing.T) {
	c := newTestClient(t, &fakeBackend{})

	require.NoError(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: minerSecret}))
	require.Equal(t, minerAddress, c.from.Hex())

	err := c.SetKeyPair(devtypes.KeyPair{PublicKey: aliceAddress, SecretKey: minerSecret})
	require.ErrorContains(t, err, "not "+aliceAddress)
	// a rejected key pair leaves the previous one active.
	require.Equal(t, minerAddress, c.from.Hex())

	require.Error(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: "nope"}))
}

func TestClient_Balance(t *testing.T) {
	b := &fakeBackend{balances: map[common.Address]*big.Int{
		common.HexToAddress(aliceAddress): big.NewInt(42),
	}}
	c := newTestClient(t, b)

	bal, err := c.Balance(context.Background(), aliceAddress)
	require.NoError(t, err)
	require.Equal(t, int64(42), bal.Int64())

	_, err = c.Balance(context.Background(), "alice")
	require.Error(t, err)
}

func TestClient_Spend(t *testing.T) {
	b := &fakeBackend{nonce: 7, receiptMisses: 2, receiptStatus: types.ReceiptStatusSuccessful}
	c := newTestClient(t, b)
	require.NoError(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: minerSecret}))

	amount := big.NewInt(1_000_000)
	receipt, err := c.Spend(context.Background(), amount, bobAddress)
	require.NoError(t, err)
	require.Len(t, b.sent, 1)
	require.Equal(t, 3, b.receiptCalls)
	require.Equal(t, uint64(12), receipt.BlockNumber)

	tx := b.sent[0]
	require.Equal(t, receipt.Hash, tx.Hash().Hex())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(transferGas), tx.Gas())
	require.Zero(t, amount.Cmp(tx.Value()))
	require.Equal(t, common.HexToAddress(bobAddress), *tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	require.NoError(t, err)
	require.Equal(t, minerAddress, sender.Hex())
}

func TestClient_SpendErrors(t *testing.T) {
	t.Run("no key pair", func(t *testing.T) {
		c := newTestClient(t, &fakeBackend{})
		_, err := c.Spend(context.Background(), big.NewInt(1), bobAddress)
		require.ErrorContains(t, err, "no key pair set")
	})

	t.Run("send fails", func(t *testing.T) {
		b := &fakeBackend{sendErr: errors.New("insufficient funds for gas * price + value")}
		c := newTestClient(t, b)
		require.NoError(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: minerSecret}))
		_, err := c.Spend(context.Background(), big.NewInt(1), bobAddress)
		require.ErrorContains(t, err, "insufficient funds")
		require.Zero(t, b.receiptCalls)
	})

	t.Run("reverted", func(t *testing.T) {
		b := &fakeBackend{receiptStatus: types.ReceiptStatusFailed}
		c := newTestClient(t, b)
		require.NoError(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: minerSecret}))
		_, err := c.Spend(context.Background(), big.NewInt(1), bobAddress)
		require.ErrorContains(t, err, "failed")
	})

	t.Run("receipt never arrives", func(t *testing.T) {
		b := &fakeBackend{receiptMisses: 100}
		c := newTestClient(t, b)
		require.NoError(t, c.SetKeyPair(devtypes.KeyPair{PublicKey: minerAddress, SecretKey: minerSecret}))
		_, err := c.Spend(context.Background(), big.NewInt(1), bobAddress)
		require.ErrorIs(t, err, ethereum.NotFound)
		require.Equal(t, 5, b.receiptCalls)
	})
}

func TestClient_AwaitHeight(t *testing.T) {
	opts := devtypes.HeightOptions{Interval: time.Millisecond, Attempts: 4}

	t.Run("reached", func(t *testing.T) {
		b := &fakeBackend{heights: []uint64{2, 6, 10}}
		c := newTestClient(t, b)
		require.NoError(t, c.AwaitHeight(context.Background(), 10, opts))
		require.Equal(t, 3, b.heightCalls)
	})

	t.Run("exhausted", func(t *testing.T) {
		b := &fakeBackend{heights: []uint64{3}}
		c := newTestClient(t, b)
		err := c.AwaitHeight(context.Background(), 10, opts)
		require.ErrorIs(t, err, ErrHeightNotReached)
		require.Equal(t, 4, b.heightCalls)
	})

	t.Run("rpc errors count as attempts", func(t *testing.T) {
		b := &fakeBackend{heightErr: errors.New("connection refused")}
		c := newTestClient(t, b)
		err := c.AwaitHeight(context.Background(), 10, opts)
		require.ErrorIs(t, err, ErrHeightNotReached)
		require.ErrorContains(t, err, "connection refused")
		require.Equal(t, 4, b.heightCalls)
	})
}

func TestClient_Close(t *testing.T) {
	b := &fakeBackend{}
	newTestClient(t, b).Close()
	require.True(t, b.closed)
}
