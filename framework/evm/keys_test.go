package evm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// well-known development accounts of anvil and hardhat.
const (
	minerSecret  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	minerAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	aliceSecret  = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	aliceAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	bobAddress   = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

func TestParseHexPrivKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"with prefix", minerSecret, false},
		{"without prefix", aliceSecret, false},
		{"upper prefix", "0X" + aliceSecret, false},
		{"not hex", "0xzz", true},
		{"too short", "0xabcd", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := parseHexPrivKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, pk)
		})
	}
}

func TestAddressFromKey(t *testing.T) {
	addr, err := AddressFromKey(minerSecret)
	require.NoError(t, err)
	require.Equal(t, minerAddress, addr)

	addr, err = AddressFromKey(aliceSecret)
	require.NoError(t, err)
	require.Equal(t, aliceAddress, addr)
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress(bobAddress)
	require.NoError(t, err)
	require.Equal(t, bobAddress, addr.Hex())

	_, err = parseAddress("bob")
	require.Error(t, err)
}

func TestSameAddress(t *testing.T) {
	require.True(t, sameAddress(minerAddress, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"))
	require.True(t, sameAddress(minerAddress, "f39fd6e51aad88f6f4ce6ab8827279cfffb92266"))
	require.False(t, sameAddress(minerAddress, aliceAddress))
}
