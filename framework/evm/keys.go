package evm

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// parseHexPrivKey parses a hex private key string into an ECDSA key.
func parseHexPrivKey(h string) (*ecdsa.PrivateKey, error) {
	if len(h) > 1 && (h[:2] == "0x" || h[:2] == "0X") {
		h = h[2:]
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("decode hex key: %w", err)
	}
	pk, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("to ecdsa: %w", err)
	}
	return pk, nil
}

// parseAddress parses a 0x-prefixed or bare hex account address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// AddressFromKey returns the account address controlled by a hex private key.
func AddressFromKey(secretKey string) (string, error) {
	pk, err := parseHexPrivKey(secretKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}

// sameAddress compares two hex addresses ignoring checksum casing.
func sameAddress(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "0x") == strings.TrimPrefix(strings.ToLower(b), "0x")
}
