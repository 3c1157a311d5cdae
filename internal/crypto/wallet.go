package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the secp256k1 key identifying the trading account. Trade
// execution is gated on a funded wallet being configured; the address is
// recorded with every entry the executor opens.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewWallet creates a Wallet from a hex-encoded secp256k1 private key
// (with or without 0x prefix).
func NewWallet(privateKeyHex string) (*Wallet, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/wallet: invalid private key: %w", err)
	}

	return &Wallet{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// LoadWallet resolves a private key via LoadKey and wraps it in a Wallet.
// It returns (nil, nil) when no key source is configured, so callers can
// run in paper mode without credentials.
func LoadWallet(cfg KeyConfig) (*Wallet, error) {
	if cfg.RawPrivateKey == "" && cfg.EncryptedKeyPath == "" {
		return nil, nil
	}
	keyHex, err := LoadKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewWallet(keyHex)
}

// Address returns the Ethereum address derived from the wallet's private key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignMessage signs an arbitrary message with the EIP-191 personal-sign
// prefix and returns the hex-encoded 65-byte signature (r || s || v).
func (w *Wallet) SignMessage(msg []byte) (string, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	digest := ethcrypto.Keccak256([]byte(prefixed))

	sig, err := ethcrypto.Sign(digest, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/wallet: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; personal_sign expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}
