// Package wallet provides the signing account used for mint and sell.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoWallet   = errors.New("wallet connection required for operation")
	ErrNoChainID  = errors.New("chain id is required")
	ErrInvalidKey = errors.New("invalid private key")
)

// Config selects a signer. PrivateKey wins over Keystore when both are set.
type Config struct {
	PrivateKey string `yaml:"-" json:"-"`
	Keystore   string `yaml:"keystore" json:"keystore"`
	Passphrase string `yaml:"-" json:"-"`
}

// Wallet is a local signer bound to one chain.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// Load builds a wallet from cfg. With nothing configured it returns
// ErrNoWallet.
func Load(cfg Config, chainID *big.Int) (*Wallet, error) {
	switch {
	case strings.TrimSpace(cfg.PrivateKey) != "":
		return FromHex(cfg.PrivateKey, chainID)
	case cfg.Keystore != "":
		return FromKeystore(cfg.Keystore, cfg.Passphrase, chainID)
	}
	return nil, ErrNoWallet
}

// FromHex loads a hex-encoded secp256k1 key, with or without 0x.
func FromHex(hexKey string, chainID *big.Int) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return fromKey(key, chainID)
}

// FromKeystore decrypts a go-ethereum keystore v3 file.
func FromKeystore(path, passphrase string, chainID *big.Int) (*Wallet, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	k, err := keystore.DecryptKey(blob, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}
	return fromKey(k.PrivateKey, chainID)
}

func fromKey(key *ecdsa.PrivateKey, chainID *big.Int) (*Wallet, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, ErrNoChainID
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
	}, nil
}

// Account returns the connected address, or ErrNoWallet on a nil wallet.
func (w *Wallet) Account() (common.Address, error) {
	if w == nil {
		return common.Address{}, ErrNoWallet
	}
	return w.address, nil
}

func (w *Wallet) ChainID() *big.Int {
	if w == nil {
		return nil
	}
	return new(big.Int).Set(w.chainID)
}

// TransactOpts returns fresh signing options bound to ctx.
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if w == nil {
		return nil, ErrNoWallet
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
