package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway key; never funded.
const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var bscTestnet = big.NewInt(97)

func TestLoad(t *testing.T) {
	t.Run("Nothing configured", func(t *testing.T) {
		w, err := Load(Config{}, bscTestnet)
		assert.ErrorIs(t, err, ErrNoWallet)
		assert.Nil(t, w)

		_, err = w.Account()
		assert.ErrorIs(t, err, ErrNoWallet)
		_, err = w.TransactOpts(context.Background())
		assert.ErrorIs(t, err, ErrNoWallet)
	})

	t.Run("Hex key", func(t *testing.T) {
		w, err := Load(Config{PrivateKey: "0x" + testKey}, bscTestnet)
		require.NoError(t, err)

		key, err := crypto.HexToECDSA(testKey)
		require.NoError(t, err)
		addr, err := w.Account()
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
		assert.Equal(t, int64(97), w.ChainID().Int64())
	})

	t.Run("Bad key", func(t *testing.T) {
		_, err := FromHex("zz", bscTestnet)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("Missing chain id", func(t *testing.T) {
		_, err := FromHex(testKey, nil)
		assert.ErrorIs(t, err, ErrNoChainID)
	})
}

func TestKeystore(t *testing.T) {
	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(key, "hunter2")
	require.NoError(t, err)

	w, err := Load(Config{Keystore: acct.URL.Path, Passphrase: "hunter2"}, bscTestnet)
	require.NoError(t, err)
	addr, _ := w.Account()
	assert.Equal(t, acct.Address, addr)

	_, err = FromKeystore(acct.URL.Path, "wrong", bscTestnet)
	assert.Error(t, err)
}

func TestTransactOptsSigns(t *testing.T) {
	w, err := FromHex(testKey, bscTestnet)
	require.NoError(t, err)

	ctx := context.Background()
	opts, err := w.TransactOpts(ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx, opts.Context)

	from, _ := w.Account()
	assert.Equal(t, from, opts.From)

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := opts.Signer(from, tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(bscTestnet), signed)
	require.NoError(t, err)
	assert.Equal(t, from, sender)
}
