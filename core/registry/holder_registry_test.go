package registry

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

func tokens(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), token.One) }

func memDB(t *testing.T) (*leveldb.DB, storage.Storage) {
	stor := storage.NewMemStorage()
	db, err := leveldb.Open(stor, nil)
	require.NoError(t, err)
	return db, stor
}

func TestHolderRegistryRecord(t *testing.T) {
	db, _ := memDB(t)
	hr := NewHolderRegistry(db, nil)
	defer hr.Close()

	now := time.Now().UTC()
	require.NoError(t, hr.Record(token.Event{
		Type: token.EventMint, Account: "0xAAAA", Tokens: tokens(1000), BNB: tokens(1),
		TxHash: "0x01", BlockNumber: 5, Timestamp: now.Add(-time.Hour),
	}))
	require.NoError(t, hr.HandleEvent(token.Event{
		Type: token.EventSell, Account: "0xaaaa", Tokens: tokens(400), BNB: tokens(1),
		TxHash: "0x02", BlockNumber: 9, Timestamp: now,
	}))
	require.NoError(t, hr.HandleEvent(token.Event{
		Type: token.EventBurn, Account: "0xAAAA", Tokens: tokens(400), BNB: new(big.Int),
		TxHash: "0x02", LogIndex: 1, BlockNumber: 9, Timestamp: now,
	}))
	require.NoError(t, hr.Record(token.Event{
		Type: token.EventMint, Account: "0xbbbb", Tokens: tokens(100), BNB: tokens(1), TxHash: "0x03",
	}))
	assert.Error(t, hr.Record(token.Event{Type: token.EventMint}))

	h, ok := hr.GetHolder("0xAaAa")
	require.True(t, ok)
	assert.Equal(t, int64(1), h.MintCount)
	assert.Equal(t, int64(1), h.SellCount)
	assert.Equal(t, "600", token.FormatEther(h.NetTokens()))
	assert.Equal(t, int64(1), h.BurnCount)
	assert.Equal(t, "400", token.FormatEther(h.TokensBurned))
	assert.Equal(t, "0x01", h.FirstTxHash)
	assert.Equal(t, uint64(9), h.LastBlock)
	assert.True(t, h.LastSeen.After(h.FirstSeen))

	// Copies do not alias registry state.
	h.TokensMinted.SetInt64(0)
	again, _ := hr.GetHolder("0xaaaa")
	assert.Equal(t, "1000", token.FormatEther(again.TokensMinted))

	assert.Equal(t, 2, hr.HolderCount())
	top := hr.TopHolders(1)
	require.Len(t, top, 1)
	assert.Equal(t, "0xaaaa", top[0].Address)
	assert.Len(t, hr.GetActiveHolders(time.Minute), 2)

	stats := hr.GetStats()
	assert.Equal(t, 2, stats["known_addresses"])
	assert.Equal(t, tokens(1100).String(), stats["tokens_minted"])
	assert.Equal(t, tokens(400).String(), stats["tokens_burned"])
}

func TestHolderRegistryReload(t *testing.T) {
	stor := storage.NewMemStorage()
	db, err := leveldb.Open(stor, nil)
	require.NoError(t, err)

	hr := NewHolderRegistry(db, nil)
	require.NoError(t, hr.Record(token.Event{
		Type: token.EventMint, Account: "0xcccc", Tokens: tokens(50), BNB: tokens(1), TxHash: "0x04",
	}))
	require.NoError(t, hr.Close())

	db, err = leveldb.Open(stor, nil)
	require.NoError(t, err)
	reloaded := NewHolderRegistry(db, nil)
	defer reloaded.Close()

	h, ok := reloaded.GetHolder("0xcccc")
	require.True(t, ok)
	assert.Equal(t, "50", token.FormatEther(h.TokensMinted))
	assert.Zero(t, h.TokensSold.Sign())
	require.NotNil(t, h.TokensBurned)
	assert.Zero(t, h.TokensBurned.Sign())
	assert.Equal(t, 1, reloaded.HolderCount())
}
