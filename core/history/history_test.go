package history

import (
	"context"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

var (
	saleAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob      = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func openTestStore(t *testing.T) *Store {
	s, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mintEvent(account common.Address, block uint64, idx uint, tokens, bnb int64) token.Event {
	return token.Event{
		Type:        token.EventMint,
		Account:     account.Hex(),
		Tokens:      new(big.Int).Mul(big.NewInt(tokens), token.One),
		BNB:         new(big.Int).Mul(big.NewInt(bnb), token.One),
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*100 + uint64(idx))).Hex(),
		BlockNumber: block,
		LogIndex:    idx,
	}
}

func TestStoreHistory(t *testing.T) {
	s := openTestStore(t)

	added, err := s.Put(
		mintEvent(alice, 10, 0, 1000, 1),
		mintEvent(alice, 30, 1, 500, 1),
		mintEvent(alice, 20, 0, 2000, 3),
		mintEvent(bob, 15, 0, 10, 1),
	)
	require.NoError(t, err)
	assert.Len(t, added, 4)

	// Re-inserting is a no-op.
	added, err = s.Put(mintEvent(alice, 10, 0, 1000, 1))
	require.NoError(t, err)
	assert.Empty(t, added)

	rows, err := s.History(alice.Hex(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(30), rows[0].BlockNumber)
	assert.Equal(t, uint64(20), rows[1].BlockNumber)
	assert.Equal(t, uint64(10), rows[2].BlockNumber)
	// 1 BNB for 500 tokens.
	assert.Equal(t, "0.002", token.FormatEther(rows[0].UnitPrice))

	limited, err := s.History(alice.Hex(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.History("0x0000000000000000000000000000000000000009", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStoreSummary(t *testing.T) {
	s := openTestStore(t)
	sold := mintEvent(alice, 40, 0, 100, 1)
	sold.Type = token.EventSell
	_, err := s.Put(
		mintEvent(alice, 10, 0, 1000, 1),
		mintEvent(alice, 20, 0, 3000, 3),
		sold,
	)
	require.NoError(t, err)

	sum, err := s.Summarize(alice.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, "4000", token.FormatEther(sum.TotalTokens))
	assert.Equal(t, "4", token.FormatEther(sum.TotalBNB))
	assert.Equal(t, "0.001", token.FormatEther(sum.AveragePrice))

	empty := Summarize("x", nil)
	assert.Zero(t, empty.AveragePrice.Sign())
}

func TestStoreLastBlock(t *testing.T) {
	s := openTestStore(t)
	n, err := s.LastBlock()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.SetLastBlock(12345))
	n, err = s.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), n)
}

// fakeChain serves logs from memory and filters them like a node would.
type fakeChain struct {
	mu      sync.Mutex
	head    uint64
	logs    []types.Log
	queries []ethereum.FilterQuery
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: number, Time: 1_700_000_000 + number.Uint64()*3}, nil
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < q.FromBlock.Uint64() || l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if !topicsMatch(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		ok := false
		for _, h := range alts {
			if h == topics[i] {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

type recorder struct {
	mu     sync.Mutex
	events []token.Event
}

func (r *recorder) HandleEvent(ev token.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func saleLog(t *testing.T, q *contract.Qatar, name string, user common.Address, block uint64, idx uint, tokens, bnb *big.Int) types.Log {
	id, err := q.EventID(name)
	require.NoError(t, err)
	data, err := q.ABI().Events[name].Inputs.NonIndexed().Pack(tokens, bnb)
	require.NoError(t, err)
	return types.Log{
		Address:     saleAddr,
		Topics:      []common.Hash{id, common.BytesToHash(user.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       idx,
	}
}

func burnLog(t *testing.T, q *contract.Qatar, from common.Address, block uint64, idx uint, value *big.Int) types.Log {
	id, err := q.EventID(contract.EventTransfer)
	require.NoError(t, err)
	data, err := q.ABI().Events[contract.EventTransfer].Inputs.NonIndexed().Pack(value)
	require.NoError(t, err)
	return types.Log{
		Address:     saleAddr,
		Topics:      []common.Hash{id, common.BytesToHash(from.Bytes()), {}},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       idx,
	}
}

func newTestListener(t *testing.T, cfg ListenerConfig) (*Listener, *fakeChain, *Store, *contract.Qatar) {
	q, err := contract.New(saleAddr, nil, nil, nil)
	require.NoError(t, err)
	store := openTestStore(t)
	chain := &fakeChain{}
	l, err := NewListener(chain, q, store, cfg, nil)
	require.NoError(t, err)
	return l, chain, store, q
}

func TestListenerSync(t *testing.T) {
	l, chain, store, q := newTestListener(t, ListenerConfig{StartBlock: 100, MaxRange: 50, Confirmations: 2})
	rec := &recorder{}
	l.AddHandler(rec)

	tokens := new(big.Int).Mul(big.NewInt(632), token.One)
	bnb := new(big.Int).Div(token.One, big.NewInt(10))
	chain.head = 260
	chain.logs = []types.Log{
		saleLog(t, q, contract.EventTokensMinted, alice, 120, 0, tokens, bnb),
		saleLog(t, q, contract.EventTokensSold, alice, 200, 3, tokens, bnb),
		saleLog(t, q, contract.EventTokensMinted, bob, 255, 0, tokens, bnb),
		// Not yet confirmed.
		saleLog(t, q, contract.EventTokensMinted, bob, 259, 0, tokens, bnb),
	}

	n, err := l.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	// Sale and burn queries for 100-149, 150-199, 200-249, 250-258.
	assert.Len(t, chain.queries, 8)

	last, err := store.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(258), last)

	rows, err := store.History(alice.Hex(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, token.EventSell, rows[0].Type)
	assert.Equal(t, token.EventMint, rows[1].Type)
	assert.True(t, time.Unix(1_700_000_000+120*3, 0).Equal(rows[1].Timestamp))

	// Next pass picks up where the last one stopped.
	chain.head = 262
	n, err = l.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.events, 4)
}

func TestListenerBackfill(t *testing.T) {
	l, chain, store, q := newTestListener(t, ListenerConfig{MaxRange: 1000})
	tokens := new(big.Int).Mul(big.NewInt(100), token.One)
	bnb := new(big.Int).Div(token.One, big.NewInt(50))
	chain.head = 500
	chain.logs = []types.Log{
		saleLog(t, q, contract.EventTokensMinted, alice, 10, 0, tokens, bnb),
		saleLog(t, q, contract.EventTokensMinted, bob, 11, 0, tokens, bnb),
	}

	n, err := l.Backfill(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Saved position is untouched.
	last, err := store.LastBlock()
	require.NoError(t, err)
	assert.Zero(t, last)

	rows, err := store.History(bob.Hex(), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListenerBurns(t *testing.T) {
	l, chain, store, q := newTestListener(t, ListenerConfig{StartBlock: 1, MaxRange: 1000})
	rec := &recorder{}
	l.AddHandler(rec)

	tokens := new(big.Int).Mul(big.NewInt(250), token.One)
	bnb := new(big.Int).Div(token.One, big.NewInt(25))
	transfer := burnLog(t, q, alice, 40, 1, tokens)
	// A plain transfer to bob is not a burn and never matches the filter.
	transfer.Topics[2] = common.BytesToHash(bob.Bytes())
	chain.head = 100
	chain.logs = []types.Log{
		saleLog(t, q, contract.EventTokensSold, alice, 40, 0, tokens, bnb),
		burnLog(t, q, alice, 40, 2, tokens),
		transfer,
	}

	n, err := l.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.events, 2)

	var burn token.Event
	for _, ev := range rec.events {
		if ev.Type == token.EventBurn {
			burn = ev
		}
	}
	assert.Equal(t, alice.Hex(), burn.Account)
	assert.Equal(t, "250", token.FormatEther(burn.Tokens))
	assert.Equal(t, uint(2), burn.LogIndex)

	rows, err := store.History(alice.Hex(), 0, token.EventBurn)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// Burns do not count as purchases.
	sum, err := store.Summarize(alice.Hex())
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
}

func TestUnpackBurnRejectsTransfers(t *testing.T) {
	q, err := contract.New(saleAddr, nil, nil, nil)
	require.NoError(t, err)
	l := burnLog(t, q, alice, 1, 0, big.NewInt(5))
	l.Topics[2] = common.BytesToHash(bob.Bytes())
	_, err = q.UnpackBurn(l)
	assert.ErrorIs(t, err, contract.ErrNotBurn)
}

func TestListenerStartStop(t *testing.T) {
	l, chain, store, _ := newTestListener(t, ListenerConfig{PollInterval: 5 * time.Millisecond})
	chain.head = 50

	require.NoError(t, l.Start(context.Background()))
	assert.Error(t, l.Start(context.Background()))

	require.Eventually(t, func() bool {
		last, err := store.LastBlock()
		return err == nil && last == 50
	}, time.Second, 5*time.Millisecond)

	l.Stop()
	l.Stop()
}
