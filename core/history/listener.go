package history

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

// ChainReader is the subset of ethclient the listener polls.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Decoder turns raw sale logs into events. *contract.Qatar satisfies it.
type Decoder interface {
	Address() common.Address
	EventID(name string) (common.Hash, error)
	UnpackMinted(l types.Log) (*token.Event, error)
	UnpackSold(l types.Log) (*token.Event, error)
	UnpackBurn(l types.Log) (*token.Event, error)
}

// EventHandler receives every newly stored event.
type EventHandler interface {
	HandleEvent(ev token.Event) error
}

type ListenerConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	StartBlock    uint64        `yaml:"start_block"`
	MaxRange      uint64        `yaml:"max_range"`
	Confirmations uint64        `yaml:"confirmations"`
	// Lookback is how far behind head the first scan starts when neither a
	// saved position nor StartBlock exists.
	Lookback uint64 `yaml:"lookback"`
}

// Listener polls the chain for sale events and records them.
type Listener struct {
	chain    ChainReader
	decoder  Decoder
	store    *Store
	cfg      ListenerConfig
	logger   *logrus.Logger
	handlers []EventHandler

	mintedID   common.Hash
	soldID     common.Hash
	transferID common.Hash

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewListener(chain ChainReader, decoder Decoder, store *Store, cfg ListenerConfig, logger *logrus.Logger) (*Listener, error) {
	mintedID, err := decoder.EventID(contract.EventTokensMinted)
	if err != nil {
		return nil, err
	}
	soldID, err := decoder.EventID(contract.EventTokensSold)
	if err != nil {
		return nil, err
	}
	transferID, err := decoder.EventID(contract.EventTransfer)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.MaxRange == 0 {
		cfg.MaxRange = 5000
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = 10
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Listener{
		chain:      chain,
		decoder:    decoder,
		store:      store,
		cfg:        cfg,
		logger:     logger,
		mintedID:   mintedID,
		soldID:     soldID,
		transferID: transferID,
	}, nil
}

// AddHandler registers h for events stored from now on.
func (l *Listener) AddHandler(h EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Start polls in the background until Stop or ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("listener is already running")
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.running = true
	go l.listenForEvents(ctx)

	l.logger.Infof("🔗 Sale listener started, monitoring contract: %s", l.decoder.Address().Hex())
	return nil
}

func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.cancel()
	done := l.done
	l.mu.Unlock()

	<-done
	l.logger.Infof("🛑 Sale listener stopped")
}

func (l *Listener) listenForEvents(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := l.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Errorf("❌ Error processing sale blocks: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sync scans from the saved position to the confirmed head once and
// returns how many new events were stored.
func (l *Listener) Sync(ctx context.Context) (int, error) {
	head, err := l.chain.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current block: %w", err)
	}
	if head < l.cfg.Confirmations {
		return 0, nil
	}
	head -= l.cfg.Confirmations

	last, err := l.store.LastBlock()
	if err != nil {
		return 0, err
	}
	from := last + 1
	if last == 0 {
		switch {
		case l.cfg.StartBlock > 0:
			from = l.cfg.StartBlock
		case head > l.cfg.Lookback:
			from = head - l.cfg.Lookback
		default:
			from = 0
		}
	}

	total := 0
	for from <= head {
		to := from + l.cfg.MaxRange - 1
		if to > head {
			to = head
		}
		n, err := l.scan(ctx, from, to, nil)
		total += n
		if err != nil {
			return total, err
		}
		if err := l.store.SetLastBlock(to); err != nil {
			return total, err
		}
		from = to + 1
	}
	return total, nil
}

// Backfill scans [from, head] for one account's mints, sells and burns without
// moving the saved position.
func (l *Listener) Backfill(ctx context.Context, account common.Address, from uint64) (int, error) {
	head, err := l.chain.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current block: %w", err)
	}
	total := 0
	for from <= head {
		to := from + l.cfg.MaxRange - 1
		if to > head {
			to = head
		}
		n, err := l.scan(ctx, from, to, &account)
		total += n
		if err != nil {
			return total, err
		}
		from = to + 1
	}
	return total, nil
}

func (l *Listener) scan(ctx context.Context, from, to uint64, account *common.Address) (int, error) {
	var who []common.Hash
	if account != nil {
		who = []common.Hash{common.BytesToHash(account.Bytes())}
	}
	// Sale events, then burns: transfers whose recipient topic is zero.
	filters := [][][]common.Hash{
		{{l.mintedID, l.soldID}, who},
		{{l.transferID}, who, {{}}},
	}
	var logs []types.Log
	for _, topics := range filters {
		found, err := l.chain.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{l.decoder.Address()},
			Topics:    topics,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to filter logs %d-%d: %w", from, to, err)
		}
		logs = append(logs, found...)
	}

	times := map[uint64]time.Time{}
	events := make([]token.Event, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Removed || len(vLog.Topics) == 0 {
			continue
		}
		ev, err := l.decode(vLog)
		if err != nil {
			l.logger.Warnf("⚠️ Error processing log %s:%d: %v", vLog.TxHash.Hex(), vLog.Index, err)
			continue
		}
		ev.Timestamp = l.blockTime(ctx, vLog.BlockNumber, times)
		events = append(events, *ev)
	}
	if len(events) == 0 {
		return 0, nil
	}

	added, err := l.store.Put(events...)
	if err != nil {
		return 0, fmt.Errorf("store events: %w", err)
	}
	if len(added) > 0 {
		l.dispatch(added)
		l.logger.Infof("✅ Recorded %d sale events (blocks %d-%d)", len(added), from, to)
	}
	return len(added), nil
}

func (l *Listener) decode(vLog types.Log) (*token.Event, error) {
	switch vLog.Topics[0] {
	case l.mintedID:
		return l.decoder.UnpackMinted(vLog)
	case l.soldID:
		return l.decoder.UnpackSold(vLog)
	case l.transferID:
		return l.decoder.UnpackBurn(vLog)
	}
	return nil, fmt.Errorf("unexpected topic %s", vLog.Topics[0].Hex())
}

func (l *Listener) blockTime(ctx context.Context, n uint64, seen map[uint64]time.Time) time.Time {
	if t, ok := seen[n]; ok {
		return t
	}
	var t time.Time
	if h, err := l.chain.HeaderByNumber(ctx, new(big.Int).SetUint64(n)); err == nil && h != nil {
		t = time.Unix(int64(h.Time), 0).UTC()
	}
	seen[n] = t
	return t
}

func (l *Listener) dispatch(events []token.Event) {
	l.mu.Lock()
	handlers := append([]EventHandler(nil), l.handlers...)
	l.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			if err := h.HandleEvent(ev); err != nil {
				l.logger.Warnf("⚠️ Handler failed for %s: %v", ev.Key(), err)
			}
		}
	}
}
