package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/config"
	"github.com/Shivam-Patel-G/qatar-sale/core/cache"
	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/history"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricefeed"
	"github.com/Shivam-Patel-G/qatar-sale/core/registry"
	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
	"github.com/Shivam-Patel-G/qatar-sale/core/wallet"
)

// App holds everything a command may need. Optional parts are nil when
// their configuration is missing.
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Client   *ethclient.Client
	Contract *contract.Qatar
	Wallet   *wallet.Wallet
	Cache    *cache.SaleCache
	Feed     *pricefeed.Feed
	Journal  *token.TransactionLogger
	History  *history.Store
	Holders  *registry.HolderRegistry
	Service  *sale.Service
}

// Store modes for annotationStores. bbolt and LevelDB both hold an
// exclusive lock, so only commands that read history open them.
const (
	storesRequired = "required"
	storesOptional = "optional"
)

var errNoStores = errors.New("history store is not open")

// newApp dials the node and binds the contract. The wallet is optional:
// read-only commands work without one. stores is one of the store modes,
// or empty to skip the history database and holder registry.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, stores string) (*App, error) {
	addr, err := cfg.ContractAddress()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}
	a.Client = client
	logger.Debugf("🔗 Connected to %s (chain %d)", cfg.RPCURL, cfg.ChainID)

	q, err := contract.NewWithBackend(addr, client)
	if err != nil {
		a.Close()
		return nil, err
	}
	q.SetLogger(logger)
	a.Contract = q

	w, err := wallet.Load(cfg.Wallet, big.NewInt(cfg.ChainID))
	switch {
	case err == nil:
		a.Wallet = w
		account, _ := w.Account()
		logger.Debugf("👛 Wallet %s loaded", token.ShortAddress(account.Hex()))
	case errors.Is(err, wallet.ErrNoWallet):
		logger.Debug("No wallet configured, running read-only")
	default:
		a.Close()
		return nil, err
	}

	secret := []byte(cfg.Cache.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Cache = cache.NewSaleCache(secret, cache.Options{
		DefaultTTL:    cfg.Cache.TTL,
		ValidationTTL: cfg.Cache.ValidationTTL,
		Logger:        logger,
	})

	a.Feed = pricefeed.New(cfg.PriceFeed, logger)

	if a.Journal, err = token.NewTransactionLogger(cfg.JournalDir(), token.LogLevelInfo, logger); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openStores(stores); err != nil {
		a.Close()
		return nil, err
	}

	opts := sale.Options{
		Waiter:         sale.BackendWaiter{Backend: client},
		Cache:          a.Cache,
		Feed:           a.Feed,
		Journal:        a.Journal,
		History:        a.History,
		Holders:        a.Holders,
		Logger:         logger,
		Symbol:         cfg.TokenSymbol,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}
	if a.Wallet != nil {
		opts.Signer = a.Wallet
	}
	a.Service = sale.NewService(q, opts)
	return a, nil
}

// openStores opens the history database and the holder registry. In
// optional mode a store that cannot be opened, usually because another
// process such as "serve --listen" holds its lock, is left nil and the
// features behind it are disabled.
func (a *App) openStores(mode string) error {
	if mode == "" {
		return nil
	}
	h, err := history.OpenStore(a.Config.HistoryPath())
	if err != nil {
		if mode != storesOptional {
			return err
		}
		a.Logger.Warnf("⚠️ Purchase history disabled: %v", err)
	} else {
		a.History = h
	}
	holders, err := registry.Open(a.Config.RegistryPath(), a.Logger)
	if err != nil {
		if mode != storesOptional {
			return err
		}
		a.Logger.Warnf("⚠️ Holder registry disabled: %v", err)
	} else {
		a.Holders = holders
	}
	return nil
}

// Listener builds the event listener over the history store and feeds
// the holder registry.
func (a *App) Listener() (*history.Listener, error) {
	if a.History == nil {
		return nil, errNoStores
	}
	l, err := history.NewListener(a.Client, a.Contract, a.History, a.Config.History, a.Logger)
	if err != nil {
		return nil, err
	}
	if a.Holders != nil {
		l.AddHandler(a.Holders)
	}
	return l, nil
}

func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.Logger.Warnf("⚠️ Failed to close transaction journal: %v", err)
		}
	}
	if a.History != nil {
		a.History.Close()
	}
	if a.Holders != nil {
		a.Holders.Close()
	}
	if a.Client != nil {
		a.Client.Close()
	}
}
