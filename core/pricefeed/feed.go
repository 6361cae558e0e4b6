// Package pricefeed converts BNB amounts to USD for holding values.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

const (
	SourceBinance  = "binance"
	SourceFallback = "fallback"
)

// DefaultFallbackRate is the fixed BNB/USD rate used when no live quote is
// available.
var DefaultFallbackRate = decimal.NewFromInt(300)

type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Symbol   string        `yaml:"symbol"`
	Fallback float64       `yaml:"fallback"`
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Quote is one BNB/USD rate and where it came from.
type Quote struct {
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"`
	At     time.Time       `json:"at"`
}

type Feed struct {
	client   *binance.Client
	symbol   string
	fallback decimal.Decimal
	ttl      time.Duration
	logger   *logrus.Logger

	mu   sync.Mutex
	last *Quote
}

// New returns a feed. With cfg.Enabled false every quote is the fallback.
func New(cfg Config, logger *logrus.Logger) *Feed {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	f := &Feed{
		symbol:   strings.ToUpper(cfg.Symbol),
		fallback: DefaultFallbackRate,
		ttl:      cfg.CacheTTL,
		logger:   logger,
	}
	if f.symbol == "" {
		f.symbol = "BNBUSDT"
	}
	if cfg.Fallback > 0 {
		f.fallback = decimal.NewFromFloat(cfg.Fallback)
	}
	if f.ttl <= 0 {
		f.ttl = 30 * time.Second
	}
	if cfg.Enabled {
		// Public ticker endpoint, no credentials.
		f.client = binance.NewClient("", "")
		if cfg.BaseURL != "" {
			f.client.BaseURL = cfg.BaseURL
		}
	}
	return f
}

func (f *Feed) fallbackQuote() Quote {
	return Quote{Rate: f.fallback, Source: SourceFallback, At: time.Now()}
}

// Quote returns the latest BNB/USD rate. It never fails: feed errors are
// logged and the fallback rate is returned.
func (f *Feed) Quote(ctx context.Context) Quote {
	if f == nil {
		return Quote{Rate: DefaultFallbackRate, Source: SourceFallback, At: time.Now()}
	}
	if f.client == nil {
		return f.fallbackQuote()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last != nil && time.Since(f.last.At) < f.ttl {
		return *f.last
	}

	rate, err := f.fetch(ctx)
	if err != nil {
		f.logger.Warnf("⚠️ BNB/USD feed unavailable, using %s: %v", f.fallback, err)
		return f.fallbackQuote()
	}
	q := Quote{Rate: rate, Source: SourceBinance, At: time.Now()}
	f.last = &q
	return q
}

func (f *Feed) fetch(ctx context.Context) (decimal.Decimal, error) {
	prices, err := f.client.NewListPricesService().Symbol(f.symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", f.symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != f.symbol {
			continue
		}
		rate, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("ticker %s price %q: %w", f.symbol, p.Price, err)
		}
		if !rate.IsPositive() {
			return decimal.Zero, errors.New("non-positive ticker price")
		}
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("ticker %s: symbol not returned", f.symbol)
}

// ToUSD values wei of BNB in USD, rounded to cents.
func (f *Feed) ToUSD(ctx context.Context, wei *big.Int) (decimal.Decimal, Quote) {
	q := f.Quote(ctx)
	return token.Ether(wei).Mul(q.Rate).Round(2), q
}
