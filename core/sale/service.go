// Package sale drives the token sale: snapshots for display, quotes, and
// the mint and sell flows with their status lines.
package sale

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/cache"
	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/history"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricefeed"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/registry"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
	"github.com/Shivam-Patel-G/qatar-sale/core/wallet"
)

// Contract is the sale contract surface the service uses.
// *contract.Qatar satisfies it.
type Contract interface {
	Address() common.Address
	Stats(ctx context.Context) (*contract.Stats, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Mint(opts *bind.TransactOpts, value *big.Int) (*types.Transaction, error)
	Sell(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
	Simulate(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) error
	ClassifyError(ctx context.Context, err error) string
}

// Signer is the connected wallet. *wallet.Wallet satisfies it.
type Signer interface {
	Account() (common.Address, error)
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Waiter blocks until a transaction is mined.
type Waiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// BackendWaiter waits on a node connection.
type BackendWaiter struct {
	Backend bind.DeployBackend
}

func (w BackendWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.Backend, tx)
}

// Options wires optional collaborators. Nil fields disable the feature.
type Options struct {
	Signer         Signer
	Waiter         Waiter
	Curve          *pricing.Curve
	Cache          *cache.SaleCache
	Feed           *pricefeed.Feed
	Journal        *token.TransactionLogger
	History        *history.Store
	Holders        *registry.HolderRegistry
	Logger         *logrus.Logger
	Symbol         string
	ReceiptTimeout time.Duration
}

type Service struct {
	contract Contract
	signer   Signer
	waiter   Waiter
	curve    pricing.Curve
	cache    *cache.SaleCache
	feed     *pricefeed.Feed
	journal  *token.TransactionLogger
	history  *history.Store
	holders  *registry.HolderRegistry
	logger   *logrus.Logger
	symbol   string

	receiptTimeout time.Duration
}

func NewService(c Contract, opts Options) *Service {
	s := &Service{
		contract:       c,
		signer:         opts.Signer,
		waiter:         opts.Waiter,
		curve:          pricing.DefaultCurve(),
		cache:          opts.Cache,
		feed:           opts.Feed,
		journal:        opts.Journal,
		history:        opts.History,
		holders:        opts.Holders,
		logger:         opts.Logger,
		symbol:         opts.Symbol,
		receiptTimeout: opts.ReceiptTimeout,
	}
	if opts.Curve != nil {
		s.curve = *opts.Curve
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.symbol == "" {
		s.symbol = "Qatar"
	}
	if s.receiptTimeout <= 0 {
		s.receiptTimeout = 2 * time.Minute
	}
	return s
}

func (s *Service) Symbol() string { return s.symbol }

// Account returns the connected wallet address.
func (s *Service) Account() (common.Address, error) {
	if s.signer == nil {
		return common.Address{}, wallet.ErrNoWallet
	}
	return s.signer.Account()
}
