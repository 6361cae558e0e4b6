// Package contract binds the Qatar sale contract on BSC.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

//go:embed qatar.abi.json
var qatarABI string

const (
	EventTokensMinted = "TokensMinted"
	EventTokensSold   = "TokensSold"
	EventTransfer     = "Transfer"
)

var (
	ErrNoTransactor = errors.New("contract is bound read-only")
	ErrNotBurn      = errors.New("transfer is not a burn")
)

// Backend is everything the wrapper needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractCaller
	bind.ContractTransactor
	bind.ContractFilterer
}

// Stats is one read of every public sale getter.
type Stats struct {
	CurrentPrice     *big.Int `json:"current_price"`
	TotalMinted      *big.Int `json:"total_minted"`
	BurnedTokens     *big.Int `json:"burned_tokens"`
	RemainingSupply  *big.Int `json:"remaining_supply"`
	TotalBNBReceived *big.Int `json:"total_bnb_received"`
	// Optional constants; nil when the deployment does not expose them.
	InitialPrice *big.Int `json:"initial_price,omitempty"`
	BNBMilestone *big.Int `json:"bnb_milestone,omitempty"`
}

// Qatar wraps the bound sale contract.
type Qatar struct {
	address    common.Address
	abi        abi.ABI
	caller     bind.ContractCaller
	contract   *bind.BoundContract
	transactor bool

	attempts int
	backoff  time.Duration
	logger   *logrus.Logger
}

// New binds the contract at addr. transactor and filterer may be nil for a
// read-only binding.
func New(addr common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*Qatar, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	return &Qatar{
		address:    addr,
		abi:        parsed,
		caller:     caller,
		contract:   bind.NewBoundContract(addr, parsed, caller, transactor, filterer),
		transactor: transactor != nil,
		attempts:   3,
		backoff:    200 * time.Millisecond,
		logger:     logrus.StandardLogger(),
	}, nil
}

// NewWithBackend binds the contract over a single node connection.
func NewWithBackend(addr common.Address, backend Backend) (*Qatar, error) {
	return New(addr, backend, backend, backend)
}

// ParsedABI returns the embedded contract ABI.
func ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(qatarABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse qatar abi: %w", err)
	}
	return parsed, nil
}

// SetLogger replaces the logger used for retry warnings.
func (q *Qatar) SetLogger(l *logrus.Logger) {
	if l != nil {
		q.logger = l
	}
}

// SetRetry changes how read calls are retried. attempts < 1 means 1.
func (q *Qatar) SetRetry(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	q.attempts = attempts
	q.backoff = backoff
}

func (q *Qatar) Address() common.Address { return q.address }

func (q *Qatar) ABI() abi.ABI { return q.abi }

// EventID returns the topic hash of a contract event.
func (q *Qatar) EventID(name string) (common.Hash, error) {
	ev, ok := q.abi.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown event %q", name)
	}
	return ev.ID, nil
}

// call runs a view method. Only provider throttling is retried, with an
// exponential delay starting at the configured backoff.
func (q *Qatar) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	delay := &backoff.Backoff{Min: q.backoff, Max: 30 * q.backoff, Factor: 2}
	var lastErr error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		var out []interface{}
		err := q.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRateLimited(err) || attempt == q.attempts || ctx.Err() != nil {
			break
		}
		wait := delay.Duration()
		q.logger.Warnf("⚠️ %s() throttled, attempt %d/%d, retrying in %v: %v", method, attempt, q.attempts, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%s: %w", method, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%s: %w", method, lastErr)
}

func (q *Qatar) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := q.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

func (q *Qatar) CurrentPrice(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "getCurrentPrice")
}

func (q *Qatar) TotalMinted(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "getTotalMinted")
}

func (q *Qatar) BurnedTokens(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "getBurnedTokens")
}

func (q *Qatar) RemainingSupply(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "getRemainingSupply")
}

func (q *Qatar) TotalBNBReceived(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "getTotalBNBReceived")
}

func (q *Qatar) InitialPrice(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "INITIAL_PRICE")
}

func (q *Qatar) BNBMilestone(ctx context.Context) (*big.Int, error) {
	return q.callUint(ctx, "BNB_MILESTONE")
}

func (q *Qatar) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return q.callUint(ctx, "balanceOf", account)
}

func (q *Qatar) Name(ctx context.Context) (string, error) {
	out, err := q.call(ctx, "name")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("name: empty result")
	}
	v, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("name: unexpected result type %T", out[0])
	}
	return v, nil
}

func (q *Qatar) Symbol(ctx context.Context) (string, error) {
	out, err := q.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("symbol: empty result")
	}
	v, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result type %T", out[0])
	}
	return v, nil
}

func (q *Qatar) Decimals(ctx context.Context) (uint8, error) {
	out, err := q.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("decimals: empty result")
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected result type %T", out[0])
	}
	return v, nil
}

// Stats reads every sale getter. The constants are best effort.
func (q *Qatar) Stats(ctx context.Context) (*Stats, error) {
	var (
		s   Stats
		err error
	)
	if s.CurrentPrice, err = q.CurrentPrice(ctx); err != nil {
		return nil, err
	}
	if s.TotalMinted, err = q.TotalMinted(ctx); err != nil {
		return nil, err
	}
	if s.BurnedTokens, err = q.BurnedTokens(ctx); err != nil {
		return nil, err
	}
	if s.RemainingSupply, err = q.RemainingSupply(ctx); err != nil {
		return nil, err
	}
	if s.TotalBNBReceived, err = q.TotalBNBReceived(ctx); err != nil {
		return nil, err
	}
	if v, err := q.InitialPrice(ctx); err == nil {
		s.InitialPrice = v
	}
	if v, err := q.BNBMilestone(ctx); err == nil {
		s.BNBMilestone = v
	}
	return &s, nil
}

// Mint sends the payable mint() with value attached.
func (q *Qatar) Mint(opts *bind.TransactOpts, value *big.Int) (*types.Transaction, error) {
	if !q.transactor {
		return nil, ErrNoTransactor
	}
	o := *opts
	o.Value = value
	return q.contract.Transact(&o, "mint")
}

// Sell sends sell(amount).
func (q *Qatar) Sell(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	if !q.transactor {
		return nil, ErrNoTransactor
	}
	o := *opts
	o.Value = nil
	return q.contract.Transact(&o, "sell", amount)
}

// Simulate dry-runs a write as an eth_call from the given account, so a
// revert surfaces before anything is signed.
func (q *Qatar) Simulate(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) error {
	data, err := q.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	to := q.address
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}
	if _, err := q.caller.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("simulate %s: %w", method, err)
	}
	return nil
}

type saleLog struct {
	User      common.Address
	Amount    *big.Int
	BnbAmount *big.Int
}

// UnpackMinted decodes a TokensMinted log.
func (q *Qatar) UnpackMinted(l types.Log) (*token.Event, error) {
	return q.unpackSale(l, EventTokensMinted, token.EventMint)
}

// UnpackSold decodes a TokensSold log.
func (q *Qatar) UnpackSold(l types.Log) (*token.Event, error) {
	return q.unpackSale(l, EventTokensSold, token.EventSell)
}

type transferLog struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// UnpackBurn decodes a Transfer log sent to the zero address. Any other
// transfer returns ErrNotBurn.
func (q *Qatar) UnpackBurn(l types.Log) (*token.Event, error) {
	var out transferLog
	if err := q.contract.UnpackLog(&out, EventTransfer, l); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", EventTransfer, err)
	}
	if out.To != (common.Address{}) {
		return nil, ErrNotBurn
	}
	return &token.Event{
		Type:        token.EventBurn,
		Account:     out.From.Hex(),
		Tokens:      out.Value,
		BNB:         new(big.Int),
		TxHash:      l.TxHash.Hex(),
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}

func (q *Qatar) unpackSale(l types.Log, name string, typ token.EventType) (*token.Event, error) {
	var out saleLog
	if err := q.contract.UnpackLog(&out, name, l); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}
	return &token.Event{
		Type:        typ,
		Account:     out.User.Hex(),
		Tokens:      out.Amount,
		BNB:         out.BnbAmount,
		TxHash:      l.TxHash.Hex(),
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}
