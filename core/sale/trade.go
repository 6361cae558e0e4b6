package sale

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

// MintQuote is the expected outcome of minting with Amount BNB.
type MintQuote struct {
	Amount *big.Int `json:"amount"`
	Price  *big.Int `json:"price"`
	Tokens *big.Int `json:"tokens"`
}

// SellQuote is the expected outcome of selling Amount tokens.
type SellQuote struct {
	Amount *big.Int `json:"amount"`
	Price  *big.Int `json:"price"`
	BNB    *big.Int `json:"bnb"`
}

// Result describes a submitted mint or sell.
type Result struct {
	Operation   string   `json:"operation"`
	Account     string   `json:"account"`
	Amount      *big.Int `json:"amount"`
	Expected    *big.Int `json:"expected"`
	Price       *big.Int `json:"price"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number,omitempty"`
	GasUsed     uint64   `json:"gas_used,omitempty"`
	Confirmed   bool     `json:"confirmed"`
	Status      string   `json:"status"`
}

// QuoteMint validates amount against the mint bounds and estimates the
// tokens it buys at the current price.
func (s *Service) QuoteMint(ctx context.Context, amount *big.Int) (*MintQuote, error) {
	if err := pricing.ValidateMintAmount(amount); err != nil {
		return nil, &StatusError{Status: sentence(err.Error()), Err: err}
	}
	price, err := s.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := pricing.EstimateMint(amount, price)
	if err != nil {
		return nil, err
	}
	return &MintQuote{Amount: amount, Price: price, Tokens: tokens}, nil
}

// QuoteSell estimates the BNB returned for amount tokens. The connected
// wallet's balance is checked when one is available.
func (s *Service) QuoteSell(ctx context.Context, amount *big.Int) (*SellQuote, error) {
	var balance *big.Int
	if account, err := s.Account(); err == nil {
		if b, err := s.balance(ctx, account, true); err == nil {
			balance = b
		}
	}
	if err := pricing.ValidateSellAmount(amount, balance); err != nil {
		return nil, &StatusError{Status: sentence(err.Error()), Err: err}
	}
	price, err := s.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return &SellQuote{Amount: amount, Price: price, BNB: pricing.EstimateSell(amount, price)}, nil
}

// MaxSell returns the holder's full token balance, the connected wallet
// when account is zero.
func (s *Service) MaxSell(ctx context.Context, account common.Address) (*big.Int, error) {
	if account == (common.Address{}) {
		a, err := s.Account()
		if err != nil {
			return nil, &StatusError{Status: MsgBalanceUnavailable, Err: err}
		}
		account = a
	}
	bal, err := s.balance(ctx, account, true)
	if err != nil || bal == nil {
		return nil, &StatusError{Status: MsgBalanceUnavailable, Err: err}
	}
	return bal, nil
}

func (s *Service) reason(ctx context.Context, err error) string {
	if err == nil {
		return MsgUnknownError
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	if errors.Is(err, ErrReverted) {
		return sentence(err.Error())
	}
	return sentence(contract.Reason(s.contract.ClassifyError(ctx, err)))
}

// Mint buys tokens with amount BNB from the connected wallet.
//
// Progress: Submitting... -> Processing... -> Minting successful! ->
// Transaction confirmed, tokens minted!
func (s *Service) Mint(ctx context.Context, amount *big.Int, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	res := &Result{Operation: "mint", Amount: amount}

	fail := func(msg string, err error) (*Result, error) {
		res.Status = msg
		progress.emit(StageFailed, msg, res.TxHash)
		s.record(res, start, err)
		return res, &StatusError{Status: msg, Err: err}
	}

	if err := pricing.ValidateMintAmount(amount); err != nil {
		return fail(sentence(err.Error()), err)
	}
	account, err := s.Account()
	if err != nil {
		return fail(MsgMintFailedPrefix+sentence(err.Error()), err)
	}
	res.Account = account.Hex()

	progress.emit(StageSubmitting, MsgSubmitting, "")
	if price, err := s.CurrentPrice(ctx); err == nil {
		res.Price = price
		res.Expected, _ = pricing.EstimateMint(amount, price)
	}
	if err := s.contract.Simulate(ctx, account, amount, "mint"); err != nil {
		return fail(MsgMintFailedPrefix+s.reason(ctx, err), err)
	}

	progress.emit(StageProcessing, MsgProcessing, "")
	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return fail(MsgMintFailedPrefix+s.reason(ctx, err), err)
	}
	tx, err := s.contract.Mint(opts, amount)
	if err != nil {
		return fail(MsgMintFailedPrefix+s.reason(ctx, err), err)
	}
	res.TxHash = tx.Hash().Hex()
	res.Status = MsgMintSuccessful
	progress.emit(StageSent, MsgMintSuccessful, res.TxHash)
	s.logger.Infof("🪙 Mint submitted: %s BNB from %s (tx %s)", token.FormatEther(amount), token.ShortAddress(res.Account), res.TxHash)

	if err := s.confirm(ctx, tx, res); err != nil {
		return fail(MsgMintFailedPrefix+s.reason(ctx, err), err)
	}
	res.Status = MsgMintConfirmed
	progress.emit(StageConfirmed, MsgMintConfirmed, res.TxHash)
	s.record(res, start, nil)
	return res, nil
}

// Sell sells amount tokens from the connected wallet.
//
// Progress: Preparing transaction... -> Processing... -> Sell successful!
// -> Transaction confirmed, tokens sold!
func (s *Service) Sell(ctx context.Context, amount *big.Int, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	res := &Result{Operation: "sell", Amount: amount}

	fail := func(msg string, err error) (*Result, error) {
		res.Status = msg
		progress.emit(StageFailed, msg, res.TxHash)
		s.record(res, start, err)
		return res, &StatusError{Status: msg, Err: err}
	}

	account, err := s.Account()
	if err != nil {
		return fail(MsgSellFailedPrefix+sentence(err.Error()), err)
	}
	res.Account = account.Hex()

	progress.emit(StagePreparing, MsgPreparing, "")
	bal, err := s.balance(ctx, account, true)
	if err != nil {
		return fail(MsgPrepareFailedPrefix+s.reason(ctx, err), err)
	}
	if err := pricing.ValidateSellAmount(amount, bal); err != nil {
		return fail(MsgPrepareFailedPrefix+sentence(err.Error()), err)
	}
	if price, err := s.CurrentPrice(ctx); err == nil {
		res.Price = price
		res.Expected = pricing.EstimateSell(amount, price)
	}
	if err := s.contract.Simulate(ctx, account, nil, "sell", amount); err != nil {
		msg := s.reason(ctx, err)
		if msg == MsgUnknownError {
			msg = MsgCheckAmount
		}
		return fail(MsgPrepareFailedPrefix+msg, err)
	}

	progress.emit(StageProcessing, MsgProcessing, "")
	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return fail(MsgSellFailedPrefix+s.reason(ctx, err), err)
	}
	tx, err := s.contract.Sell(opts, amount)
	if err != nil {
		return fail(MsgSellFailedPrefix+s.reason(ctx, err), err)
	}
	res.TxHash = tx.Hash().Hex()
	res.Status = MsgSellSuccessful
	progress.emit(StageSent, MsgSellSuccessful, res.TxHash)
	s.logger.Infof("💱 Sell submitted: %s tokens from %s (tx %s)", token.FormatEther(amount), token.ShortAddress(res.Account), res.TxHash)

	if err := s.confirm(ctx, tx, res); err != nil {
		return fail(MsgSellFailedPrefix+s.reason(ctx, err), err)
	}
	res.Status = MsgSellConfirmed
	progress.emit(StageConfirmed, MsgSellConfirmed, res.TxHash)
	s.record(res, start, nil)
	return res, nil
}

// confirm waits for the receipt and drops cached reads the transaction
// made stale. Without a waiter the transaction is left unconfirmed.
func (s *Service) confirm(ctx context.Context, tx *types.Transaction, res *Result) error {
	if s.waiter == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()

	receipt, err := s.waiter.WaitMined(ctx, tx)
	if err != nil {
		return err
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	res.GasUsed = receipt.GasUsed
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ErrReverted
	}
	res.Confirmed = true
	if s.cache != nil {
		s.cache.InvalidateAfterTransaction(res.Account)
	}
	return nil
}

// record appends the attempt to the transaction journal.
func (s *Service) record(res *Result, start time.Time, err error) {
	if s.journal == nil {
		return
	}
	entry := token.TransactionLog{
		TxHash:           res.TxHash,
		TokenSymbol:      s.symbol,
		Operation:        res.Operation,
		Account:          res.Account,
		AmountIn:         bigString(res.Amount),
		ExpectedOut:      bigString(res.Expected),
		Price:            bigString(res.Price),
		BlockNumber:      res.BlockNumber,
		GasUsed:          res.GasUsed,
		Status:           token.StatusSuccess,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Metadata:         map[string]interface{}{"status_message": res.Status},
	}
	switch {
	case err != nil:
		entry.Status = token.StatusFailed
		entry.ErrorMessage = err.Error()
	case !res.Confirmed:
		entry.Status = token.StatusPending
	}
	s.journal.Log(entry)
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
