package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

var (
	ErrInvalidMintAmount = errors.New("please enter a valid amount")
	ErrMintBelowMinimum  = fmt.Errorf("minimum purchase amount is %s BNB", token.FormatEther(MinMint))
	ErrMintAboveMaximum  = fmt.Errorf("maximum purchase amount is %s BNB", token.FormatEther(MaxMint))
	ErrInvalidSellAmount = errors.New("please enter a valid amount")
	ErrExceedsHoldings   = errors.New("sell amount cannot exceed your holdings")
)

// EstimateMint mirrors tokensToMint = msg.value * 1e18 / currentPrice.
func EstimateMint(value, price *big.Int) (*big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, ErrZeroPrice
	}
	if value == nil {
		return new(big.Int), nil
	}
	out := new(big.Int).Mul(value, token.One)
	return out.Quo(out, price), nil
}

// EstimateSell mirrors bnbAmount = tokenAmount * price / 1e18, less the
// sell fee.
func EstimateSell(tokens, price *big.Int) *big.Int {
	if tokens == nil || price == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(tokens, price)
	out.Quo(out, token.One)
	if SellFeePercent > 0 {
		fee := new(big.Int).Mul(out, big.NewInt(SellFeePercent))
		fee.Quo(fee, big.NewInt(100))
		out.Sub(out, fee)
	}
	return out
}

// HoldingValue is the BNB value of balance at price.
func HoldingValue(balance, price *big.Int) *big.Int {
	if balance == nil || price == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(balance, price)
	return out.Quo(out, token.One)
}

// ValidateMintAmount enforces the contract's per-mint BNB bounds.
func ValidateMintAmount(value *big.Int) error {
	switch {
	case value == nil || value.Sign() <= 0:
		return ErrInvalidMintAmount
	case value.Cmp(MinMint) < 0:
		return ErrMintBelowMinimum
	case value.Cmp(MaxMint) > 0:
		return ErrMintAboveMaximum
	}
	return nil
}

// ClampMintAmount pulls value into [MinMint, MaxMint]. Nil or non-positive
// input becomes MinMint.
func ClampMintAmount(value *big.Int) *big.Int {
	switch {
	case value == nil || value.Cmp(MinMint) < 0:
		return new(big.Int).Set(MinMint)
	case value.Cmp(MaxMint) > 0:
		return new(big.Int).Set(MaxMint)
	}
	return new(big.Int).Set(value)
}

// ValidateSellAmount requires 0 < amount <= balance. A nil balance skips
// the holdings check.
func ValidateSellAmount(amount, balance *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidSellAmount
	}
	if balance != nil && amount.Cmp(balance) > 0 {
		return ErrExceedsHoldings
	}
	return nil
}

// Growth is current/initial as a multiple, e.g. 1.2 after one milestone.
func Growth(current, initial *big.Int) decimal.Decimal {
	if current == nil || initial == nil || initial.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(current, 0).DivRound(decimal.NewFromBigInt(initial, 0), 4)
}

// Projection is the outcome of buying now and selling after the price has
// advanced to a given milestone.
type Projection struct {
	Investment    *big.Int        `json:"investment"`
	Milestones    uint64          `json:"milestones"`
	Tokens        *big.Int        `json:"tokens"`
	FuturePrice   *big.Int        `json:"future_price"`
	FutureValue   *big.Int        `json:"future_value"`
	Return        *big.Int        `json:"return"`
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// Project estimates tokens bought with investment at currentPrice and their
// value once the price reaches PriceAt(milestones). The investment is
// clamped to the mint bounds and milestones to MaxMilestones.
func (c Curve) Project(investment, currentPrice *big.Int, milestones uint64) (*Projection, error) {
	investment = ClampMintAmount(investment)
	if milestones > MaxMilestones {
		milestones = MaxMilestones
	}

	tokens, err := EstimateMint(investment, currentPrice)
	if err != nil {
		return nil, err
	}
	futurePrice := c.PriceAt(milestones)
	futureValue := EstimateSell(tokens, futurePrice)
	ret := new(big.Int).Sub(futureValue, investment)

	pct := decimal.NewFromBigInt(ret, 0).
		Div(decimal.NewFromBigInt(investment, 0)).
		Mul(decimal.NewFromInt(100)).
		Round(0)

	return &Projection{
		Investment:    investment,
		Milestones:    milestones,
		Tokens:        tokens,
		FuturePrice:   futurePrice,
		FutureValue:   futureValue,
		Return:        ret,
		ReturnPercent: pct,
	}, nil
}
