// Package pricing mirrors the sale contract's price curve so the client can
// estimate mints, sells and future values before touching the chain.
//
// The contract prices linearly in milestones: every BNBMilestone of BNB
// received raises the price by IncreasePercent of the initial price.
// All money math is integer wei on *big.Int.
package pricing

import (
	"errors"
	"math/big"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

const (
	IncreasePercent = 20
	SellFeePercent  = 0
	MaxMilestones   = 101
)

var (
	// DefaultInitialPrice is 0.000158 BNB.
	DefaultInitialPrice = big.NewInt(158_000_000_000_000)
	// DefaultMilestone is 10 BNB.
	DefaultMilestone = new(big.Int).Mul(big.NewInt(10), token.One)
	// DefaultTotalSupply is 1,000,000 tokens.
	DefaultTotalSupply = new(big.Int).Mul(big.NewInt(1_000_000), token.One)
	// MinMint is 0.03 BNB.
	MinMint = new(big.Int).Mul(big.NewInt(3), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
	// MaxMint is 1 BNB.
	MaxMint = new(big.Int).Set(token.One)

	ErrZeroPrice     = errors.New("price must be greater than zero")
	ErrZeroMilestone = errors.New("milestone must be greater than zero")
)

// Curve holds the contract parameters the estimators depend on.
type Curve struct {
	InitialPrice *big.Int
	Milestone    *big.Int
	TotalSupply  *big.Int
}

// DefaultCurve returns the parameters the contract was deployed with.
func DefaultCurve() Curve {
	return Curve{
		InitialPrice: new(big.Int).Set(DefaultInitialPrice),
		Milestone:    new(big.Int).Set(DefaultMilestone),
		TotalSupply:  new(big.Int).Set(DefaultTotalSupply),
	}
}

// WithOnChain overrides the initial price and milestone with values read
// from the contract. Nil or zero values keep the defaults.
func (c Curve) WithOnChain(initialPrice, milestone *big.Int) Curve {
	if initialPrice != nil && initialPrice.Sign() > 0 {
		c.InitialPrice = new(big.Int).Set(initialPrice)
	}
	if milestone != nil && milestone.Sign() > 0 {
		c.Milestone = new(big.Int).Set(milestone)
	}
	return c
}

// PriceAt returns initial + initial*20*milestones/100.
func (c Curve) PriceAt(milestones uint64) *big.Int {
	inc := new(big.Int).Mul(c.InitialPrice, big.NewInt(IncreasePercent))
	inc.Mul(inc, new(big.Int).SetUint64(milestones))
	inc.Quo(inc, big.NewInt(100))
	return inc.Add(inc, c.InitialPrice)
}

// MilestoneCount returns how many full milestones totalBNB has crossed.
func (c Curve) MilestoneCount(totalBNB *big.Int) (uint64, error) {
	if c.Milestone == nil || c.Milestone.Sign() <= 0 {
		return 0, ErrZeroMilestone
	}
	if totalBNB == nil || totalBNB.Sign() <= 0 {
		return 0, nil
	}
	return new(big.Int).Quo(totalBNB, c.Milestone).Uint64(), nil
}

// PriceForReceived returns the price the contract charges after totalBNB
// has been received.
func (c Curve) PriceForReceived(totalBNB *big.Int) (*big.Int, error) {
	m, err := c.MilestoneCount(totalBNB)
	if err != nil {
		return nil, err
	}
	return c.PriceAt(m), nil
}
