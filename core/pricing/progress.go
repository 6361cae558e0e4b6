package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Progress describes where the sale sits inside the current milestone.
type Progress struct {
	Milestones   uint64   `json:"milestones"`
	Percent      int64    `json:"percent"`
	Needed       *big.Int `json:"needed"`
	CurrentPrice *big.Int `json:"current_price"`
	NextPrice    *big.Int `json:"next_price"`
}

// Progress returns the share of the current milestone already filled
// (integer percent) and the BNB still needed for the next price increase.
func (c Curve) Progress(totalBNB *big.Int) (Progress, error) {
	if c.Milestone == nil || c.Milestone.Sign() <= 0 {
		return Progress{}, ErrZeroMilestone
	}
	if totalBNB == nil || totalBNB.Sign() < 0 {
		totalBNB = new(big.Int)
	}

	count, rem := new(big.Int).QuoRem(totalBNB, c.Milestone, new(big.Int))
	pct := new(big.Int).Mul(rem, big.NewInt(100))
	pct.Quo(pct, c.Milestone)

	m := count.Uint64()
	return Progress{
		Milestones:   m,
		Percent:      pct.Int64(),
		Needed:       new(big.Int).Sub(c.Milestone, rem),
		CurrentPrice: c.PriceAt(m),
		NextPrice:    c.PriceAt(m + 1),
	}, nil
}

// BurnedPercent is burned*100/minted truncated to a whole percent, as the
// contract dashboard reports it. Zero minted yields zero.
func BurnedPercent(burned, minted *big.Int) decimal.Decimal {
	if burned == nil || minted == nil || minted.Sign() <= 0 {
		return decimal.Zero
	}
	p := new(big.Int).Mul(burned, big.NewInt(100))
	p.Quo(p, minted)
	return decimal.NewFromBigInt(p, 0)
}

// AvailableToMint is max(0, TotalSupply - minted).
func (c Curve) AvailableToMint(minted *big.Int) *big.Int {
	if minted == nil {
		return new(big.Int).Set(c.TotalSupply)
	}
	left := new(big.Int).Sub(c.TotalSupply, minted)
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}
