package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

// MaxSimulationSteps caps the mints one replay may perform.
const MaxSimulationSteps = 1_000_000

var (
	ErrInvalidStep  = errors.New("simulation step must be greater than zero")
	ErrStepTooSmall = fmt.Errorf("%w: step needs more than %d mints", ErrInvalidStep, MaxSimulationSteps)
)

// ValidateStep checks that replaying supply step tokens at a time stays
// within MaxSimulationSteps. Both errors match ErrInvalidStep.
func ValidateStep(supply, step *big.Int) error {
	if step == nil || step.Sign() <= 0 {
		return ErrInvalidStep
	}
	n, rem := new(big.Int).QuoRem(supply, step, new(big.Int))
	if rem.Sign() > 0 {
		n.Add(n, big.NewInt(1))
	}
	if n.Cmp(big.NewInt(MaxSimulationSteps)) > 0 {
		return ErrStepTooSmall
	}
	return nil
}

// SimulationConfig controls a full-sale replay of the curve.
type SimulationConfig struct {
	// Step is the token amount (wei) bought per mint. Default one token.
	Step *big.Int
	// CheckpointEvery records a checkpoint each time minted supply reaches
	// or passes a multiple of it. Default 100,000 tokens.
	CheckpointEvery *big.Int
}

type PriceChange struct {
	Milestone   uint64   `json:"milestone"`
	OldPrice    *big.Int `json:"old_price"`
	NewPrice    *big.Int `json:"new_price"`
	TotalBNB    *big.Int `json:"total_bnb"`
	TotalMinted *big.Int `json:"total_minted"`
}

type Checkpoint struct {
	TotalMinted *big.Int `json:"total_minted"`
	TotalBNB    *big.Int `json:"total_bnb"`
	Price       *big.Int `json:"price"`
}

type SimulationReport struct {
	InitialPrice *big.Int        `json:"initial_price"`
	TotalMinted  *big.Int        `json:"total_minted"`
	TotalBNB     *big.Int        `json:"total_bnb"`
	FinalPrice   *big.Int        `json:"final_price"`
	Increases    int             `json:"increases"`
	Multiple     decimal.Decimal `json:"multiple"`
	Changes      []PriceChange   `json:"changes"`
	Checkpoints  []Checkpoint    `json:"checkpoints"`
}

// Simulate mints the whole supply Step tokens at a time, paying the price
// in force before each mint and recomputing the price from total BNB
// received after it. The last mint is trimmed to whatever supply remains.
func (c Curve) Simulate(ctx context.Context, cfg SimulationConfig) (*SimulationReport, error) {
	if c.Milestone == nil || c.Milestone.Sign() <= 0 {
		return nil, ErrZeroMilestone
	}
	step := cfg.Step
	if step == nil {
		step = new(big.Int).Set(token.One)
	}
	if err := ValidateStep(c.TotalSupply, step); err != nil {
		return nil, err
	}
	every := cfg.CheckpointEvery
	if every == nil || every.Sign() <= 0 {
		every = new(big.Int).Mul(big.NewInt(100_000), token.One)
	}

	var (
		minted   = new(big.Int)
		received = new(big.Int)
		price    = new(big.Int).Set(c.InitialPrice)
		cost     = new(big.Int)
		amount   = new(big.Int)
		nextCP   = new(big.Int).Set(every)
		report   = &SimulationReport{InitialPrice: new(big.Int).Set(c.InitialPrice)}
	)

	for iter := 0; minted.Cmp(c.TotalSupply) < 0; iter++ {
		if iter%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		amount.Sub(c.TotalSupply, minted)
		if amount.Cmp(step) > 0 {
			amount.Set(step)
		}

		cost.Mul(price, amount)
		cost.Quo(cost, token.One)
		received.Add(received, cost)
		minted.Add(minted, amount)

		m := new(big.Int).Quo(received, c.Milestone).Uint64()
		if next := c.PriceAt(m); next.Cmp(price) != 0 {
			report.Changes = append(report.Changes, PriceChange{
				Milestone:   m,
				OldPrice:    new(big.Int).Set(price),
				NewPrice:    next,
				TotalBNB:    new(big.Int).Set(received),
				TotalMinted: new(big.Int).Set(minted),
			})
			price = next
		}

		if minted.Cmp(nextCP) >= 0 {
			report.Checkpoints = append(report.Checkpoints, Checkpoint{
				TotalMinted: new(big.Int).Set(minted),
				TotalBNB:    new(big.Int).Set(received),
				Price:       new(big.Int).Set(price),
			})
			// A large step may pass several multiples at once.
			nextCP.Quo(minted, every)
			nextCP.Add(nextCP, big.NewInt(1))
			nextCP.Mul(nextCP, every)
		}
	}

	report.TotalMinted = minted
	report.TotalBNB = received
	report.FinalPrice = price
	report.Increases = len(report.Changes)
	report.Multiple = Growth(price, c.InitialPrice)
	return report, nil
}
