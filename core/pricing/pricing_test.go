package pricing

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

func bnb(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := token.ParseEther(s)
	require.NoError(t, err)
	return v
}

func TestPriceCurve(t *testing.T) {
	c := DefaultCurve()

	assert.Equal(t, "158000000000000", c.PriceAt(0).String())
	assert.Equal(t, "189600000000000", c.PriceAt(1).String())
	assert.Equal(t, "474000000000000", c.PriceAt(10).String())
	assert.Equal(t, "3349600000000000", c.PriceAt(MaxMilestones).String())

	m, err := c.MilestoneCount(bnb(t, "25"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m)

	m, err = c.MilestoneCount(nil)
	require.NoError(t, err)
	assert.Zero(t, m)

	price, err := c.PriceForReceived(bnb(t, "9.99"))
	require.NoError(t, err)
	assert.Equal(t, c.InitialPrice.String(), price.String())

	_, err = Curve{InitialPrice: DefaultInitialPrice, Milestone: new(big.Int)}.MilestoneCount(bnb(t, "1"))
	assert.ErrorIs(t, err, ErrZeroMilestone)
}

func TestWithOnChain(t *testing.T) {
	c := DefaultCurve().WithOnChain(big.NewInt(1000), nil)
	assert.Equal(t, int64(1000), c.InitialPrice.Int64())
	assert.Equal(t, DefaultMilestone.String(), c.Milestone.String())

	c = DefaultCurve().WithOnChain(new(big.Int), bnb(t, "5"))
	assert.Equal(t, DefaultInitialPrice.String(), c.InitialPrice.String())
	assert.Equal(t, bnb(t, "5").String(), c.Milestone.String())
}

func TestEstimates(t *testing.T) {
	t.Run("Mint", func(t *testing.T) {
		out, err := EstimateMint(bnb(t, "0.1"), DefaultInitialPrice)
		require.NoError(t, err)
		assert.Equal(t, "632911392405063291139", out.String())

		_, err = EstimateMint(bnb(t, "0.1"), new(big.Int))
		assert.ErrorIs(t, err, ErrZeroPrice)
	})

	t.Run("Sell", func(t *testing.T) {
		out := EstimateSell(bnb(t, "1000"), DefaultInitialPrice)
		assert.Equal(t, "158000000000000000", out.String())
		assert.Zero(t, EstimateSell(nil, DefaultInitialPrice).Sign())
	})

	t.Run("Holding value", func(t *testing.T) {
		out := HoldingValue(bnb(t, "500"), big.NewInt(189_600_000_000_000))
		assert.Equal(t, "94800000000000000", out.String())
	})
}

func TestMintBounds(t *testing.T) {
	tests := []struct {
		name   string
		amount *big.Int
		want   error
	}{
		{"nil", nil, ErrInvalidMintAmount},
		{"zero", new(big.Int), ErrInvalidMintAmount},
		{"below minimum", bnb(t, "0.029"), ErrMintBelowMinimum},
		{"minimum", bnb(t, "0.03"), nil},
		{"maximum", bnb(t, "1"), nil},
		{"above maximum", bnb(t, "1.01"), ErrMintAboveMaximum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMintAmount(tt.amount)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, MinMint.String(), ClampMintAmount(nil).String())
	assert.Equal(t, MinMint.String(), ClampMintAmount(bnb(t, "0.01")).String())
	assert.Equal(t, MaxMint.String(), ClampMintAmount(bnb(t, "7")).String())
	assert.Equal(t, bnb(t, "0.5").String(), ClampMintAmount(bnb(t, "0.5")).String())
	assert.Equal(t, "minimum purchase amount is 0.03 BNB", ErrMintBelowMinimum.Error())
}

func TestValidateSellAmount(t *testing.T) {
	balance := bnb(t, "100")
	assert.NoError(t, ValidateSellAmount(bnb(t, "100"), balance))
	assert.NoError(t, ValidateSellAmount(bnb(t, "1000"), nil))
	assert.ErrorIs(t, ValidateSellAmount(new(big.Int), balance), ErrInvalidSellAmount)
	assert.ErrorIs(t, ValidateSellAmount(bnb(t, "100.5"), balance), ErrExceedsHoldings)
}

func TestGrowth(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1.2").Equal(Growth(big.NewInt(189_600_000_000_000), DefaultInitialPrice)))
	assert.True(t, Growth(big.NewInt(1), nil).IsZero())
}

func TestProject(t *testing.T) {
	c := DefaultCurve()

	p, err := c.Project(bnb(t, "0.1"), DefaultInitialPrice, 10)
	require.NoError(t, err)
	assert.Equal(t, "632911392405063291139", p.Tokens.String())
	assert.Equal(t, "474000000000000", p.FuturePrice.String())
	assert.Equal(t, "299999999999999999", p.FutureValue.String())
	assert.Equal(t, "200", p.ReturnPercent.String())

	// Out-of-range input is clamped rather than rejected.
	p, err = c.Project(bnb(t, "5"), DefaultInitialPrice, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxMint.String(), p.Investment.String())
	assert.Equal(t, uint64(MaxMilestones), p.Milestones)
	assert.Equal(t, "2020", p.ReturnPercent.String())

	p, err = c.Project(bnb(t, "0.01"), DefaultInitialPrice, 0)
	require.NoError(t, err)
	assert.Equal(t, MinMint.String(), p.Investment.String())
	assert.Equal(t, "189873417721518987341", p.Tokens.String())

	_, err = c.Project(bnb(t, "0.1"), nil, 1)
	assert.ErrorIs(t, err, ErrZeroPrice)
}

func TestProgress(t *testing.T) {
	c := DefaultCurve()

	p, err := c.Progress(bnb(t, "25"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.Milestones)
	assert.Equal(t, int64(50), p.Percent)
	assert.Equal(t, bnb(t, "5").String(), p.Needed.String())
	assert.Equal(t, c.PriceAt(2).String(), p.CurrentPrice.String())
	assert.Equal(t, c.PriceAt(3).String(), p.NextPrice.String())

	p, err = c.Progress(nil)
	require.NoError(t, err)
	assert.Zero(t, p.Percent)
	assert.Equal(t, c.Milestone.String(), p.Needed.String())

	assert.Equal(t, "25", BurnedPercent(bnb(t, "250"), bnb(t, "1000")).String())
	assert.Equal(t, "33", BurnedPercent(big.NewInt(1), big.NewInt(3)).String())
	assert.True(t, BurnedPercent(big.NewInt(5), nil).IsZero())

	assert.Equal(t, bnb(t, "999000").String(), c.AvailableToMint(bnb(t, "1000")).String())
	assert.Zero(t, c.AvailableToMint(bnb(t, "2000000")).Sign())
	assert.Equal(t, DefaultTotalSupply.String(), c.AvailableToMint(nil).String())
}

func TestSimulate(t *testing.T) {
	c := DefaultCurve()

	report, err := c.Simulate(context.Background(), SimulationConfig{Step: bnb(t, "1000")})
	require.NoError(t, err)

	assert.Equal(t, DefaultTotalSupply.String(), report.TotalMinted.String())
	assert.Equal(t, "1011958400000000000000", report.TotalBNB.String())
	assert.Equal(t, "3349600000000000", report.FinalPrice.String())
	assert.Equal(t, 101, report.Increases)
	assert.True(t, decimal.RequireFromString("21.2").Equal(report.Multiple))

	first := report.Changes[0]
	assert.Equal(t, uint64(1), first.Milestone)
	assert.Equal(t, "158000000000000", first.OldPrice.String())
	assert.Equal(t, "189600000000000", first.NewPrice.String())
	assert.Equal(t, bnb(t, "64000").String(), first.TotalMinted.String())

	require.Len(t, report.Checkpoints, 10)
	assert.Equal(t, bnb(t, "100000").String(), report.Checkpoints[0].TotalMinted.String())
	assert.Equal(t, "16937600000000000000", report.Checkpoints[0].TotalBNB.String())
	assert.Equal(t, "189600000000000", report.Checkpoints[0].Price.String())
}

func TestSimulateSingleTokenSteps(t *testing.T) {
	if testing.Short() {
		t.Skip("mints the whole supply one token at a time")
	}
	report, err := DefaultCurve().Simulate(context.Background(), SimulationConfig{})
	require.NoError(t, err)
	assert.Equal(t, "1017842193600000000000", report.TotalBNB.String())
	assert.Equal(t, bnb(t, "63292").String(), report.Changes[0].TotalMinted.String())
	assert.Equal(t, 101, report.Increases)
}

func TestSimulateGuards(t *testing.T) {
	_, err := DefaultCurve().Simulate(context.Background(), SimulationConfig{Step: new(big.Int)})
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = DefaultCurve().Simulate(context.Background(), SimulationConfig{Step: big.NewInt(1_000_000)})
	assert.ErrorIs(t, err, ErrStepTooSmall)
	assert.ErrorIs(t, err, ErrInvalidStep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DefaultCurve().Simulate(ctx, SimulationConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateStep(t *testing.T) {
	supply := DefaultTotalSupply
	assert.NoError(t, ValidateStep(supply, token.One))
	assert.NoError(t, ValidateStep(supply, bnb(t, "1000")))
	// 1,000,000 tokens in steps just under one token needs 1,000,001 mints.
	assert.ErrorIs(t, ValidateStep(supply, bnb(t, "0.999999")), ErrStepTooSmall)
	assert.ErrorIs(t, ValidateStep(supply, nil), ErrInvalidStep)
	assert.ErrorIs(t, ValidateStep(supply, big.NewInt(-1)), ErrInvalidStep)
}

func TestSimulateCheckpointsWithUnevenStep(t *testing.T) {
	report, err := DefaultCurve().Simulate(context.Background(), SimulationConfig{Step: bnb(t, "3000")})
	require.NoError(t, err)

	require.Len(t, report.Checkpoints, 10)
	// 102,000 is the first multiple of 3,000 past 100,000.
	assert.Equal(t, bnb(t, "102000").String(), report.Checkpoints[0].TotalMinted.String())
	assert.Equal(t, bnb(t, "201000").String(), report.Checkpoints[1].TotalMinted.String())
	// The trimmed final mint lands exactly on the supply.
	assert.Equal(t, DefaultTotalSupply.String(), report.Checkpoints[9].TotalMinted.String())

	// Steps larger than the interval still record one checkpoint per mint.
	report, err = DefaultCurve().Simulate(context.Background(), SimulationConfig{
		Step:            bnb(t, "250000"),
		CheckpointEvery: bnb(t, "100000"),
	})
	require.NoError(t, err)
	assert.Len(t, report.Checkpoints, 4)
}
