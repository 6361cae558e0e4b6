package monitoring

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

type recordingChannel struct {
	alerts []Alert
	err    error
}

func (r *recordingChannel) SendNotification(a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recordingChannel) GetChannelType() string { return "recording" }

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), token.One)
}

func newTestManager(t *testing.T) (*AlertManager, *recordingChannel, *time.Time) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	am := NewAlertManager(5, logger)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	am.now = func() time.Time { return clock }
	rec := &recordingChannel{}
	am.AddNotificationChannel(rec)
	return am, rec, &clock
}

func TestMetricsFromOverview(t *testing.T) {
	ov := &sale.Overview{
		Milestones:      3,
		ProgressPercent: 42,
		BurnedPercent:   decimal.NewFromInt(10),
		RemainingSupply: tokens(25_000),
		TotalSupply:     tokens(1_000_000),
		CurrentPrice:    big.NewInt(252_800_000_000_000),
	}
	m := MetricsFromOverview(ov)
	assert.True(t, m.Known)
	assert.Equal(t, uint64(3), m.Milestones)
	assert.Equal(t, 42.0, m.ProgressPercent)
	assert.Equal(t, 10.0, m.BurnedPercent)
	assert.InDelta(t, 2.5, m.RemainingSupplyPercent, 1e-9)
}

func TestAlertManager(t *testing.T) {
	t.Run("Low supply fires once and resolves", func(t *testing.T) {
		am, rec, clock := newTestManager(t)

		fired := am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 3})
		require.Len(t, fired, 1)
		assert.Equal(t, "low_remaining_supply", fired[0].Type)
		assert.Equal(t, AlertWarning, fired[0].Level)
		assert.Contains(t, fired[0].Description, "3.00%")
		assert.Len(t, rec.alerts, 1)

		// Still active: no duplicate.
		*clock = clock.Add(time.Minute)
		assert.Empty(t, am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 2}))
		assert.Len(t, am.ActiveAlerts(), 1)

		*clock = clock.Add(time.Minute)
		assert.Empty(t, am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 50}))
		assert.Empty(t, am.ActiveAlerts())

		history := am.History(0)
		require.Len(t, history, 2)
		assert.False(t, history[0].Resolved)
		assert.True(t, history[1].Resolved)
		require.NotNil(t, history[1].ResolvedAt)

		// Within the ten minute cooldown the rule stays quiet.
		assert.Empty(t, am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 1}))
		*clock = clock.Add(10 * time.Minute)
		assert.Len(t, am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 1}), 1)
	})

	t.Run("Exhausted supply is critical", func(t *testing.T) {
		am, _, _ := newTestManager(t)
		fired := am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 0})
		types := make([]string, 0, len(fired))
		for _, a := range fired {
			types = append(types, a.Type)
		}
		assert.ElementsMatch(t, []string{"low_remaining_supply", "supply_exhausted"}, types)
	})

	t.Run("Milestone increase fires a notice", func(t *testing.T) {
		am, rec, _ := newTestManager(t)
		assert.Empty(t, am.Evaluate(SaleMetrics{Known: true, Milestones: 1, RemainingSupplyPercent: 90}))

		fired := am.Evaluate(SaleMetrics{
			Known:                  true,
			Milestones:             3,
			RemainingSupplyPercent: 80,
			CurrentPrice:           big.NewInt(252_800_000_000_000),
		})
		require.Len(t, fired, 1)
		assert.Equal(t, "milestone_reached", fired[0].Type)
		assert.Contains(t, fired[0].Description, "moved up 2 step(s)")
		assert.Equal(t, "252800000000000", fired[0].Metadata["current_price"])
		assert.Len(t, rec.alerts, 1)

		assert.Empty(t, am.Evaluate(SaleMetrics{Known: true, Milestones: 3, RemainingSupplyPercent: 80}))
	})

	t.Run("Supply rules wait for a first read", func(t *testing.T) {
		am, _, _ := newTestManager(t)
		assert.Empty(t, am.Evaluate(SaleMetrics{RPCFailures: 1}))

		fired := am.Evaluate(SaleMetrics{RPCFailures: 3})
		require.Len(t, fired, 1)
		assert.Equal(t, "rpc_unreachable", fired[0].Type)
		assert.Equal(t, AlertCritical, fired[0].Level)
	})

	t.Run("Disabled supply threshold", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		am := NewAlertManager(0, logger)
		for _, r := range am.Rules() {
			if r.ID == "low_remaining_supply" {
				assert.False(t, r.Enabled)
			}
		}
	})

	t.Run("Custom rule replaces by ID", func(t *testing.T) {
		am, _, _ := newTestManager(t)
		am.AddRule(AlertRule{
			ID:        "milestone_near",
			Name:      "Almost There",
			Condition: AlertCondition{Metric: MetricProgressPercent, Operator: ">", Threshold: 50},
			Level:     AlertInfo,
			Enabled:   true,
		})
		fired := am.Evaluate(SaleMetrics{Known: true, ProgressPercent: 60, RemainingSupplyPercent: 90})
		require.Len(t, fired, 1)
		assert.Equal(t, "Almost There", fired[0].Title)
	})

	t.Run("Channel errors are logged", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		am := NewAlertManager(5, logger)
		am.AddNotificationChannel(&recordingChannel{err: errors.New("boom")})
		am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 1})

		var found bool
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel && e.Message == "❌ Failed to send notification via recording: boom" {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestHistoryLimit(t *testing.T) {
	am, _, clock := newTestManager(t)
	for i := 0; i < 4; i++ {
		am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 1})
		*clock = clock.Add(time.Minute)
		am.Evaluate(SaleMetrics{Known: true, RemainingSupplyPercent: 90})
		*clock = clock.Add(time.Hour)
	}
	assert.Len(t, am.History(0), 8)
	last := am.History(3)
	require.Len(t, last, 3)
	assert.True(t, last[2].Resolved)
}
