package monitoring

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
)

type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Metric names understood by AlertCondition.
const (
	MetricRemainingSupplyPercent = "remaining_supply_percent"
	MetricProgressPercent        = "progress_percent"
	MetricBurnedPercent          = "burned_percent"
	MetricRPCFailures            = "rpc_failures"
)

// Alert is one fired rule or milestone notice.
type Alert struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Level       AlertLevel             `json:"level"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
	Resolved    bool                   `json:"resolved"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// AlertCondition compares one metric against a threshold.
type AlertCondition struct {
	Metric    string  `json:"metric"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
}

type AlertRule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Condition   AlertCondition `json:"condition"`
	Level       AlertLevel     `json:"level"`
	Enabled     bool           `json:"enabled"`
	Cooldown    time.Duration  `json:"cooldown"`
	LastFired   time.Time      `json:"last_fired"`
}

// SaleMetrics is the subset of sale state the alert rules look at.
type SaleMetrics struct {
	Milestones             uint64    `json:"milestones"`
	ProgressPercent        float64   `json:"progress_percent"`
	RemainingSupplyPercent float64   `json:"remaining_supply_percent"`
	BurnedPercent          float64   `json:"burned_percent"`
	RPCFailures            int       `json:"rpc_failures"`
	CurrentPrice           *big.Int  `json:"current_price,omitempty"`
	LastUpdated            time.Time `json:"last_updated"`
	// Known is false until one overview has been read.
	Known bool `json:"known"`
}

// MetricsFromOverview derives alert metrics from a dashboard snapshot.
func MetricsFromOverview(ov *sale.Overview) SaleMetrics {
	m := SaleMetrics{
		Milestones:      ov.Milestones,
		ProgressPercent: float64(ov.ProgressPercent),
		BurnedPercent:   ov.BurnedPercent.InexactFloat64(),
		CurrentPrice:    ov.CurrentPrice,
		LastUpdated:     ov.UpdatedAt,
		Known:           true,
	}
	if ov.TotalSupply != nil && ov.TotalSupply.Sign() > 0 && ov.RemainingSupply != nil {
		m.RemainingSupplyPercent = decimal.NewFromBigInt(ov.RemainingSupply, 0).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromBigInt(ov.TotalSupply, 0)).
			InexactFloat64()
	}
	return m
}

// NotificationChannel delivers fired alerts somewhere.
type NotificationChannel interface {
	SendNotification(alert Alert) error
	GetChannelType() string
}

// ConsoleNotificationChannel writes alerts to the logger.
type ConsoleNotificationChannel struct {
	Logger *logrus.Logger
}

func (c *ConsoleNotificationChannel) SendNotification(alert Alert) error {
	emoji := map[AlertLevel]string{
		AlertInfo:     "ℹ️",
		AlertWarning:  "⚠️",
		AlertCritical: "🚨",
	}
	logger := c.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{"alert": alert.Type, "level": alert.Level})
	msg := fmt.Sprintf("%s %s: %s", emoji[alert.Level], alert.Title, alert.Description)
	switch alert.Level {
	case AlertCritical:
		entry.Error(msg)
	case AlertWarning:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
	return nil
}

func (c *ConsoleNotificationChannel) GetChannelType() string { return "console" }

// AlertManager evaluates rules against sale metrics, keeps the active set
// and a bounded history, and fans fired alerts out to its channels.
type AlertManager struct {
	mu             sync.RWMutex
	rules          []AlertRule
	active         map[string]Alert
	history        []Alert
	channels       []NotificationChannel
	maxHistorySize int
	lastMilestone  uint64
	seenMilestone  bool
	logger         *logrus.Logger
	now            func() time.Time
}

// NewAlertManager installs the default rules. supplyAlertPercent is the
// remaining-supply share below which a warning fires; zero disables it.
func NewAlertManager(supplyAlertPercent int64, logger *logrus.Logger) *AlertManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	am := &AlertManager{
		active:         make(map[string]Alert),
		maxHistorySize: 500,
		logger:         logger,
		now:            time.Now,
	}
	am.channels = append(am.channels, &ConsoleNotificationChannel{Logger: logger})
	am.addDefaultRules(supplyAlertPercent)
	return am
}

func (am *AlertManager) addDefaultRules(supplyAlertPercent int64) {
	am.rules = append(am.rules,
		AlertRule{
			ID:          "low_remaining_supply",
			Name:        "Low Remaining Supply",
			Description: "Remaining mintable supply is running out",
			Condition:   AlertCondition{Metric: MetricRemainingSupplyPercent, Operator: "<", Threshold: float64(supplyAlertPercent)},
			Level:       AlertWarning,
			Enabled:     supplyAlertPercent > 0,
			Cooldown:    10 * time.Minute,
		},
		AlertRule{
			ID:          "supply_exhausted",
			Name:        "Supply Exhausted",
			Description: "No tokens left to mint",
			Condition:   AlertCondition{Metric: MetricRemainingSupplyPercent, Operator: "<=", Threshold: 0},
			Level:       AlertCritical,
			Enabled:     true,
			Cooldown:    time.Hour,
		},
		AlertRule{
			ID:          "milestone_near",
			Name:        "Price Increase Near",
			Description: "Current milestone is almost filled",
			Condition:   AlertCondition{Metric: MetricProgressPercent, Operator: ">=", Threshold: 90},
			Level:       AlertInfo,
			Enabled:     true,
			Cooldown:    5 * time.Minute,
		},
		AlertRule{
			ID:          "rpc_unreachable",
			Name:        "RPC Unreachable",
			Description: "Contract reads are failing",
			Condition:   AlertCondition{Metric: MetricRPCFailures, Operator: ">=", Threshold: 3},
			Level:       AlertCritical,
			Enabled:     true,
			Cooldown:    time.Minute,
		},
	)
}

// AddRule appends a rule, replacing any rule with the same ID.
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := range am.rules {
		if am.rules[i].ID == rule.ID {
			am.rules[i] = rule
			return
		}
	}
	am.rules = append(am.rules, rule)
}

func (am *AlertManager) Rules() []AlertRule {
	am.mu.RLock()
	defer am.mu.RUnlock()
	out := make([]AlertRule, len(am.rules))
	copy(out, am.rules)
	return out
}

func (am *AlertManager) AddNotificationChannel(ch NotificationChannel) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.channels = append(am.channels, ch)
}

// Evaluate checks every rule against metrics and returns the alerts that
// fired. A rule whose condition clears resolves its active alert. A rise in
// the milestone count fires a one-off price increase notice.
func (am *AlertManager) Evaluate(metrics SaleMetrics) []Alert {
	am.mu.Lock()
	now := am.now()
	var fired []Alert

	for i := range am.rules {
		rule := &am.rules[i]
		if !rule.Enabled {
			continue
		}
		// Supply figures are meaningless before the first successful read.
		if !metrics.Known && rule.Condition.Metric != MetricRPCFailures {
			continue
		}

		met := evaluateCondition(rule.Condition, metrics)
		current, active := am.active[rule.ID]
		switch {
		case met && !active:
			if !rule.LastFired.IsZero() && now.Sub(rule.LastFired) < rule.Cooldown {
				continue
			}
			alert := Alert{
				ID:          fmt.Sprintf("%s_%d", rule.ID, now.UnixNano()),
				Type:        rule.ID,
				Level:       rule.Level,
				Title:       rule.Name,
				Description: formatAlertDescription(*rule, metrics),
				Timestamp:   now,
				Metadata: map[string]interface{}{
					"metric":    rule.Condition.Metric,
					"threshold": rule.Condition.Threshold,
				},
			}
			am.active[rule.ID] = alert
			am.appendHistory(alert)
			rule.LastFired = now
			fired = append(fired, alert)
		case !met && active:
			resolvedAt := now
			current.Resolved = true
			current.ResolvedAt = &resolvedAt
			delete(am.active, rule.ID)
			am.appendHistory(current)
			am.logger.Infof("✅ Alert resolved: %s", current.Title)
		}
	}

	if metrics.Known {
		if am.seenMilestone && metrics.Milestones > am.lastMilestone {
			alert := Alert{
				ID:    fmt.Sprintf("milestone_reached_%d", metrics.Milestones),
				Type:  "milestone_reached",
				Level: AlertInfo,
				Title: "Price Increased",
				Description: fmt.Sprintf("Milestone %d reached, price moved up %d step(s)",
					metrics.Milestones, metrics.Milestones-am.lastMilestone),
				Timestamp: now,
				Metadata:  map[string]interface{}{"milestones": metrics.Milestones},
			}
			if metrics.CurrentPrice != nil {
				alert.Metadata["current_price"] = metrics.CurrentPrice.String()
			}
			am.appendHistory(alert)
			fired = append(fired, alert)
		}
		am.lastMilestone = metrics.Milestones
		am.seenMilestone = true
	}

	channels := make([]NotificationChannel, len(am.channels))
	copy(channels, am.channels)
	am.mu.Unlock()

	for _, alert := range fired {
		for _, ch := range channels {
			if err := ch.SendNotification(alert); err != nil {
				am.logger.Errorf("❌ Failed to send notification via %s: %v", ch.GetChannelType(), err)
			}
		}
	}
	return fired
}

func (am *AlertManager) appendHistory(alert Alert) {
	am.history = append(am.history, alert)
	if len(am.history) > am.maxHistorySize {
		am.history = am.history[len(am.history)-am.maxHistorySize:]
	}
}

func evaluateCondition(c AlertCondition, m SaleMetrics) bool {
	var v float64
	switch c.Metric {
	case MetricRemainingSupplyPercent:
		v = m.RemainingSupplyPercent
	case MetricProgressPercent:
		v = m.ProgressPercent
	case MetricBurnedPercent:
		v = m.BurnedPercent
	case MetricRPCFailures:
		v = float64(m.RPCFailures)
	default:
		return false
	}
	switch c.Operator {
	case ">":
		return v > c.Threshold
	case "<":
		return v < c.Threshold
	case ">=":
		return v >= c.Threshold
	case "<=":
		return v <= c.Threshold
	case "==":
		return v == c.Threshold
	case "!=":
		return v != c.Threshold
	}
	return false
}

func formatAlertDescription(rule AlertRule, m SaleMetrics) string {
	var current string
	switch rule.Condition.Metric {
	case MetricRemainingSupplyPercent:
		current = fmt.Sprintf("%.2f%%", m.RemainingSupplyPercent)
	case MetricProgressPercent:
		current = fmt.Sprintf("%.0f%%", m.ProgressPercent)
	case MetricBurnedPercent:
		current = fmt.Sprintf("%.0f%%", m.BurnedPercent)
	case MetricRPCFailures:
		current = fmt.Sprintf("%d consecutive failures", m.RPCFailures)
	default:
		current = "unknown"
	}
	return fmt.Sprintf("%s: current value %s %s threshold %v",
		rule.Description, current, rule.Condition.Operator, rule.Condition.Threshold)
}

// ActiveAlerts returns unresolved alerts.
func (am *AlertManager) ActiveAlerts() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()
	out := make([]Alert, 0, len(am.active))
	for _, a := range am.active {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// History returns up to limit of the most recent alerts, oldest first.
// limit <= 0 returns everything kept.
func (am *AlertManager) History(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()
	if limit <= 0 || limit > len(am.history) {
		limit = len(am.history)
	}
	out := make([]Alert, limit)
	copy(out, am.history[len(am.history)-limit:])
	return out
}
