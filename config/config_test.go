package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
network: bsc-testnet
contract: "0x00000000000000000000000000000000000000aa"
data_dir: /var/lib/qatar
log_level: debug
price_feed:
  enabled: true
  fallback: 275.5
history:
  start_block: 4200000
  poll_interval: 3s
cache:
  ttl: 10s
server:
  addr: ":9090"
  supply_alert_percent: 10
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "qatar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "bsc", cfg.Network)
	assert.Equal(t, int64(56), cfg.ChainID)
	assert.Equal(t, "https://bsc-dataseed.binance.org/", cfg.RPCURL)
	assert.Equal(t, 5*time.Second, cfg.Server.RefreshInterval)
	assert.Equal(t, 300.0, cfg.PriceFeed.Fallback)

	_, err = cfg.ContractAddress()
	assert.ErrorIs(t, err, ErrNoContract)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "bsc-testnet", cfg.Network)
	assert.Equal(t, int64(97), cfg.ChainID)
	assert.Equal(t, "https://testnet.bscscan.com", cfg.Explorer)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.PriceFeed.Enabled)
	assert.Equal(t, 275.5, cfg.PriceFeed.Fallback)
	assert.Equal(t, "BNBUSDT", cfg.PriceFeed.Symbol)
	assert.Equal(t, uint64(4200000), cfg.History.StartBlock)
	assert.Equal(t, 3*time.Second, cfg.History.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, int64(10), cfg.Server.SupplyAlertPercent)
	assert.Equal(t, filepath.Join("/var/lib/qatar", "history.db"), cfg.HistoryPath())

	addr, err := cfg.ContractAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)
}

func TestEnvironmentAndOverrides(t *testing.T) {
	t.Setenv("QATAR_CONTRACT", "0x00000000000000000000000000000000000000bb")
	t.Setenv("QATAR_PRIVATE_KEY", "abc123")
	t.Setenv("QATAR_PRICE_FEED", "false")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleYAML), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Wallet.PrivateKey)
	assert.False(t, cfg.PriceFeed.Enabled)
	assert.Equal(t, "warn", cfg.LogLevel)
	addr, err := cfg.ContractAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xbb"), addr)

	cfg, err = Load(writeConfig(t, sampleYAML), Overrides{
		Network:  "bsc",
		Contract: "0x00000000000000000000000000000000000000cc",
		LogLevel: "error",
		Compact:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(56), cfg.ChainID)
	assert.Equal(t, "https://bscscan.com", cfg.Explorer)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Compact)
	assert.Equal(t, "0x00000000000000000000000000000000000000cc", cfg.Contract)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Overrides{})
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "network: [oops"), Overrides{})
	assert.Error(t, err)

	_, err = Load("", Overrides{Network: "solana"})
	assert.ErrorContains(t, err, "unsupported network")

	cfg := Default()
	cfg.Contract = "not-an-address"
	_, err = cfg.ContractAddress()
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestNetworks(t *testing.T) {
	assert.Equal(t, []string{"bsc", "bsc-testnet"}, Networks())
	n, err := GetNetwork("bsc")
	require.NoError(t, err)
	assert.Equal(t, "https://bscscan.com/tx/0xabc", n.TxURL("0xabc"))
	assert.Equal(t, "0xabc", Network{}.TxURL("0xabc"))
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "nonsense"
	assert.Equal(t, "info", cfg.NewLogger().GetLevel().String())
	cfg.LogLevel = "debug"
	assert.Equal(t, "debug", cfg.NewLogger().GetLevel().String())
}
