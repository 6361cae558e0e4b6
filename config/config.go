// Package config loads client settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Shivam-Patel-G/qatar-sale/core/history"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricefeed"
	"github.com/Shivam-Patel-G/qatar-sale/core/wallet"
)

const DefaultFile = "qatar.yaml"

var (
	ErrNoContract      = errors.New("contract address is not configured (set --contract or QATAR_CONTRACT)")
	ErrInvalidContract = errors.New("contract address is not a valid hex address")
)

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	ValidationTTL time.Duration `yaml:"validation_ttl"`
	Secret        string        `yaml:"secret"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// SupplyAlertPercent raises an alert when remaining supply falls
	// below this share of total supply.
	SupplyAlertPercent int64 `yaml:"supply_alert_percent"`
	Listen             bool  `yaml:"listen"`
}

type Config struct {
	Network     string `yaml:"network"`
	RPCURL      string `yaml:"rpc_url"`
	ChainID     int64  `yaml:"chain_id"`
	Explorer    string `yaml:"explorer"`
	Contract    string `yaml:"contract"`
	TokenSymbol string `yaml:"token_symbol"`

	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
	ColoredLogs bool   `yaml:"colored_logs"`
	Compact     bool   `yaml:"compact"`

	RPCTimeout     time.Duration `yaml:"rpc_timeout"`
	ReceiptTimeout time.Duration `yaml:"receipt_timeout"`

	Wallet    wallet.Config          `yaml:"wallet"`
	PriceFeed pricefeed.Config       `yaml:"price_feed"`
	History   history.ListenerConfig `yaml:"history"`
	Cache     CacheConfig            `yaml:"cache"`
	Server    ServerConfig           `yaml:"server"`
}

// Overrides are command-line values that beat every other source.
type Overrides struct {
	Network  string
	RPCURL   string
	Contract string
	LogLevel string
	Compact  bool
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Network:        "bsc",
		TokenSymbol:    "Qatar",
		DataDir:        "./data",
		LogLevel:       "info",
		ColoredLogs:    true,
		RPCTimeout:     15 * time.Second,
		ReceiptTimeout: 2 * time.Minute,
		PriceFeed: pricefeed.Config{
			Symbol:   "BNBUSDT",
			Fallback: 300,
			CacheTTL: 30 * time.Second,
		},
		History: history.ListenerConfig{
			PollInterval: 15 * time.Second,
			MaxRange:     5000,
			Lookback:     5000,
		},
		Cache: CacheConfig{
			TTL:           5 * time.Second,
			ValidationTTL: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			RefreshInterval:    5 * time.Second,
			SupplyAlertPercent: 5,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// DefaultFile is read if present.
func Load(path string, o Overrides) (*Config, error) {
	cfg := Default()

	// A missing .env is normal.
	_ = godotenv.Load()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvironment()
	cfg.applyOverrides(o)

	if err := cfg.resolveNetwork(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment() {
	c.Network = getEnv("QATAR_NETWORK", c.Network)
	c.RPCURL = getEnv("QATAR_RPC_URL", c.RPCURL)
	c.Contract = getEnv("QATAR_CONTRACT", c.Contract)
	c.DataDir = getEnv("QATAR_DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ColoredLogs = getEnvBool("ENABLE_COLORED_LOGS", c.ColoredLogs)
	c.ChainID = int64(getEnvInt("QATAR_CHAIN_ID", int(c.ChainID)))

	c.Wallet.PrivateKey = getEnv("QATAR_PRIVATE_KEY", c.Wallet.PrivateKey)
	c.Wallet.Keystore = getEnv("QATAR_KEYSTORE", c.Wallet.Keystore)
	c.Wallet.Passphrase = getEnv("QATAR_KEYSTORE_PASSPHRASE", c.Wallet.Passphrase)

	c.PriceFeed.Enabled = getEnvBool("QATAR_PRICE_FEED", c.PriceFeed.Enabled)
	c.Cache.Secret = getEnv("QATAR_CACHE_SECRET", c.Cache.Secret)
	c.Server.Addr = getEnv("QATAR_SERVER_ADDR", c.Server.Addr)
	c.Server.Listen = getEnvBool("QATAR_SERVER_LISTEN", c.Server.Listen)
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Network != "" && o.Network != c.Network {
		// A different network invalidates file-level endpoints.
		c.Network = o.Network
		c.RPCURL = ""
		c.ChainID = 0
		c.Explorer = ""
	}
	if o.RPCURL != "" {
		c.RPCURL = o.RPCURL
	}
	if o.Contract != "" {
		c.Contract = o.Contract
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Compact {
		c.Compact = true
	}
}

func (c *Config) resolveNetwork() error {
	n, err := GetNetwork(c.Network)
	if err != nil {
		return err
	}
	if c.RPCURL == "" {
		c.RPCURL = n.RPCURL
	}
	if c.ChainID == 0 {
		c.ChainID = n.ChainID
	}
	if c.Explorer == "" {
		c.Explorer = n.Explorer
	}
	return nil
}

// ContractAddress validates and returns the sale contract address.
func (c *Config) ContractAddress() (common.Address, error) {
	if strings.TrimSpace(c.Contract) == "" {
		return common.Address{}, ErrNoContract
	}
	if !common.IsHexAddress(c.Contract) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidContract, c.Contract)
	}
	return common.HexToAddress(c.Contract), nil
}

// NetworkInfo returns the effective network, including any overrides.
func (c *Config) NetworkInfo() Network {
	return Network{Name: c.Network, ChainID: c.ChainID, RPCURL: c.RPCURL, Explorer: c.Explorer}
}

func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "holders")
}

func (c *Config) JournalDir() string {
	return filepath.Join(c.DataDir, "logs")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
