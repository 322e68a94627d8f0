package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Session  SessionConfig  `yaml:"session"`
	Retry    RetryConfig    `yaml:"retry"`
	Security SecurityConfig `yaml:"security"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type LedgerConfig struct {
	RPCURLs           map[string]string `yaml:"rpc_urls"` // cluster -> rpc url
	Cluster           string            `yaml:"cluster"`
	Commitment        string            `yaml:"commitment"`
	Timeout           time.Duration     `yaml:"timeout"`
	ConfirmTimeout    time.Duration     `yaml:"confirm_timeout"`
	ConfirmInterval   time.Duration     `yaml:"confirm_interval"`
	TreasuryAddress   string            `yaml:"treasury_address"`
	FeeMarginLamports uint64            `yaml:"fee_margin_lamports"`
}

// PricingConfig is written in SOL; amounts are converted to lamports once at
// load time and frozen into each session's expected amount.
type PricingConfig struct {
	IndividualSOL   string `yaml:"individual_sol"`
	GroupSOL        string `yaml:"group_sol"`
	DiscountPercent int64  `yaml:"discount_percent"`
}

type SessionConfig struct {
	ValidityWindow time.Duration `yaml:"validity_window"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
}

type SecurityConfig struct {
	APIKey string `yaml:"api_key"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if key := os.Getenv("PAYGATE_API_KEY"); key != "" {
		config.Security.APIKey = key
	}
	if pass := os.Getenv("PAYGATE_DB_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Session.ValidityWindow == 0 {
		c.Session.ValidityWindow = 30 * time.Minute
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BackoffBase == 0 {
		c.Retry.BackoffBase = 500 * time.Millisecond
	}
	if c.Retry.BackoffMax == 0 {
		c.Retry.BackoffMax = 10 * time.Second
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = 15 * time.Second
	}
	if c.Ledger.ConfirmTimeout == 0 {
		c.Ledger.ConfirmTimeout = 90 * time.Second
	}
	if c.Ledger.ConfirmInterval == 0 {
		c.Ledger.ConfirmInterval = 2 * time.Second
	}
	if c.Ledger.FeeMarginLamports == 0 {
		c.Ledger.FeeMarginLamports = 5000
	}
	if c.Ledger.Commitment == "" {
		c.Ledger.Commitment = "finalized"
	}
}

// RPCURL resolves the RPC endpoint for the configured cluster.
func (c *LedgerConfig) RPCURL() (string, error) {
	url, exists := c.RPCURLs[c.Cluster]
	if !exists {
		return "", fmt.Errorf("no RPC URL configured for cluster: %s", c.Cluster)
	}
	return url, nil
}

const lamportsPerSOL = 1_000_000_000

// PriceLamports resolves the price table entry for a session kind, applying
// the configured discount once. kind is "individual" or "group".
func (c *PricingConfig) PriceLamports(kind string) (uint64, error) {
	var raw string
	switch kind {
	case "individual":
		raw = c.IndividualSOL
	case "group":
		raw = c.GroupSOL
	default:
		return 0, fmt.Errorf("no price configured for session kind: %s", kind)
	}

	sol, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q for kind %s: %w", raw, kind, err)
	}
	if c.DiscountPercent > 0 {
		factor := decimal.NewFromInt(100 - c.DiscountPercent).Div(decimal.NewFromInt(100))
		sol = sol.Mul(factor)
	}

	lamports := sol.Mul(decimal.NewFromInt(lamportsPerSOL)).IntPart()
	if lamports <= 0 {
		return 0, fmt.Errorf("price for kind %s resolves to %d lamports", kind, lamports)
	}
	return uint64(lamports), nil
}

// LamportsToSOL renders a lamport amount as a SOL decimal string for display.
func LamportsToSOL(lamports uint64) string {
	return decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(lamportsPerSOL)).String()
}
