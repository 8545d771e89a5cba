package core

import (
	"strings"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

const (
	// EnvProduction live prices and real chains
	EnvProduction = "production"
	// EnvSimulation deterministic prices and simulated chains
	EnvSimulation = "simulation"
)

// Config lending config
type Config struct {
	App      App                 `json:"app"`
	DB       db.Config           `json:"db"`
	Redis    Redis               `json:"redis"`
	Price    PriceConfig         `json:"price"`
	Quote    QuoteConfig         `json:"quote"`
	Loan     LoanConfig          `json:"loan"`
	FeeTiers map[string]*FeeTier `json:"fee_tiers"`
	Chains   []*ChainConfig      `json:"chains"`
	Workers  WorkersConfig       `json:"workers"`
	Admins   []string            `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// Tier fee tier by name, falls back to the default tier
func (c *Config) Tier(name string) *FeeTier {
	if t, ok := c.FeeTiers[strings.ToLower(name)]; ok && t != nil {
		return t
	}

	if t, ok := c.FeeTiers[DefaultTier]; ok && t != nil {
		return t
	}

	return &FeeTier{}
}

// Chain chain config by network
func (c *Config) Chain(network string) (*ChainConfig, bool) {
	for _, chain := range c.Chains {
		if strings.EqualFold(chain.Network, network) {
			return chain, true
		}
	}

	return nil, false
}

// App app config
type App struct {
	AESKey      string `json:"aes_key"`
	Location    string `json:"location"`
	Environment string `json:"environment"`
}

// Simulated deterministic prices & simulated chains
func (a App) Simulated() bool {
	return a.Environment != EnvProduction
}

// Redis redis config
type Redis struct {
	Addr     string `json:"addr"`
	DB       int    `json:"db"`
	QueueKey string `json:"queue_key"`
}

// PriceConfig price resolver config
type PriceConfig struct {
	EndPoint       string             `json:"end_point"`
	TTLSeconds     int64              `json:"ttl_seconds"`
	TimeoutSeconds int64              `json:"timeout_seconds"`
	Fixed          map[string]float64 `json:"fixed"`
}

// TTL cache ttl of live prices
func (p PriceConfig) TTL() time.Duration {
	return seconds(p.TTLSeconds, 30)
}

// Timeout bounded time of a live lookup
func (p PriceConfig) Timeout() time.Duration {
	return seconds(p.TimeoutSeconds, 5)
}

// FixedPrice deterministic price of the symbol
func (p PriceConfig) FixedPrice(symbol string) (decimal.Decimal, bool) {
	for k, v := range p.Fixed {
		if strings.EqualFold(k, symbol) && v > 0 {
			return decimal.NewFromFloat(v), true
		}
	}

	return decimal.Zero, false
}

// QuoteConfig quote engine policy
type QuoteConfig struct {
	TargetLTV             float64  `json:"target_ltv"`
	MarginCallLTV         float64  `json:"margin_call_ltv"`
	LiquidationLTV        float64  `json:"liquidation_ltv"`
	OriginationFeePercent float64  `json:"origination_fee_percent"`
	TermMonths            int      `json:"term_months"`
	Networks              []string `json:"networks"`
	TTLSeconds            int64    `json:"ttl_seconds"`
}

// TTL age after which an unused quote expires
func (q QuoteConfig) TTL() time.Duration {
	return seconds(q.TTLSeconds, 3600)
}

// Disbursable network can be used for payouts
func (q QuoteConfig) Disbursable(network string) bool {
	for _, n := range q.Networks {
		if strings.EqualFold(n, network) {
			return true
		}
	}

	return false
}

// LoanConfig loan lifecycle config
type LoanConfig struct {
	CollateralTimeoutSeconds int64 `json:"collateral_timeout_seconds"`
	PayoutTimeoutSeconds     int64 `json:"payout_timeout_seconds"`
}

// CollateralTimeout how long a loan waits for its collateral
func (l LoanConfig) CollateralTimeout() time.Duration {
	return seconds(l.CollateralTimeoutSeconds, 3600)
}

// PayoutTimeout bounded time of an external payout broadcast
func (l LoanConfig) PayoutTimeout() time.Duration {
	return seconds(l.PayoutTimeoutSeconds, 30)
}

// DefaultTier name of the fallback fee tier
const DefaultTier = "basic"

// FeeTier per account tier fee schedule, values in percent
type FeeTier struct {
	InterestDiscount  float64 `json:"interest_discount"`
	ReceiveFeePercent float64 `json:"receive_fee_percent"`
}

// ReceiveFee receive fee as a fraction
func (t *FeeTier) ReceiveFee() decimal.Decimal {
	return decimal.NewFromFloat(t.ReceiveFeePercent).Shift(-2)
}

// Discount interest discount as a fraction
func (t *FeeTier) Discount() decimal.Decimal {
	return decimal.NewFromFloat(t.InterestDiscount).Shift(-2)
}

const (
	// ChainKindEVM ethereum compatible chain
	ChainKindEVM = "evm"
	// ChainKindMixin mixin network
	ChainKindMixin = "mixin"
	// ChainKindSimulated in-memory chain
	ChainKindSimulated = "simulated"
)

// ChainConfig chain wallet provider config
type ChainConfig struct {
	Network        string `json:"network"`
	Kind           string `json:"kind"`
	EndPoint       string `json:"end_point"`
	ChainID        int64  `json:"chain_id"`
	Confirmations  int64  `json:"confirmations"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
	CustodyAddress string `json:"custody_address"`
	// custody wallet key, sealed with app.aes_key
	CustodyKey string `json:"custody_key"`
}

// Timeout bounded time of a single chain call
func (c *ChainConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 15)
}

// WorkersConfig cron specs of the periodic workers
type WorkersConfig struct {
	Timeout           string `json:"timeout"`
	Margin            string `json:"margin"`
	Interest          string `json:"interest"`
	QuoteExpiry       string `json:"quote_expiry"`
	Capacity          int64  `json:"capacity"`
	JobTimeoutSeconds int64  `json:"job_timeout_seconds"`
}

// JobTimeout bounded time of one deposit or relocation job
func (w WorkersConfig) JobTimeout() time.Duration {
	return seconds(w.JobTimeoutSeconds, 30)
}

func seconds(v, def int64) time.Duration {
	if v <= 0 {
		v = def
	}

	return time.Duration(v) * time.Second
}
