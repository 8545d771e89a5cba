package core

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// AssetStatus listing status
type AssetStatus string

const (
	// AssetStatusListed tradable
	AssetStatusListed AssetStatus = "listed"
	// AssetStatusUnlisted known but not tradable
	AssetStatusUnlisted AssetStatus = "unlisted"
)

// Asset asset on a network
type Asset struct {
	ID              uint64      `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Symbol          string      `sql:"size:32;unique_index:idx_assets_symbol_network" json:"symbol"`
	Network         string      `sql:"size:32;unique_index:idx_assets_symbol_network" json:"network"`
	ContractAddress string      `sql:"size:128;index:idx_assets_contract" json:"contract_address,omitempty"`
	Decimals        int32       `json:"decimals"`
	Status          AssetStatus `sql:"size:16" json:"status"`
	// last known usd unit price
	Price decimal.Decimal `sql:"type:decimal(32,16)" json:"price"`
	// amount the platform can lend out
	Liquidity decimal.Decimal `sql:"type:decimal(40,18)" json:"liquidity"`
	// aggregate amount held in user wallets
	Held           decimal.Decimal `sql:"type:decimal(40,18)" json:"held"`
	CustodyAddress string          `sql:"size:128" json:"custody_address,omitempty"`
	// term in months => monthly interest rate percent
	RateTable types.JSONText `sql:"type:TEXT" json:"rate_table,omitempty"`
	Version   int64          `sql:"default:0" json:"version"`
	CreatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Listed asset can be borrowed or pledged
func (a *Asset) Listed() bool {
	return a.ID > 0 && a.Status == AssetStatusListed
}

// Native asset is the network's gas asset
func (a *Asset) Native() bool {
	return a.ContractAddress == ""
}

// SetRateTable replace the term rate table
func (a *Asset) SetRateTable(rates map[int]decimal.Decimal) {
	m := make(map[string]decimal.Decimal, len(rates))
	for term, rate := range rates {
		m[strconv.Itoa(term)] = rate
	}

	bs, _ := json.Marshal(m)
	a.RateTable = bs
}

// MonthlyRate monthly interest rate percent of the longest term not exceeding months
func (a *Asset) MonthlyRate(months int) (decimal.Decimal, bool) {
	var m map[string]decimal.Decimal
	if len(a.RateTable) == 0 || json.Unmarshal(a.RateTable, &m) != nil {
		return decimal.Zero, false
	}

	best, found := -1, false
	var rate decimal.Decimal
	for k, v := range m {
		term, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || term > months || term <= best {
			continue
		}

		best, rate, found = term, v, true
	}

	return rate, found
}

// AssetStore asset store interface
type AssetStore interface {
	Save(ctx context.Context, asset *Asset) error
	Find(ctx context.Context, symbol, network string) (*Asset, error)
	FindByContract(ctx context.Context, network, contract string) (*Asset, error)
	FindNative(ctx context.Context, network string) (*Asset, error)
	All(ctx context.Context) ([]*Asset, error)
	UpdatePrice(ctx context.Context, asset *Asset, price decimal.Decimal) error
	// AddLiquidity liquidity += amount
	AddLiquidity(ctx context.Context, asset *Asset, amount decimal.Decimal) error
	// TakeLiquidity liquidity -= amount only when liquidity >= amount
	TakeLiquidity(ctx context.Context, asset *Asset, amount decimal.Decimal) (bool, error)
	// AddHeld held += amount
	AddHeld(ctx context.Context, asset *Asset, amount decimal.Decimal) error
}
