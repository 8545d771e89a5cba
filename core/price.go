package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceTicker price ticker
type PriceTicker struct {
	Provider  string          `json:"provider,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Network   string          `json:"network,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// PriceService usd unit price of an asset
type PriceService interface {
	Price(ctx context.Context, network, symbol string) (decimal.Decimal, error)
}

// RateSource external live rate source
type RateSource interface {
	PullPriceTicker(ctx context.Context, network, symbol string) (*PriceTicker, error)
}
