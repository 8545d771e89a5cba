package config

import (
	"lending/core"

	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("LENDING")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaultQuote(config)
	defaultWorkers(config)
	return nil
}

func defaultQuote(cfg *core.Config) {
	q := &cfg.Quote
	if q.TargetLTV <= 0 {
		q.TargetLTV = 0.5
	}

	if q.MarginCallLTV <= 0 {
		q.MarginCallLTV = 0.7
	}

	if q.LiquidationLTV <= 0 {
		q.LiquidationLTV = 0.8
	}

	if q.TermMonths <= 0 {
		q.TermMonths = 12
	}
}

func defaultWorkers(cfg *core.Config) {
	w := &cfg.Workers
	if w.Timeout == "" {
		w.Timeout = "@every 1m"
	}

	if w.Margin == "" {
		w.Margin = "@every 1m"
	}

	if w.Interest == "" {
		w.Interest = "@daily"
	}

	if w.QuoteExpiry == "" {
		w.QuoteExpiry = "@every 5m"
	}

	if w.Capacity <= 0 {
		w.Capacity = 8
	}
}
