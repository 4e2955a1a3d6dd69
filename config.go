package beanbuff

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config carries the tunables of the reconciliation: matching windows,
// tolerances, the order-cluster delta, and per-source switches.
type Config struct {
	// FeeJoinWindowDays bounds the fee join in calendar days; 0 restricts it
	// to the same calendar day.
	FeeJoinWindowDays int
	// NotionalTolerance is the allowed absolute difference between a balance
	// row's cash amount and the matched legs' signed notional.
	NotionalTolerance decimal.Decimal
	// LateMatchTolerance bounds the datetime distance between a late-feed
	// record and its statement-built counterpart.
	LateMatchTolerance time.Duration
	// OrderClusterDelta is the largest order-id gap still treated as legs of
	// one order issued together.
	OrderClusterDelta int64

	// MultiplierOverrides extends or corrects the static multiplier table,
	// keyed by underlying root.
	MultiplierOverrides map[string]decimal.Decimal
	// SymbolRenames maps trading-history symbols onto the cash-statement
	// name when a rename propagated out of sync between the tables.
	SymbolRenames map[string]string

	// Sources enables or disables whole input kinds.
	Sources Sources
}

// Sources toggles each input kind.
type Sources struct {
	TradeHistory      bool `yaml:"trade_history"`
	CashBalance       bool `yaml:"cash_balance"`
	FuturesStatements bool `yaml:"futures_statements"`
	Feed              bool `yaml:"feed"`
}

// DefaultConfig returns the configuration the reconciliation ships with:
// same-day fee joins, five cents of notional tolerance, five minutes of
// late-match tolerance, and an order-cluster delta of five.
func DefaultConfig() Config {
	return Config{
		FeeJoinWindowDays:  0,
		NotionalTolerance:  decimal.NewFromFloat(0.05),
		LateMatchTolerance: 5 * time.Minute,
		OrderClusterDelta:  5,
		Sources: Sources{
			TradeHistory:      true,
			CashBalance:       true,
			FuturesStatements: true,
			Feed:              true,
		},
	}
}

// configFile is the YAML shape of Config; values stay primitive so that a
// hand-written file needs no type annotations.
type configFile struct {
	FeeJoinWindowDays   *int               `yaml:"fee_join_window_days"`
	NotionalTolerance   *float64           `yaml:"notional_tolerance"`
	LateMatchTolerance  *string            `yaml:"late_match_tolerance"`
	OrderClusterDelta   *int64             `yaml:"order_cluster_delta"`
	MultiplierOverrides map[string]float64 `yaml:"multiplier_overrides"`
	SymbolRenames       map[string]string  `yaml:"symbol_renames"`
	Sources             *Sources           `yaml:"sources"`
}

// LoadConfig reads a YAML configuration, applying it over DefaultConfig so
// that an empty file is a valid one.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config: %w", err)
	}
	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}

	if file.FeeJoinWindowDays != nil {
		cfg.FeeJoinWindowDays = *file.FeeJoinWindowDays
	}
	if file.NotionalTolerance != nil {
		cfg.NotionalTolerance = decimal.NewFromFloat(*file.NotionalTolerance)
	}
	if file.LateMatchTolerance != nil {
		tol, err := time.ParseDuration(*file.LateMatchTolerance)
		if err != nil {
			return Config{}, fmt.Errorf("invalid late_match_tolerance: %w", err)
		}
		cfg.LateMatchTolerance = tol
	}
	if file.OrderClusterDelta != nil {
		cfg.OrderClusterDelta = *file.OrderClusterDelta
	}
	if len(file.MultiplierOverrides) > 0 {
		cfg.MultiplierOverrides = make(map[string]decimal.Decimal, len(file.MultiplierOverrides))
		for root, mult := range file.MultiplierOverrides {
			cfg.MultiplierOverrides[root] = decimal.NewFromFloat(mult)
		}
	}
	if len(file.SymbolRenames) > 0 {
		cfg.SymbolRenames = file.SymbolRenames
	}
	if file.Sources != nil {
		cfg.Sources = *file.Sources
	}
	return cfg, nil
}
