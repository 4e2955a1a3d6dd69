package beanbuff

import "github.com/shopspring/decimal"

// optionContractSize is the standard equity option contract size.
var optionContractSize = decimal.NewFromInt(100)

// futuresMultipliers maps a futures root (with its leading slash) to the
// contract multiplier. Index options quoted like equities (SPX, NDX, ...) are
// keyed by their plain root.
var futuresMultipliers = map[string]decimal.Decimal{
	// Indices: S&P 500
	"/ES":  decimal.NewFromInt(50),
	"/MES": decimal.NewFromInt(5),
	"SPX":  decimal.NewFromInt(100),

	// Indices: Nasdaq 100
	"/NQ":  decimal.NewFromInt(20),
	"/MNQ": decimal.NewFromInt(2),
	"NDX":  decimal.NewFromInt(100),

	// Indices: Russell 2000
	"/RTY": decimal.NewFromInt(50),
	"/M2K": decimal.NewFromInt(5),
	"RUT":  decimal.NewFromInt(100),

	// Indices: Dow Jones
	"/YM":  decimal.NewFromInt(5),
	"/MYM": decimal.NewFromFloat(0.5),
	"DJI":  decimal.NewFromInt(100),

	// FX
	"/6E": decimal.NewFromInt(125_000),
	"/6J": decimal.NewFromInt(12_500_000),
	"/6A": decimal.NewFromInt(100_000),
	"/6C": decimal.NewFromInt(100_000),

	// Energy
	"/CL": decimal.NewFromInt(1000),
	"/NG": decimal.NewFromInt(10_000),

	// Metals
	"/GC": decimal.NewFromInt(100),
	"/SI": decimal.NewFromInt(5000),
	"/HG": decimal.NewFromInt(25_000),

	// Rates
	"/ZQ": decimal.NewFromInt(4167),
	"/GE": decimal.NewFromInt(2500),
	"/ZT": decimal.NewFromInt(2000),
	"/ZF": decimal.NewFromInt(1000),
	"/ZN": decimal.NewFromInt(1000),
	"/ZB": decimal.NewFromInt(1000),

	// Agricultural
	"/ZC": decimal.NewFromInt(50),
	"/ZS": decimal.NewFromInt(50),
	"/ZW": decimal.NewFromInt(50),

	// Livestock
	"/HE": decimal.NewFromInt(400),
	"/LE": decimal.NewFromInt(400),
}

// LookupMultiplier returns the contract multiplier for an instrument type and
// underlying root. The root for futures keeps its leading slash and drops the
// calendar code ("/CLK21" -> "/CL"). An unknown futures root is an
// UnknownMultiplierError: a silently defaulted multiplier would corrupt every
// cost derived downstream.
func LookupMultiplier(instype InstrumentType, root string, overrides map[string]decimal.Decimal) (Quantity, error) {
	if mult, ok := overrides[root]; ok {
		return Q(mult), nil
	}
	switch instype {
	case Equity:
		return Q(1), nil
	case EquityOption:
		if mult, ok := futuresMultipliers[root]; ok {
			// Index options have their own contract size.
			return Q(mult), nil
		}
		return Q(optionContractSize), nil
	case Future, FutureOption:
		if mult, ok := futuresMultipliers[root]; ok {
			return Q(mult), nil
		}
	}
	return Quantity{}, &UnknownMultiplierError{InsType: instype, Root: root}
}
