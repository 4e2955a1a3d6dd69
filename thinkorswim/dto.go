package thinkorswim

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Raw statement lines, one struct per section, with csv tags matching the
// exported headers verbatim. Everything stays a string here; conversion
// happens when the lines are turned into source rows.

type tradeHistoryLine struct {
	ExecTime  string `csv:"Exec Time"`
	Spread    string `csv:"Spread"`
	Side      string `csv:"Side"`
	Qty       string `csv:"Qty"`
	PosEffect string `csv:"Pos Effect"`
	Symbol    string `csv:"Symbol"`
	Exp       string `csv:"Exp"`
	Strike    string `csv:"Strike"`
	Type      string `csv:"Type"`
	Price     string `csv:"Price"`
	NetPrice  string `csv:"Net Price"`
	OrderType string `csv:"Order Type"`
	OrderID   string `csv:"Order #"`
}

type cashBalanceLine struct {
	Date            string `csv:"DATE"`
	Time            string `csv:"TIME"`
	Type            string `csv:"TYPE"`
	Ref             string `csv:"REF #"`
	Description     string `csv:"DESCRIPTION"`
	CommissionsFees string `csv:"Commissions & Fees"`
	Amount          string `csv:"AMOUNT"`
	Balance         string `csv:"BALANCE"`
}

type futuresStatementLine struct {
	TradeDate       string `csv:"Trade Date"`
	ExecDate        string `csv:"Exec Date"`
	ExecTime        string `csv:"Exec Time"`
	Type            string `csv:"Type"`
	Ref             string `csv:"Ref #"`
	Description     string `csv:"Description"`
	MiscFees        string `csv:"Misc Fees"`
	CommissionsFees string `csv:"Commissions & Fees"`
	Amount          string `csv:"Amount"`
	Balance         string `csv:"Balance"`
}

// dashEmpty maps the "--" placeholder the export uses for blank cells to the
// empty string.
func dashEmpty(v string) string {
	if v == "--" {
		return ""
	}
	return v
}

var bondPriceRe = regexp.MustCompile(`^(\d+)'{1,2}(\d+)$`)

// toDecimal converts a statement cell to a decimal. Empty cells are zero.
// Treasury prices quote fractionally, in 32nds for outrights and 64ths for
// options, written with one or two apostrophes ("110'16", "0''39").
func toDecimal(v, instype string) (decimal.Decimal, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	v = strings.TrimPrefix(v, "$")
	if v == "" {
		return decimal.Zero, nil
	}
	if m := bondPriceRe.FindStringSubmatch(v); m != nil {
		divisor := decimal.NewFromInt(64)
		if instype == "FUTURE" {
			divisor = decimal.NewFromInt(32)
		}
		whole, err := decimal.NewFromString(m[1])
		if err != nil {
			return decimal.Zero, err
		}
		frac, err := decimal.NewFromString(m[2])
		if err != nil {
			return decimal.Zero, err
		}
		return whole.Add(frac.Div(divisor)), nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid statement number %q: %w", v, err)
	}
	return d, nil
}
