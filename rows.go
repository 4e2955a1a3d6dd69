package beanbuff

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/beancount/beanbuff/date"
)

// Raw row shapes, one tagged variant per source kind. External parsers (the
// thinkorswim and feed packages, or any new source) produce these; the
// normalizer is their only consumer. Adding a source means adding a variant
// and its mapping, never branching on ad hoc field presence.

// TradeHistoryRow is one fill from the Account Trade History table. It knows
// the instrument and the price but carries no fee information at all.
type TradeHistoryRow struct {
	Account   string
	ExecTime  time.Time
	Spread    string // SINGLE, VERTICAL, STOCK, COVERED, ...
	Side      string // BUY or SELL
	Quantity  decimal.Decimal
	PosEffect string // TO OPEN or TO CLOSE
	Symbol    string // underlying symbol, e.g. "SPY" or "/CLK21"
	Exp       string // option expiration: "16 APR 21", or "/LOK21" for futures options
	Strike    decimal.Decimal
	Type      string // STOCK, ETF, FUTURE, CALL, PUT
	Price     decimal.Decimal
	OrderID   int64
}

// CashBalanceRow is one line of the Cash Balance statement. Multi-leg orders
// are merged into single rows here, but this is where the commissions and
// fees live.
type CashBalanceRow struct {
	Account         string
	Datetime        time.Time
	Type            string // three-letter code: TRD, RAD, DOI, ...
	Description     string
	CommissionsFees decimal.Decimal
	MiscFees        decimal.Decimal // backed out of consecutive balances by the parser
	Amount          decimal.Decimal
}

// FuturesStatementRow is one line of the Futures Statements table. Trading
// rows carry a non-zero Ref.
type FuturesStatementRow struct {
	Account         string
	TradeDate       date.Date
	Datetime        time.Time
	Type            string
	Ref             int64
	Description     string
	CommissionsFees decimal.Decimal
	MiscFees        decimal.Decimal
	Amount          decimal.Decimal
}

// FeedRow is one transaction from the delayed API feed: authoritative,
// per-leg, settled, and blind to futures.
type FeedRow struct {
	Account       string
	TransactionID string
	OrderID       string
	Datetime      time.Time
	Type          string // TRADE, RECEIVE_AND_DELIVER, DIVIDEND_OR_INTEREST, ...
	Symbol        string // compact symbol, e.g. "SPX_210416_C4200"
	Instruction   string // BUY or SELL
	Effect        string // OPENING or CLOSING, may be empty
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Commissions   decimal.Decimal
	Fees          decimal.Decimal
	Description   string
}

// CashEvent is a normalized balance-statement line. Trade-linked events feed
// the fee joiner; the rest flows to the non-trade stream.
type CashEvent struct {
	Account     string
	Datetime    time.Time
	Source      string // "cash" or "futures"
	Type        string
	Description string
	Amount      Money
	Commissions Money
	Fees        Money

	// Parsed from the description for trade-linked rows.
	Strategy string
	Quantity Quantity
	Symbol   string
}

// tradeLinked reports whether the event describes one or more fills and must
// be consumed by the fee join rather than flow to the non-trade stream.
func (e CashEvent) tradeLinked() bool {
	return e.Type == "TRD" && e.Strategy != ""
}
