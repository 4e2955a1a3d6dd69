package beanbuff

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beancount/beanbuff/date"
)

// Normalization: one mapping per source kind, raw row in, canonical Record
// (or CashEvent) out. A mapping only fills fields its row actually supplies;
// it never guesses.

// statementDateFormat is how statements spell expirations, e.g. "16 APR 21".
const statementDateFormat = "2 Jan 06"

func parseStatementDate(s string) (date.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return date.Date{}, fmt.Errorf("invalid statement date %q", s)
	}
	// Statements shout month names; time.Parse wants them capitalized.
	t, err := time.Parse(statementDateFormat, titleCase(s))
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid statement date %q: %w", s, err)
	}
	return date.Of(t), nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeTradeHistory maps one Account Trade History row to a canonical
// record. The id is left empty; the identity resolver assigns it.
func NormalizeTradeHistory(cfg Config, row TradeHistoryRow) (Record, error) {
	inst, err := instrumentFromTradeRow(cfg, row)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Account:    row.Account,
		Datetime:   row.ExecTime,
		RowType:    Trade,
		Instrument: inst,
		Quantity:   Q(row.Quantity).Abs(),
		Price:      USD(row.Price),
	}
	if row.OrderID != 0 {
		rec.OrderID = fmt.Sprintf("%d", row.OrderID)
	}
	switch row.Side {
	case "BUY", "BOT":
		rec.Instruction = Buy
	case "SELL", "SOLD":
		rec.Instruction = Sell
	default:
		return Record{}, fmt.Errorf("unknown trade side %q", row.Side)
	}
	switch row.PosEffect {
	case "TO OPEN":
		rec.Effect = Opening
	case "TO CLOSE":
		rec.Effect = Closing
	case "":
		// Futures rows may omit it; inference from starting inventory
		// belongs to a downstream pass.
	default:
		return Record{}, fmt.Errorf("unknown position effect %q", row.PosEffect)
	}
	rec.deriveCost()
	return rec, nil
}

// instrumentFromTradeRow builds the instrument from the row's own columns,
// using the type column as the kind hint.
func instrumentFromTradeRow(cfg Config, row TradeHistoryRow) (Instrument, error) {
	// The symbol column sometimes carries a redundant multiplier and month
	// suffix ("/CLK21 1/1000 MAY 21"); only the first word is the symbol.
	fields := strings.Fields(row.Symbol)
	if len(fields) == 0 {
		return Instrument{}, &ParseError{Symbol: row.Symbol, Reason: "empty symbol"}
	}
	symbol := fields[0]
	if renamed, ok := cfg.SymbolRenames[symbol]; ok {
		// Symbol renames land out of sync across statement tables; map the
		// trading-history side onto the cash-statement name.
		symbol = renamed
	}

	switch row.Type {
	case "STOCK", "ETF":
		return parseInstrument(symbol, KindEquity, cfg.MultiplierOverrides)

	case "FUTURE":
		return parseInstrument(symbol, KindFuture, cfg.MultiplierOverrides)

	case "CALL", "PUT":
		inst := Instrument{Underlying: symbol}
		if strings.HasPrefix(row.Exp, "/") {
			// Futures option: the exp column holds the option contract code
			// ("/LOK21"); the true expiration date is not in the export.
			code := strings.TrimPrefix(row.Exp, "/")
			m := calendarRe.FindStringSubmatch(code)
			if m == nil {
				return Instrument{}, &ParseError{Symbol: symbol, Reason: "invalid option contract code " + row.Exp}
			}
			inst.OptContract, inst.OptCalendar = m[1], m[2]
		} else {
			exp, err := parseStatementDate(row.Exp)
			if err != nil {
				return Instrument{}, &ParseError{Symbol: symbol, Reason: err.Error()}
			}
			inst.Expiration = exp
		}
		if row.Type == "CALL" {
			inst.PutCall = Call
		} else {
			inst.PutCall = Put
		}
		if !row.Strike.IsPositive() {
			return Instrument{}, &ParseError{Symbol: symbol, Reason: "option row without a strike"}
		}
		inst.Strike = Q(row.Strike)

		mult, err := LookupMultiplier(inst.Type(), inst.Root(), cfg.MultiplierOverrides)
		if err != nil {
			return Instrument{}, err
		}
		inst.Multiplier = mult
		return inst, nil
	}
	return Instrument{}, &ParseError{Symbol: symbol, Reason: "unknown instrument type " + row.Type}
}

// NormalizeCashBalance maps one Cash Balance row. Expiration removals become
// records; everything else becomes a CashEvent, trade-linked when the
// description describes fills.
func NormalizeCashBalance(cfg Config, row CashBalanceRow) (*Record, CashEvent, error) {
	return normalizeStatement(cfg, "cash", row.Account, row.Datetime, row.Type,
		row.Description, row.CommissionsFees, row.MiscFees, row.Amount, true)
}

// NormalizeFuturesStatement maps one Futures Statements row. The ref column
// marks trading rows, so the description grammar is only consulted for them.
func NormalizeFuturesStatement(cfg Config, row FuturesStatementRow) (*Record, CashEvent, error) {
	return normalizeStatement(cfg, "futures", row.Account, row.Datetime, row.Type,
		row.Description, row.CommissionsFees, row.MiscFees, row.Amount, row.Ref != 0)
}

func normalizeStatement(cfg Config, source, account string, datetime time.Time,
	rowtype, description string, commissions, miscFees, amount decimal.Decimal,
	mayTrade bool) (*Record, CashEvent, error) {

	description = cleanDescription(description)
	event := CashEvent{
		Account:     account,
		Datetime:    datetime,
		Source:      source,
		Type:        rowtype,
		Description: description,
		Amount:      USD(amount),
		Commissions: USD(commissions),
		Fees:        USD(miscFees),
	}

	switch rowtype {
	case "TRD":
		if !mayTrade {
			return nil, event, nil
		}
		info, err := parseTradeDescription(description)
		if err != nil {
			return nil, CashEvent{}, err
		}
		event.Strategy = info.Strategy
		event.Quantity = info.Quantity
		event.Symbol = info.Symbol
		return nil, event, nil

	case "RAD":
		if !strings.HasPrefix(description, "REMOVAL OF OPTION") {
			// Other receive-and-deliver events (assignation of shares,
			// mergers) are cash events for another component.
			return nil, event, nil
		}
		rec, err := expirationRecord(cfg, account, datetime, description, commissions.Add(miscFees))
		if err != nil {
			return nil, CashEvent{}, err
		}
		return &rec, CashEvent{}, nil

	case "DOI":
		// Dividends stay in the cash stream; they are not position events.
		return nil, event, nil
	}
	// Unrecognized three-letter codes are not trades; route to non-trade
	// handling.
	return nil, event, nil
}

// expirationDescRe decodes "REMOVAL OF OPTION DUE TO EXPIRATION -1 SPX 100
// (Weeklys) 16 APR 21 4200 PUT".
var expirationDescRe = regexp.MustCompile(
	`^REMOVAL OF OPTION DUE TO EXPIRATION ` +
		`([+-]?[0-9.]+) ` + // signed quantity
		`([A-Z/:0-9]+) ` + // underlying
		`(\d+) ` + // multiplier
		`(?:\(.*\) )?` + // optional (Weeklys) marker
		`(\d+ [A-Z]{3} \d+) ` + // expiration
		`([0-9.]+) ` + // strike
		`(PUT|CALL)$`)

func expirationRecord(cfg Config, account string, datetime time.Time,
	description string, fees decimal.Decimal) (Record, error) {

	m := expirationDescRe.FindStringSubmatch(description)
	if m == nil {
		return Record{}, fmt.Errorf("unparseable expiration description %q", description)
	}
	quantity, underlying, multiplier, expStr, strike, putcall :=
		m[1], m[2], m[3], m[4], m[5], m[6]

	exp, err := parseStatementDate(expStr)
	if err != nil {
		return Record{}, err
	}
	strikeDec, err := decimal.NewFromString(strike)
	if err != nil {
		return Record{}, fmt.Errorf("bad strike in expiration description %q: %w", description, err)
	}
	multDec, err := decimal.NewFromString(multiplier)
	if err != nil {
		return Record{}, fmt.Errorf("bad multiplier in expiration description %q: %w", description, err)
	}
	qtyDec, err := decimal.NewFromString(quantity)
	if err != nil {
		return Record{}, fmt.Errorf("bad quantity in expiration description %q: %w", description, err)
	}
	inst := Instrument{
		Underlying: underlying,
		Expiration: exp,
		Strike:     Q(strikeDec),
		Multiplier: Q(multDec),
	}
	if putcall == "CALL" {
		inst.PutCall = Call
	} else {
		inst.PutCall = Put
	}
	if override, ok := cfg.MultiplierOverrides[inst.Root()]; ok {
		inst.Multiplier = Q(override)
	}

	rec := Record{
		Account:     account,
		Datetime:    datetime,
		RowType:     Expiration,
		Instrument:  inst,
		Effect:      Closing,
		Quantity:    Q(qtyDec).Abs(),
		Price:       USD(0),
		Fees:        USD(fees),
		Description: description,
	}
	// An expiration removes the position without a fill; there is no
	// instruction, only the closing effect.
	rec.deriveCost()
	return rec, nil
}

// NormalizeFeedRow maps one delayed API feed transaction to a canonical
// record. Non-trade feed rows are reported with ok=false.
func NormalizeFeedRow(cfg Config, row FeedRow) (Record, bool, error) {
	switch row.Type {
	case "TRADE", "RECEIVE_AND_DELIVER":
	default:
		return Record{}, false, nil
	}

	inst, err := parseInstrument(row.Symbol, KindUnknown, cfg.MultiplierOverrides)
	if err != nil {
		return Record{}, false, err
	}
	rec := Record{
		Account:       row.Account,
		TransactionID: row.TransactionID,
		OrderID:       row.OrderID,
		Datetime:      row.Datetime,
		RowType:       Trade,
		Instrument:    inst,
		Quantity:      Q(row.Quantity).Abs(),
		Price:         USD(row.Price),
		Commissions:   USD(row.Commissions),
		Fees:          USD(row.Fees),
		Description:   cleanDescription(row.Description),
	}
	if row.Type == "RECEIVE_AND_DELIVER" {
		rec.RowType = Expiration
		rec.Effect = Closing
	} else {
		switch row.Instruction {
		case "BUY":
			rec.Instruction = Buy
		case "SELL":
			rec.Instruction = Sell
		default:
			return Record{}, false, fmt.Errorf("feed trade %s has instruction %q",
				row.TransactionID, row.Instruction)
		}
		switch row.Effect {
		case "OPENING":
			rec.Effect = Opening
		case "CLOSING":
			rec.Effect = Closing
		}
	}
	rec.deriveCost()
	return rec, true, nil
}

//
// Description grammars. The statement's cash tables identify their fills only
// through these free-text descriptions.
//

var descPrefixRe = regexp.MustCompile(`(WEB:(AA_[A-Z]+|WEB_GRID_SNAP)|tAndroid) `)

func cleanDescription(s string) string {
	return descPrefixRe.ReplaceAllString(s, "")
}

// descInfo is what a trade description yields: enough to tie the cash row to
// its fills.
type descInfo struct {
	Strategy string
	Quantity Quantity
	Symbol   string
}

var tradeHeadRe = regexp.MustCompile(
	`^(BOT|SOLD) ([+-]?[0-9.,]+) (.*?)( @-?[0-9.]+)?( [A-Z]+(?: GEMINI)?)?$`)

const underlyingPat = `(/?[A-Z0-9]+)(?::[A-Z]+)?`

var (
	namedStrategyRe = regexp.MustCompile(
		`^(COVERED|VERTICAL|BUTTERFLY|VERT ROLL|DIAGONAL|CALENDAR|STRANGLE|CONDOR|IRON CONDOR) ` +
			underlyingPat + ` (.*)$`)
	customStrategyRe = regexp.MustCompile(
		`^(-?\d+(?:/-?\d+)*) (~IRON CONDOR|CUSTOM) ` + underlyingPat + ` (.*)$`)
	futCalendarRe = regexp.MustCompile(
		`^(FUT CALENDAR) ` + underlyingPat + `-` + underlyingPat + `$`)
	singleOptionRe = regexp.MustCompile(`^` + underlyingPat + ` (.+)$`)
	outrightRe     = regexp.MustCompile(`^` + underlyingPat + `$`)
)

func parseTradeDescription(description string) (descInfo, error) {
	head := tradeHeadRe.FindStringSubmatch(description)
	if head == nil {
		return descInfo{}, fmt.Errorf("unparseable trade description %q", description)
	}
	quantityStr, rest := head[2], head[3]
	quantity, err := decimal.NewFromString(strings.ReplaceAll(quantityStr, ",", ""))
	if err != nil {
		return descInfo{}, fmt.Errorf("invalid quantity in description %q: %w", description, err)
	}
	info := descInfo{Quantity: Q(quantity).Abs()}

	if m := namedStrategyRe.FindStringSubmatch(rest); m != nil {
		info.Strategy, info.Symbol = m[1], m[2]
		return info, nil
	}
	if m := customStrategyRe.FindStringSubmatch(rest); m != nil {
		info.Strategy, info.Symbol = m[2], m[3]
		return info, nil
	}
	if m := futCalendarRe.FindStringSubmatch(rest); m != nil {
		// The front month is the underlying of record.
		info.Strategy, info.Symbol = m[1], m[2]
		return info, nil
	}
	if m := singleOptionRe.FindStringSubmatch(rest); m != nil {
		info.Strategy, info.Symbol = "SINGLE", m[1]
		return info, nil
	}
	if m := outrightRe.FindStringSubmatch(rest); m != nil {
		info.Strategy, info.Symbol = "OUTRIGHT", m[1]
		return info, nil
	}
	return descInfo{}, fmt.Errorf("unknown trade description shape %q", description)
}
