package beanbuff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beancount/beanbuff/date"
)

// InstrumentType classifies an instrument.
type InstrumentType string

const (
	Equity       InstrumentType = "Equity"
	EquityOption InstrumentType = "EquityOption"
	Future       InstrumentType = "Future"
	FutureOption InstrumentType = "FutureOption"
)

// InstrumentKind is the optional hint a source can give the parser. Sources
// that know what they hold (a trade-history row carries a type column) pass
// the kind; sources that only have the symbol pass KindUnknown.
type InstrumentKind int

const (
	KindUnknown InstrumentKind = iota
	KindEquity
	KindFuture
	KindOption
)

// PutCall is the side of an option.
type PutCall string

const (
	Call PutCall = "CALL"
	Put  PutCall = "PUT"
)

// Instrument is a symbol broken down into its component fields.
//
// Underlying is the normalized symbol: for futures it keeps the leading slash
// and the decade-qualified calendar code, e.g. "/CLK21". For options on
// futures the expiration date is frequently not available from the statement;
// the option contract code (e.g. "LOK21") stands in for it and is carried in
// OptContract/OptCalendar.
type Instrument struct {
	Underlying  string
	OptContract string
	OptCalendar string
	Expiration  date.Date
	Strike      Quantity
	PutCall     PutCall
	Multiplier  Quantity
}

// calendarRe matches a futures calendar code: month letter, decade, year.
var calendarRe = regexp.MustCompile(`^(.+?)([FGHJKMNQUVXZ]\d\d)$`)

// optionRe matches the compact option symbol grammar:
// UNDERLYING_(YYMMDD|EXPCODE)_[CP]STRIKE, e.g. "SPX_210416_C4200" or
// "/CLK21_LOK21_C42.5".
var optionRe = regexp.MustCompile(`^(.*)_(?:(\d{6})|([A-Z0-9]+))_([CP])([0-9.]+)$`)

// equityRe matches a plain ticker.
var equityRe = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

// futureRe matches an outright future, e.g. "/CLK21".
var futureRe = regexp.MustCompile(`^/[A-Z0-9]+[FGHJKMNQUVXZ]\d\d$`)

// Type returns the instrument type, derived from its fields.
func (inst Instrument) Type() InstrumentType {
	future := strings.HasPrefix(inst.Underlying, "/")
	option := !inst.Expiration.IsZero() || inst.OptContract != "" || inst.PutCall != ""
	switch {
	case future && option:
		return FutureOption
	case future:
		return Future
	case option:
		return EquityOption
	default:
		return Equity
	}
}

// Root returns the underlying root without the calendar code, e.g. "/CL" for
// "/CLK21" and "SPX" for "SPX". The multiplier table is keyed by it.
func (inst Instrument) Root() string {
	if !strings.HasPrefix(inst.Underlying, "/") {
		return inst.Underlying
	}
	if m := calendarRe.FindStringSubmatch(inst.Underlying); m != nil {
		return m[1]
	}
	return inst.Underlying
}

// ExpCode returns the futures option expiration code, e.g. "LOK21", or ""
// when the expiration is carried as a date.
func (inst Instrument) ExpCode() string {
	if inst.OptContract == "" {
		return ""
	}
	return inst.OptContract + inst.OptCalendar
}

// String renders the instrument back to its compact symbol.
func (inst Instrument) String() string {
	switch inst.Type() {
	case FutureOption:
		// The expiration date is implicit in the option code; rendering it
		// would desynchronize symbols between sources that have it and
		// sources that do not.
		return fmt.Sprintf("%s_%s_%s%s", inst.Underlying, inst.ExpCode(),
			inst.PutCall[:1], inst.Strike)
	case EquityOption:
		return fmt.Sprintf("%s_%s_%s%s", inst.Underlying,
			inst.Expiration.Format6(), inst.PutCall[:1], inst.Strike)
	default:
		return inst.Underlying
	}
}

// ParseError reports a symbol that matches no known grammar.
type ParseError struct {
	Symbol string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse instrument symbol %q: %s", e.Symbol, e.Reason)
}

// UnknownMultiplierError reports an underlying root missing from the
// multiplier table.
type UnknownMultiplierError struct {
	InsType InstrumentType
	Root    string
}

func (e *UnknownMultiplierError) Error() string {
	return fmt.Sprintf("no multiplier for %s root %q", e.InsType, e.Root)
}

// ParseInstrument decodes a compact symbol into an Instrument and fills in
// its multiplier. The kind hint narrows the accepted grammars; with
// KindUnknown every grammar is tried. It fails with a *ParseError when no
// grammar matches and a *UnknownMultiplierError when the root has no known
// contract size.
func ParseInstrument(symbol string, kind InstrumentKind) (Instrument, error) {
	return parseInstrument(symbol, kind, nil)
}

func parseInstrument(symbol string, kind InstrumentKind, overrides map[string]decimal.Decimal) (Instrument, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Instrument{}, &ParseError{Symbol: symbol, Reason: "empty symbol"}
	}

	var inst Instrument
	if m := optionRe.FindStringSubmatch(symbol); m != nil && kind != KindEquity && kind != KindFuture {
		underlying, expi, expcode, putcall, strike := m[1], m[2], m[3], m[4], m[5]
		inst.Underlying = underlying
		if expi != "" {
			exp, err := date.Parse6(expi)
			if err != nil {
				return Instrument{}, &ParseError{Symbol: symbol, Reason: err.Error()}
			}
			inst.Expiration = exp
		} else {
			cm := calendarRe.FindStringSubmatch(expcode)
			if cm == nil {
				return Instrument{}, &ParseError{Symbol: symbol, Reason: "invalid expiration code " + expcode}
			}
			inst.OptContract, inst.OptCalendar = cm[1], cm[2]
		}
		if putcall == "C" {
			inst.PutCall = Call
		} else {
			inst.PutCall = Put
		}
		strikeDec, err := decimal.NewFromString(strike)
		if err != nil || !strikeDec.IsPositive() {
			return Instrument{}, &ParseError{Symbol: symbol, Reason: "invalid strike " + strike}
		}
		inst.Strike = Q(strikeDec)
	} else if futureRe.MatchString(symbol) && kind != KindEquity && kind != KindOption {
		inst.Underlying = symbol
	} else if equityRe.MatchString(symbol) && kind != KindFuture && kind != KindOption {
		inst.Underlying = symbol
	} else {
		return Instrument{}, &ParseError{Symbol: symbol, Reason: "no known grammar matches"}
	}

	// Futures options without the slash-rooted underlying make no sense.
	if inst.OptContract != "" && !strings.HasPrefix(inst.Underlying, "/") {
		return Instrument{}, &ParseError{Symbol: symbol, Reason: "expiration code on a non-futures underlying"}
	}

	mult, err := LookupMultiplier(inst.Type(), inst.Root(), overrides)
	if err != nil {
		return Instrument{}, err
	}
	inst.Multiplier = mult
	return inst, nil
}
