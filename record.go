package beanbuff

import (
	"errors"
	"fmt"
	"time"
)

// RowType is the kind of economic event a record describes.
type RowType string

const (
	// Trade is a regular fill.
	Trade RowType = "Trade"
	// Expiration is the removal of an option position at expiry (including
	// assignment). Expirations never carry an instruction.
	Expiration RowType = "Expiration"
	// Mark is reserved for synthetic marking rows inserted downstream; this
	// package never produces one.
	Mark RowType = "Mark"
)

// Effect tells whether a fill opens or closes a position. It stays empty for
// futures until a downstream pass infers it from starting inventory.
type Effect string

const (
	Opening Effect = "OPENING"
	Closing Effect = "CLOSING"
)

// Instruction is the direction of a fill.
type Instruction string

const (
	Buy  Instruction = "BUY"
	Sell Instruction = "SELL"
)

// DatetimeFormat is the naive local timestamp format used on records.
// No timezone is retained; statements are written in the account's local time
// and must reconcile against feeds written the same way.
const DatetimeFormat = "2006-01-02 15:04:05"

// Record is the canonical unit of the transaction log: one economic event,
// deduplicated across every source that described it.
type Record struct {
	// Account disambiguates multi-account inputs.
	Account string
	// TransactionID is unique across the whole log. It is the source's own id
	// when one exists, otherwise a stable hash of the defining fields.
	TransactionID string
	// Datetime is a naive local timestamp.
	Datetime time.Time
	RowType  RowType

	// OrderID links transactions issued as one order (e.g. legs of a spread).
	OrderID string
	// MatchID links a closing transaction to its opening(s). Assigned by a
	// downstream matching stage, never here.
	MatchID string
	// TradeID groups transactions into a strategy chain over time. Assigned
	// downstream, but preserved across late-feed merges.
	TradeID string

	Instrument Instrument

	Effect      Effect
	Instruction Instruction
	Quantity    Quantity
	Price       Money
	// Cost is the signed cash effect: quantity x price x multiplier, signed by
	// the instruction, net of commissions and fees. Zero-based for futures,
	// which settle on margin.
	Cost        Money
	Commissions Money
	Fees        Money

	// Description is free text carried from the source; non-authoritative.
	Description string
}

// Validate checks the record invariants. Records failing validation never
// enter the ledger.
func (r Record) Validate() error {
	if r.Account == "" {
		return errors.New("record has no account")
	}
	if r.TransactionID == "" {
		return errors.New("record has no transaction id")
	}
	if r.Datetime.IsZero() {
		return errors.New("record has no datetime")
	}
	switch r.RowType {
	case Trade:
		if r.Instruction != Buy && r.Instruction != Sell {
			return fmt.Errorf("trade record has instruction %q", r.Instruction)
		}
	case Expiration:
		if r.Instruction != "" {
			return fmt.Errorf("expiration record carries instruction %q", r.Instruction)
		}
	case Mark:
		return errors.New("mark records are reserved for downstream insertion")
	default:
		return fmt.Errorf("unknown row type %q", r.RowType)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("record quantity %s is not positive", r.Quantity)
	}

	instype := r.Instrument.Type()
	isOption := instype == EquityOption || instype == FutureOption
	if isOption && r.Instrument.PutCall == "" {
		return fmt.Errorf("%s record has no put/call side", instype)
	}
	if !isOption && (r.Instrument.PutCall != "" || !r.Instrument.Strike.IsZero()) {
		return fmt.Errorf("%s record carries option fields", instype)
	}
	if r.Instrument.Multiplier.IsZero() {
		return errors.New("record has no multiplier")
	}
	return nil
}

// deriveCost recomputes the signed cash effect from the record's own fields.
// Called whenever the fee joiner or the merger touches commissions or fees.
func (r *Record) deriveCost() {
	if r.Instrument.Type() == Future {
		r.Cost = r.Commissions.Add(r.Fees)
		return
	}
	notional := r.Price.Mul(r.Quantity).Mul(r.Instrument.Multiplier)
	if r.Instruction == Buy {
		notional = notional.Neg()
	}
	r.Cost = notional.Add(r.Commissions).Add(r.Fees)
}

// notional returns the absolute notional dollar value of the record, the
// weight used to distribute an aggregate fee across legs.
func (r Record) notional() Money {
	return r.Price.Mul(r.Quantity).Mul(r.Instrument.Multiplier).Abs()
}

// sameFill reports whether a late-feed record describes the same fill as r:
// same account, underlying, quantity and instruction, with datetimes within
// the tolerance window.
func (r Record) sameFill(other Record, tolerance time.Duration) bool {
	if r.Account != other.Account ||
		r.Instrument.Underlying != other.Instrument.Underlying ||
		!r.Quantity.Equal(other.Quantity) ||
		r.Instruction != other.Instruction {
		return false
	}
	delta := r.Datetime.Sub(other.Datetime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= tolerance
}
