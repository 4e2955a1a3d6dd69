package beanbuff

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beancount/beanbuff/date"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// The ledger persists as JSONL, one record per line, fields in a fixed order
// so that re-encoding an unchanged ledger is byte-for-byte identical. That
// stability is what makes re-imports verifiable.

// jsonObjectWriter builds a JSON object with a guaranteed field order.
// Its zero value is ready to use.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Append writes a key/value pair.
func (w *jsonObjectWriter) Append(key string, v any) {
	if w.err != nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("could not marshal field %q: %w", key, err)
		return
	}
	fmt.Fprintf(&w.Buffer, "%q:%s,", key, raw)
}

// Optional writes a key/value pair, skipping empty strings.
func (w *jsonObjectWriter) Optional(key string, v string) {
	if v == "" {
		return
	}
	w.Append(key, v)
}

// MarshalJSON closes and returns the object.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	inner := bytes.TrimSuffix(w.Bytes(), []byte(","))
	var out bytes.Buffer
	out.WriteByte('{')
	out.Write(inner)
	out.WriteByte('}')
	return out.Bytes(), nil
}

// MarshalJSON implements the json.Marshaler interface for Record, in the
// canonical field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("account", r.Account)
	w.Append("transaction_id", r.TransactionID)
	w.Append("datetime", r.Datetime.Format(DatetimeFormat))
	w.Append("rowtype", string(r.RowType))
	w.Optional("order_id", r.OrderID)
	w.Optional("match_id", r.MatchID)
	w.Optional("trade_id", r.TradeID)

	w.Append("instype", string(r.Instrument.Type()))
	w.Append("underlying", r.Instrument.Underlying)
	if !r.Instrument.Expiration.IsZero() {
		w.Append("expiration", r.Instrument.Expiration.String())
	}
	w.Optional("expcode", r.Instrument.ExpCode())
	w.Optional("putcall", string(r.Instrument.PutCall))
	if !r.Instrument.Strike.IsZero() {
		w.Append("strike", r.Instrument.Strike)
	}
	w.Append("multiplier", r.Instrument.Multiplier)

	w.Optional("effect", string(r.Effect))
	w.Optional("instruction", string(r.Instruction))
	w.Append("quantity", r.Quantity)
	w.Append("price", r.Price)
	w.Append("cost", r.Cost)
	w.Append("commissions", r.Commissions)
	w.Append("fees", r.Fees)
	w.Optional("description", r.Description)
	return w.MarshalJSON()
}

// recordLine is the decoding shape of one JSONL line.
type recordLine struct {
	Account       string          `json:"account"`
	TransactionID string          `json:"transaction_id"`
	Datetime      string          `json:"datetime"`
	RowType       string          `json:"rowtype"`
	OrderID       string          `json:"order_id"`
	MatchID       string          `json:"match_id"`
	TradeID       string          `json:"trade_id"`
	Underlying    string          `json:"underlying"`
	Expiration    string          `json:"expiration"`
	ExpCode       string          `json:"expcode"`
	PutCall       string          `json:"putcall"`
	Strike        decimal.Decimal `json:"strike"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	Effect        string          `json:"effect"`
	Instruction   string          `json:"instruction"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Commissions   decimal.Decimal `json:"commissions"`
	Fees          decimal.Decimal `json:"fees"`
	Description   string          `json:"description"`
}

func (line recordLine) record() (Record, error) {
	datetime, err := time.Parse(DatetimeFormat, line.Datetime)
	if err != nil {
		return Record{}, fmt.Errorf("invalid datetime %q: %w", line.Datetime, err)
	}
	inst := Instrument{
		Underlying: line.Underlying,
		PutCall:    PutCall(line.PutCall),
		Strike:     Q(line.Strike),
		Multiplier: Q(line.Multiplier),
	}
	if line.Expiration != "" {
		exp, err := date.Parse(line.Expiration)
		if err != nil {
			return Record{}, err
		}
		inst.Expiration = exp
	}
	if line.ExpCode != "" {
		m := calendarRe.FindStringSubmatch(line.ExpCode)
		if m == nil {
			return Record{}, fmt.Errorf("invalid expcode %q", line.ExpCode)
		}
		inst.OptContract, inst.OptCalendar = m[1], m[2]
	}
	return Record{
		Account:       line.Account,
		TransactionID: line.TransactionID,
		Datetime:      datetime,
		RowType:       RowType(line.RowType),
		OrderID:       line.OrderID,
		MatchID:       line.MatchID,
		TradeID:       line.TradeID,
		Instrument:    inst,
		Effect:        Effect(line.Effect),
		Instruction:   Instruction(line.Instruction),
		Quantity:      Q(line.Quantity),
		Price:         USD(line.Price),
		Cost:          USD(line.Cost),
		Commissions:   USD(line.Commissions),
		Fees:          USD(line.Fees),
		Description:   line.Description,
	}, nil
}

// EncodeLedger writes the ledger as JSONL, ordered by datetime then id.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for rec := range ledger.All() {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("could not encode record %s: %w", rec.TransactionID, err)
		}
		if _, err := w.Write(append(raw, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLedger reads a JSONL stream back into a ledger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line recordLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("could not decode line %q: %w", raw, err)
		}
		rec, err := line.record()
		if err != nil {
			return nil, fmt.Errorf("could not decode line %q: %w", raw, err)
		}
		ledger.Upsert(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ledger, nil
}
