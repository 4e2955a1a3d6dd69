package beanbuff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beancount/beanbuff/date"
)

// dt parses the naive timestamp spelling used on records. Test data helper.
func dt(s string) time.Time {
	t, err := time.Parse(DatetimeFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func spxCall(strike int) Instrument {
	return Instrument{
		Underlying: "SPX",
		Expiration: date.New(2021, 4, 16),
		Strike:     Q(strike),
		PutCall:    Call,
		Multiplier: Q(100),
	}
}

func testTrade(id string, inst Instrument, instruction Instruction, qty int, price float64) Record {
	rec := Record{
		Account:       "777888999",
		TransactionID: id,
		Datetime:      dt("2021-04-14 13:31:24"),
		RowType:       Trade,
		Instrument:    inst,
		Instruction:   instruction,
		Quantity:      Q(qty),
		Price:         USD(price),
	}
	rec.deriveCost()
	return rec
}

func TestRecordValidate(t *testing.T) {
	valid := testTrade("^001", spxCall(4000), Buy, 1, 15)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"no account", func(r *Record) { r.Account = "" }},
		{"no transaction id", func(r *Record) { r.TransactionID = "" }},
		{"no datetime", func(r *Record) { r.Datetime = time.Time{} }},
		{"trade without instruction", func(r *Record) { r.Instruction = "" }},
		{"mark row", func(r *Record) { r.RowType = Mark }},
		{"unknown row type", func(r *Record) { r.RowType = "Dividend" }},
		{"zero quantity", func(r *Record) { r.Quantity = Q(0) }},
		{"negative quantity", func(r *Record) { r.Quantity = Q(-1) }},
		{"option without put/call", func(r *Record) { r.Instrument.PutCall = "" }},
		{"no multiplier", func(r *Record) { r.Instrument.Multiplier = Q(0) }},
		{"expiration with instruction", func(r *Record) {
			r.RowType = Expiration
			r.Instruction = Buy
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			assert.Error(t, rec.Validate())
		})
	}

	// Equity rows must not carry option fields.
	equity := testTrade("^002", Instrument{Underlying: "SPY", Multiplier: Q(1)}, Sell, 10, 400)
	require.NoError(t, equity.Validate())
	equity.Instrument.Strike = Q(400)
	assert.Error(t, equity.Validate())
}

func TestDeriveCost(t *testing.T) {
	// Buying 1 SPX call at 15.00 moves 1 x 15 x 100 out of cash, plus the
	// charges.
	rec := testTrade("^001", spxCall(4000), Buy, 1, 15)
	rec.Commissions = USD("-0.65")
	rec.Fees = USD("-0.0235")
	rec.deriveCost()
	assert.True(t, rec.Cost.Equal(USD("-1500.6735")), "got %s", rec.Cost)

	// Selling flips the sign.
	rec.Instruction = Sell
	rec.deriveCost()
	assert.True(t, rec.Cost.Equal(USD("1499.3265")), "got %s", rec.Cost)

	// Futures settle on margin: the cost is the charges alone.
	fut := testTrade("^002", Instrument{Underlying: "/MESM21", Multiplier: Q(5)}, Buy, 2, 4120)
	fut.Commissions = USD("-2.50")
	fut.Fees = USD("-0.74")
	fut.deriveCost()
	assert.True(t, fut.Cost.Equal(USD("-3.24")), "got %s", fut.Cost)
}

func TestSameFill(t *testing.T) {
	a := testTrade("^001", spxCall(4000), Buy, 1, 15)
	b := a
	b.TransactionID = "29908664894"
	b.Datetime = a.Datetime.Add(3 * time.Minute)
	b.Price = USD("15.05") // price may differ between sources

	assert.True(t, a.sameFill(b, 5*time.Minute))
	assert.False(t, a.sameFill(b, time.Minute), "outside the tolerance window")

	c := b
	c.Instruction = Sell
	assert.False(t, a.sameFill(c, 5*time.Minute))

	d := b
	d.Quantity = Q(2)
	assert.False(t, a.sameFill(d, 5*time.Minute))
}
