package beanbuff

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFixture() *Ledger {
	ledger := NewLedger()

	long := testTrade("29908664894", spxCall(4000), Buy, 1, 2.5)
	long.OrderID = "447599831"
	long.Effect = Opening
	long.Commissions = USD("-0.65")
	long.Fees = USD("-0.42")
	long.Description = "BUY TRADE"
	long.deriveCost()
	ledger.Upsert(long)

	fut := testTrade("^9f21c0d4e8a1", Instrument{Underlying: "/CLK21", Multiplier: Q(1000)}, Sell, 1, 59.29)
	fut.Datetime = dt("2021-04-13 11:00:33")
	ledger.Upsert(fut)

	futopt := testTrade("^1b2c3d4e5f60", Instrument{
		Underlying:  "/CLK21",
		OptContract: "LO",
		OptCalendar: "K21",
		Strike:      Q("42.5"),
		PutCall:     Put,
		Multiplier:  Q(1000),
	}, Sell, 1, 0.31)
	futopt.Datetime = dt("2021-04-13 11:02:00")
	ledger.Upsert(futopt)

	exp := Record{
		Account:       "777888999",
		TransactionID: "^77aa88bb99cc",
		Datetime:      dt("2021-04-16 17:30:31"),
		RowType:       Expiration,
		Instrument:    spxCall(4010),
		Effect:        Closing,
		Quantity:      Q(1),
		Price:         USD(0),
		Description:   "REMOVAL OF OPTION DUE TO EXPIRATION -1 SPX 100 (Weeklys) 16 APR 21 4010 CALL",
	}
	exp.deriveCost()
	ledger.Upsert(exp)

	return ledger
}

func TestEncodeDecodeLedger(t *testing.T) {
	ledger := encodeFixture()

	var first bytes.Buffer
	require.NoError(t, EncodeLedger(&first, ledger))

	decoded, err := DecodeLedger(&first)
	require.NoError(t, err)
	require.Equal(t, ledger.Len(), decoded.Len())

	// Decoding then re-encoding an unchanged ledger is byte-for-byte stable.
	var second, third bytes.Buffer
	require.NoError(t, EncodeLedger(&second, ledger))
	require.NoError(t, EncodeLedger(&third, decoded))
	assert.Equal(t, second.String(), third.String())
}

func TestEncodeLedger_FieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, encodeFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, `{"account":"777888999","transaction_id":`),
			"canonical field order starts each line: %s", line)
	}

	// Lines are ordered by datetime, then transaction id.
	assert.Contains(t, lines[0], "2021-04-13 11:00:33")
	assert.Contains(t, lines[3], `"rowtype":"Expiration"`)
}

func TestEncodeLedger_OptionalFields(t *testing.T) {
	ledger := NewLedger()
	rec := testTrade("^001", Instrument{Underlying: "SPY", Multiplier: Q(1)}, Buy, 10, 400)
	ledger.Upsert(rec)

	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, ledger))
	line := buf.String()

	// Empty annotations and option fields stay off the wire entirely.
	for _, absent := range []string{"order_id", "match_id", "trade_id",
		"expiration", "expcode", "putcall", "strike", "description"} {
		assert.NotContains(t, line, `"`+absent+`"`)
	}
	assert.Contains(t, line, `"instype":"Equity"`)
	assert.Contains(t, line, `"multiplier":1`)
	assert.Contains(t, line, `"quantity":10`)
}

func TestDecodeLedger_RebuildsInstrument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, encodeFixture()))
	decoded, err := DecodeLedger(&buf)
	require.NoError(t, err)

	rec, ok := decoded.Get("^1b2c3d4e5f60")
	require.True(t, ok)
	assert.Equal(t, FutureOption, rec.Instrument.Type())
	assert.Equal(t, "LO", rec.Instrument.OptContract)
	assert.Equal(t, "K21", rec.Instrument.OptCalendar)
	assert.Equal(t, "/CLK21_LOK21_P42.5", rec.Instrument.String())

	long, ok := decoded.Get("29908664894")
	require.True(t, ok)
	assert.Equal(t, spxCall(4000), long.Instrument)
	assert.True(t, long.Cost.Equal(USD("-251.07")), "got %s", long.Cost)
}

func TestDecodeLedger_SkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, encodeFixture()))
	padded := "\n" + strings.ReplaceAll(buf.String(), "\n", "\n\n")
	decoded, err := DecodeLedger(strings.NewReader(padded))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Len())
}

func TestDecodeLedger_Invalid(t *testing.T) {
	_, err := DecodeLedger(strings.NewReader("not json\n"))
	require.Error(t, err)

	_, err = DecodeLedger(strings.NewReader(`{"account":"x","datetime":"bogus"}` + "\n"))
	require.Error(t, err)
}
