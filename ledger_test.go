package beanbuff

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerUpsert(t *testing.T) {
	ledger := NewLedger()
	rec := testTrade("^001", spxCall(4000), Buy, 1, 15)

	ledger.Upsert(rec)
	assert.Equal(t, 1, ledger.Len())

	// Re-applying the identical record changes nothing.
	ledger.Upsert(rec)
	assert.Equal(t, 1, ledger.Len())
	got, ok := ledger.Get("^001")
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// Same key, new content: replaced in place.
	rec.Description = "BOT +1 SPX"
	ledger.Upsert(rec)
	assert.Equal(t, 1, ledger.Len())
	got, _ = ledger.Get("^001")
	assert.Equal(t, "BOT +1 SPX", got.Description)
}

func TestLedgerAll_Ordering(t *testing.T) {
	ledger := NewLedger()
	base := dt("2021-04-14 13:31:24")

	c := testTrade("^c", spxCall(4000), Buy, 1, 15)
	c.Datetime = base.Add(time.Hour)
	a := testTrade("^a", spxCall(4010), Sell, 1, 10)
	a.Datetime = base
	b := testTrade("^b", spxCall(4020), Buy, 1, 5)
	b.Datetime = base // same instant as ^a

	for _, rec := range []Record{c, b, a} {
		ledger.Upsert(rec)
	}

	var ids []string
	for rec := range ledger.All() {
		ids = append(ids, rec.TransactionID)
	}
	// Datetime first, transaction id as the tiebreaker: iteration order is a
	// pure function of content, not of insertion.
	assert.Equal(t, []string{"^a", "^b", "^c"}, ids)
}

func TestLedgerAccount(t *testing.T) {
	ledger := NewLedger()
	mine := testTrade("^001", spxCall(4000), Buy, 1, 15)
	other := testTrade("^002", spxCall(4000), Buy, 1, 15)
	other.Account = "111222333"
	ledger.Upsert(mine)
	ledger.Upsert(other)

	for rec := range ledger.Account("777888999") {
		assert.Equal(t, "777888999", rec.Account)
	}
	assert.Equal(t, 1, len(slices.Collect(ledger.Account("111222333"))))
	assert.Empty(t, slices.Collect(ledger.Account("000000000")))
}

func TestLedgerRemove(t *testing.T) {
	ledger := NewLedger()
	ledger.Upsert(testTrade("^001", spxCall(4000), Buy, 1, 15))
	ledger.Remove("^001")
	assert.Equal(t, 0, ledger.Len())
	_, ok := ledger.Get("^001")
	assert.False(t, ok)
}
