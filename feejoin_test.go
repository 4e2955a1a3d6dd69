package beanbuff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verticalLegs builds the two legs of a short SPX vertical issued as one
// order: buy the 4000 call at 2.50, sell the 4010 call at 5.00.
func verticalLegs() []Record {
	long := testTrade("^long", spxCall(4000), Buy, 1, 2.5)
	long.OrderID = "447599831"
	short := testTrade("^short", spxCall(4010), Sell, 1, 5)
	short.OrderID = "447599831"
	return []Record{long, short}
}

// verticalEvent is the single Cash Balance line for those fills: the legs are
// merged, the net amount is +250.00 and the charges sit only here.
func verticalEvent() CashEvent {
	return CashEvent{
		Account:     "777888999",
		Datetime:    dt("2021-04-14 13:31:24"),
		Source:      "cash",
		Type:        "TRD",
		Description: "BOT +1 VERTICAL SPX 100 (Weeklys) 16 APR 21 4000/4010 CALL @2.50",
		Amount:      USD(250),
		Commissions: USD("-1.30"),
		Fees:        USD("-0.84"),
		Strategy:    "VERTICAL",
		Quantity:    Q(1),
		Symbol:      "SPX",
	}
}

func TestJoinFees(t *testing.T) {
	rep := &Report{}
	out, remaining := JoinFees(DefaultConfig(), verticalLegs(), []CashEvent{verticalEvent()}, rep)

	require.False(t, rep.HasIssues())
	assert.Empty(t, remaining, "the balance row is consumed")

	// Distribution is proportional to absolute notional: 250 vs 500. The
	// first leg rounds to the cent, the last leg absorbs the remainder.
	long, short := out[0], out[1]
	assert.True(t, long.Commissions.Equal(USD("-0.43")), "got %s", long.Commissions)
	assert.True(t, short.Commissions.Equal(USD("-0.87")), "got %s", short.Commissions)
	assert.True(t, long.Fees.Equal(USD("-0.28")), "got %s", long.Fees)
	assert.True(t, short.Fees.Equal(USD("-0.56")), "got %s", short.Fees)

	// Conservation: the leg totals reproduce the balance row exactly.
	assert.True(t, long.Commissions.Add(short.Commissions).Equal(USD("-1.30")))
	assert.True(t, long.Fees.Add(short.Fees).Equal(USD("-0.84")))

	// Each leg is marked with its place in the order.
	assert.Contains(t, long.Description, "[1/2]")
	assert.Contains(t, short.Description, "[2/2]")

	// Costs were re-derived from the new charges.
	assert.True(t, long.Cost.Equal(USD("-250.71")), "got %s", long.Cost)
	assert.True(t, short.Cost.Equal(USD("498.57")), "got %s", short.Cost)
}

func TestJoinFees_ZeroCandidates(t *testing.T) {
	legs := verticalLegs()
	rep := &Report{}
	out, remaining := JoinFees(DefaultConfig(), legs, nil, rep)

	// No balance row qualifies: equities must report, never stay silent.
	require.Len(t, rep.Ambiguities, 1)
	var jerr *UnresolvedFeeJoinError
	require.ErrorAs(t, rep.Ambiguities[0].Err, &jerr)
	assert.Equal(t, 0, jerr.Candidates)
	assert.Empty(t, remaining)

	// The legs survive with zero fees.
	for _, rec := range out {
		assert.True(t, rec.Commissions.IsZero())
		assert.NoError(t, rec.Validate())
	}
}

func TestJoinFees_ZeroNotionalGroup(t *testing.T) {
	// Both legs filled at 0.00, matched by a zero-amount balance row. With
	// no notional to weight by, the charges split evenly across the legs.
	long := testTrade("^long", spxCall(4000), Buy, 1, 0)
	long.OrderID = "447599831"
	short := testTrade("^short", spxCall(4010), Sell, 1, 0)
	short.OrderID = "447599831"

	event := verticalEvent()
	event.Amount = USD(0)

	rep := &Report{}
	out, remaining := JoinFees(DefaultConfig(), []Record{long, short}, []CashEvent{event}, rep)

	require.False(t, rep.HasIssues())
	assert.Empty(t, remaining)
	assert.True(t, out[0].Commissions.Equal(USD("-0.65")), "got %s", out[0].Commissions)
	assert.True(t, out[1].Commissions.Equal(USD("-0.65")), "got %s", out[1].Commissions)
	assert.True(t, out[0].Fees.Equal(USD("-0.42")), "got %s", out[0].Fees)
	assert.True(t, out[1].Fees.Equal(USD("-0.42")), "got %s", out[1].Fees)
	assert.True(t, out[0].Fees.Add(out[1].Fees).Equal(USD("-0.84")))
}

func TestJoinFees_FuturesFillWithoutFeeLine(t *testing.T) {
	fut := testTrade("^fut", Instrument{Underlying: "/MESM21", Multiplier: Q(5)}, Buy, 1, 4120)
	fut.OrderID = "80923347"

	rep := &Report{}
	_, _ = JoinFees(DefaultConfig(), []Record{fut}, nil, rep)

	// Futures fees are often already netted into margin; a missing fee line
	// is normal there, not an issue.
	assert.False(t, rep.HasIssues())
}

func TestJoinFees_MultipleCandidates(t *testing.T) {
	// Two identical balance rows qualify for the same group. Picking either
	// would be a guess.
	events := []CashEvent{verticalEvent(), verticalEvent()}
	rep := &Report{}
	out, remaining := JoinFees(DefaultConfig(), verticalLegs(), events, rep)

	require.Len(t, rep.Ambiguities, 1)
	var jerr *UnresolvedFeeJoinError
	require.ErrorAs(t, rep.Ambiguities[0].Err, &jerr)
	assert.Equal(t, 2, jerr.Candidates)

	for _, rec := range out {
		assert.True(t, rec.Commissions.IsZero(), "no fees on an unresolved join")
	}
	assert.Len(t, remaining, 2, "unconsumed rows flow to the non-trade stream")
}

func TestJoinFees_EventClaimedByTwoGroups(t *testing.T) {
	// Two one-lot orders whose notionals both match the same balance row:
	// the row resolves neither group.
	a := testTrade("^a", spxCall(4000), Buy, 1, 2.5)
	a.OrderID = "1001"
	b := testTrade("^b", spxCall(4000), Buy, 1, 2.5)
	b.OrderID = "2002"

	event := verticalEvent()
	event.Amount = USD(-250)

	rep := &Report{}
	out, remaining := JoinFees(DefaultConfig(), []Record{a, b}, []CashEvent{event}, rep)

	assert.Len(t, rep.Ambiguities, 2)
	for _, rec := range out {
		assert.True(t, rec.Commissions.IsZero())
	}
	assert.Len(t, remaining, 1)
}

func TestJoinFees_WindowAndTolerance(t *testing.T) {
	legs := verticalLegs()

	// The balance row lands on the next day; the default window is same-day.
	late := verticalEvent()
	late.Datetime = dt("2021-04-15 02:00:01")
	rep := &Report{}
	_, remaining := JoinFees(DefaultConfig(), legs, []CashEvent{late}, rep)
	assert.True(t, rep.HasIssues())
	assert.Len(t, remaining, 1)

	// Widening the window restores the match.
	cfg := DefaultConfig()
	cfg.FeeJoinWindowDays = 1
	rep = &Report{}
	_, remaining = JoinFees(cfg, legs, []CashEvent{late}, rep)
	assert.False(t, rep.HasIssues())
	assert.Empty(t, remaining)

	// A notional off by more than the tolerance never matches.
	off := verticalEvent()
	off.Amount = USD("250.06")
	rep = &Report{}
	_, _ = JoinFees(DefaultConfig(), legs, []CashEvent{off}, rep)
	assert.True(t, rep.HasIssues())

	within := verticalEvent()
	within.Amount = USD("250.04")
	rep = &Report{}
	_, remaining = JoinFees(DefaultConfig(), legs, []CashEvent{within}, rep)
	assert.False(t, rep.HasIssues())
	assert.Empty(t, remaining)
}

func TestJoinFees_SingleLegKeepsDescription(t *testing.T) {
	leg := testTrade("^one", spxCall(4000), Buy, 1, 2.5)
	leg.OrderID = "447599831"
	event := verticalEvent()
	event.Strategy = "SINGLE"
	event.Amount = USD(-250)
	event.Description = "BOT +1 SPX 100 (Weeklys) 16 APR 21 4000 CALL @2.50"

	rep := &Report{}
	out, _ := JoinFees(DefaultConfig(), []Record{leg}, []CashEvent{event}, rep)
	require.False(t, rep.HasIssues())
	assert.Equal(t, event.Description, out[0].Description, "no [i/n] marker on a single leg")
	assert.True(t, out[0].Commissions.Equal(USD("-1.30")))
	assert.True(t, out[0].Fees.Equal(USD("-0.84")))
}
