package beanbuff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beancount/beanbuff/date"
)

// Cross-source fee join. Trade-history rows know the fills but not the fees;
// balance-statement rows know the fees but merge the legs of an order into
// one line. The join backfills commissions and fees onto the legs, and only
// when exactly one balance row qualifies: anything else is reported, never
// guessed.

// JoinFees matches fee-less trade records against trade-linked balance
// events. It returns the records with fees distributed, and the balance
// events left unconsumed; consumed events vanish from the non-trade stream.
func JoinFees(cfg Config, records []Record, events []CashEvent, rep *Report) ([]Record, []CashEvent) {
	out := slices.Clone(records)

	// Legs issued as one order share the fee line; group them.
	type groupKey struct {
		account string
		orderID string
	}
	groups := make(map[groupKey][]int)
	var order []groupKey // deterministic iteration
	for i, rec := range out {
		if rec.RowType != Trade {
			continue
		}
		k := groupKey{rec.Account, rec.OrderID}
		if k.orderID == "" {
			k.orderID = "~" + rec.TransactionID
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	// First pass: candidate balance events per group. An event claimed by
	// two groups resolves neither.
	claims := make(map[int][]groupKey) // event index -> claiming groups
	candidates := make(map[groupKey][]int)
	for _, k := range order {
		idxs := groups[k]
		for e, event := range events {
			if !event.tradeLinked() || event.Account != k.account {
				continue
			}
			if !sameCalendarWindow(date.Of(event.Datetime), date.Of(out[idxs[0]].Datetime), cfg.FeeJoinWindowDays) {
				continue
			}
			if !symbolAgrees(event.Symbol, out, idxs) {
				continue
			}
			if !notionalMatches(event, out, idxs, cfg.NotionalTolerance) {
				continue
			}
			candidates[k] = append(candidates[k], e)
			claims[e] = append(claims[e], k)
		}
	}

	consumed := make([]bool, len(events))
	for _, k := range order {
		idxs := groups[k]
		cands := candidates[k]
		if len(cands) == 1 && len(claims[cands[0]]) == 1 {
			distributeFees(out, idxs, events[cands[0]])
			consumed[cands[0]] = true
			continue
		}
		if len(cands) == 0 && allFutures(out, idxs) {
			// The futures statement sometimes has no separate fee line for a
			// fill already netted into margin; nothing to join, nothing to
			// report.
			continue
		}
		rep.Ambiguity(k.account, &UnresolvedFeeJoinError{
			Account:    k.account,
			Datetime:   out[idxs[0]].Datetime,
			OrderID:    out[idxs[0]].OrderID,
			Candidates: len(cands),
		})
	}

	var remaining []CashEvent
	for e, event := range events {
		if !consumed[e] {
			remaining = append(remaining, event)
		}
	}
	return out, remaining
}

func allFutures(records []Record, idxs []int) bool {
	for _, i := range idxs {
		t := records[i].Instrument.Type()
		if t != Future && t != FutureOption {
			return false
		}
	}
	return true
}

// symbolAgrees checks that the balance row's parsed symbol, when present,
// names the root of at least one leg.
func symbolAgrees(symbol string, records []Record, idxs []int) bool {
	if symbol == "" {
		return true
	}
	for _, i := range idxs {
		if records[i].Instrument.Root() == symbol ||
			strings.HasPrefix(records[i].Instrument.Underlying, symbol) {
			return true
		}
	}
	return false
}

// notionalMatches compares the balance row's cash amount with the group's
// signed notional.
func notionalMatches(event CashEvent, records []Record, idxs []int, tolerance decimal.Decimal) bool {
	var total Money
	for _, i := range idxs {
		rec := records[i]
		notional := rec.Price.Mul(rec.Quantity).Mul(rec.Instrument.Multiplier)
		if rec.Instruction == Buy {
			notional = notional.Neg()
		}
		total = total.Add(notional)
	}
	diff := total.Sub(event.Amount).Decimal().Abs()
	return diff.LessThanOrEqual(tolerance)
}

// distributeFees spreads the event's commissions and fees across the legs,
// proportionally to each leg's absolute notional. When every leg priced at
// zero the group's notional is zero too, and the split falls back to even
// weights. Per-leg amounts round to the cent; the last leg absorbs the
// remainder so the totals are conserved.
func distributeFees(records []Record, idxs []int, event CashEvent) {
	var totalNotional Money
	for _, i := range idxs {
		totalNotional = totalNotional.Add(records[i].notional())
	}

	assignedComm, assignedFees := USD(0), USD(0)
	for n, i := range idxs {
		rec := &records[i]
		var comm, fees Money
		if n == len(idxs)-1 {
			comm = event.Commissions.Sub(assignedComm)
			fees = event.Fees.Sub(assignedFees)
		} else {
			weight := Q(1).Div(Q(len(idxs)))
			if !totalNotional.IsZero() {
				weight = Q(rec.notional().Decimal().Div(totalNotional.Decimal()))
			}
			comm = event.Commissions.Mul(weight).Round()
			fees = event.Fees.Mul(weight).Round()
			assignedComm = assignedComm.Add(comm)
			assignedFees = assignedFees.Add(fees)
		}
		rec.Commissions = comm
		rec.Fees = fees
		if len(idxs) > 1 {
			rec.Description = fmt.Sprintf("%s  [%d/%d]", event.Description, n+1, len(idxs))
		} else {
			rec.Description = event.Description
		}
		rec.deriveCost()
	}
}

// sameCalendarWindow reports whether two dates fall within windowDays
// calendar days of each other; zero means the same calendar day.
func sameCalendarWindow(a, b date.Date, windowDays int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= windowDays
}
