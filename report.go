package beanbuff

import (
	"fmt"
	"time"
)

// AmbiguousOrderClusterError reports trade rows at one timestamp whose order
// ids could not be clustered into a single order: either the id gap exceeds
// the configured delta or several candidate groups coexist. The rows are kept
// ungrouped; nothing is guessed.
type AmbiguousOrderClusterError struct {
	Account  string
	Datetime time.Time
	OrderIDs []int64
}

func (e *AmbiguousOrderClusterError) Error() string {
	return fmt.Sprintf("ambiguous order cluster in account %s at %s: order ids %v",
		e.Account, e.Datetime.Format(DatetimeFormat), e.OrderIDs)
}

// UnresolvedFeeJoinError reports a trade group for which zero or several
// balance-statement rows qualified as the fee source. The legs keep zero fees.
type UnresolvedFeeJoinError struct {
	Account    string
	Datetime   time.Time
	OrderID    string
	Candidates int
}

func (e *UnresolvedFeeJoinError) Error() string {
	return fmt.Sprintf("fee join unresolved for order %s in account %s at %s: %d candidate balance rows",
		e.OrderID, e.Account, e.Datetime.Format(DatetimeFormat), e.Candidates)
}

// AmbiguousLateMatchError reports a late-feed record matching several ledger
// records. The merge is withheld for manual reconciliation: picking one
// candidate could silently double a position.
type AmbiguousLateMatchError struct {
	Account       string
	TransactionID string
	Datetime      time.Time
	CandidateIDs  []string
}

func (e *AmbiguousLateMatchError) Error() string {
	return fmt.Sprintf("late feed record %s in account %s at %s matches %d ledger records %v",
		e.TransactionID, e.Account, e.Datetime.Format(DatetimeFormat),
		len(e.CandidateIDs), e.CandidateIDs)
}

// Issue is one reported condition, fatal for its row or not.
type Issue struct {
	Account string
	Err     error
}

// Report accumulates everything a run could not resolve. It is rebuilt
// identically on every re-run over the same inputs, so unresolved items keep
// surfacing until new data resolves them.
type Report struct {
	// RowErrors are structural failures (unparseable symbol, unknown
	// multiplier). The row is excluded from the ledger; the rest of the batch
	// proceeds.
	RowErrors []Issue
	// Ambiguities are matching conditions that degraded gracefully: the
	// record is kept, partial, and never guessed at.
	Ambiguities []Issue
	// NonTrade collects balance-statement events that describe no trade
	// (sweeps, journal entries, dividends) and balance rows left unconsumed
	// by the fee join. Their handling belongs to another component.
	NonTrade []CashEvent
}

// RowError records a structural failure for one row.
func (rep *Report) RowError(account string, err error) {
	rep.RowErrors = append(rep.RowErrors, Issue{Account: account, Err: err})
}

// Ambiguity records a non-fatal matching condition.
func (rep *Report) Ambiguity(account string, err error) {
	rep.Ambiguities = append(rep.Ambiguities, Issue{Account: account, Err: err})
}

// HasIssues reports whether anything needs human attention.
func (rep *Report) HasIssues() bool {
	return len(rep.RowErrors) > 0 || len(rep.Ambiguities) > 0
}
