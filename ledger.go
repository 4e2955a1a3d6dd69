package beanbuff

import (
	"iter"
	"slices"
	"strings"
)

// Ledger is the canonical transaction log: an addressable collection of
// records keyed by transaction id. It is the single mutation point of the
// pipeline; only the fee joiner and the late-feed merger write to it, and
// both are idempotent at the level of individual keys.
//
// Records are never deleted once committed; a superseded record is replaced
// in place, or rekeyed when the authoritative feed supplies a better id.
type Ledger struct {
	records map[string]Record
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]Record)}
}

// Upsert inserts the record, replacing any record already stored under the
// same transaction id. Re-applying an identical record changes nothing.
func (l *Ledger) Upsert(rec Record) {
	l.records[rec.TransactionID] = rec
}

// Get returns the record stored under id.
func (l *Ledger) Get(id string) (Record, bool) {
	rec, ok := l.records[id]
	return rec, ok
}

// Remove takes a record out of the store. Only the late-feed merger uses it,
// to rekey a superseded record under the feed's authoritative id.
func (l *Ledger) Remove(id string) {
	delete(l.records, id)
}

// Len returns the number of records in the ledger.
func (l *Ledger) Len() int { return len(l.records) }

// All iterates over the records ordered by datetime. Records at the same
// instant are ordered by transaction id so that iteration order is a pure
// function of content.
func (l *Ledger) All() iter.Seq[Record] {
	ordered := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		ordered = append(ordered, rec)
	}
	slices.SortFunc(ordered, func(a, b Record) int {
		if c := a.Datetime.Compare(b.Datetime); c != 0 {
			return c
		}
		return strings.Compare(a.TransactionID, b.TransactionID)
	})
	return slices.Values(ordered)
}

// Account returns a filtered view of the ledger holding one account's records.
func (l *Ledger) Account(account string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for rec := range l.All() {
			if rec.Account != account {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}
