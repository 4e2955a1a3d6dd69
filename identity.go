package beanbuff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Identity resolution: stable transaction ids, and clustering of order ids
// that the source split across the legs of one multi-leg order.

// ResolveTransactionID returns the source-provided id when it is present and
// well formed, otherwise a deterministic hash over the record's defining
// fields. The same record always yields the same id, which is what makes
// re-imports idempotent.
func ResolveTransactionID(rec Record, sourceID string) string {
	if id := strings.TrimSpace(sourceID); id != "" {
		return id
	}
	h := sha256.New()
	for _, field := range []string{
		rec.Account,
		rec.Datetime.Format(DatetimeFormat),
		rec.Instrument.String(),
		rec.Quantity.String(),
		rec.Price.Decimal().String(),
		string(rec.Instruction),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	// The caret marks a synthesized id, same convention as statement row ids.
	return "^" + hex.EncodeToString(h.Sum(nil))[:12]
}

// ClusterOrderIDs collapses the distinct-but-consecutive order ids the source
// assigns to legs of one order: records in the same account with the same
// datetime and ids within delta of the group head all take the head id.
// A gap larger than delta at the same timestamp means the grouping is
// ambiguous; those rows keep their own ids and the ambiguity is reported.
func ClusterOrderIDs(records []Record, delta int64, rep *Report) []Record {
	type key struct {
		account  string
		datetime time.Time
	}
	groups := make(map[key][]int) // indexes into records
	var keys []key               // deterministic iteration
	for i, rec := range records {
		if rec.OrderID == "" {
			continue
		}
		if _, err := strconv.ParseInt(rec.OrderID, 10, 64); err != nil {
			// Non-numeric ids cannot cluster; leave them as they are.
			continue
		}
		k := key{rec.Account, rec.Datetime}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := slices.Clone(records)
	for _, k := range keys {
		idxs := groups[k]
		if len(idxs) < 2 {
			continue
		}
		ids := make([]int64, len(idxs))
		for i, idx := range idxs {
			ids[i], _ = strconv.ParseInt(records[idx].OrderID, 10, 64)
		}
		sorted := slices.Clone(ids)
		slices.Sort(sorted)
		sorted = slices.Compact(sorted)

		// Walk the sorted ids: as long as each step stays within delta the
		// rows belong to the head. Any larger step splits the timestamp into
		// several candidate groups, which is exactly the ambiguous case.
		head := sorted[0]
		ambiguous := false
		for i := 1; i < len(sorted); i++ {
			if sorted[i]-sorted[i-1] > delta {
				ambiguous = true
				break
			}
		}
		if ambiguous {
			rep.Ambiguity(k.account, &AmbiguousOrderClusterError{
				Account:  k.account,
				Datetime: k.datetime,
				OrderIDs: sorted,
			})
			continue
		}
		headID := fmt.Sprintf("%d", head)
		for _, idx := range idxs {
			out[idx].OrderID = headID
		}
	}
	return out
}
