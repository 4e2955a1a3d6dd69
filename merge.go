package beanbuff

import (
	log "github.com/sirupsen/logrus"
)

// Late-feed merge. The delayed API feed is authoritative (it settles one to
// two days after the fact and carries real transaction ids and per-leg fees)
// but blind to futures and to anything the earlier join annotated. Merging
// supersedes statement-built records without losing those annotations.

// MergeFeed reconciles normalized feed records into the ledger. Each feed
// record either replaces its unique statement-built counterpart, inserts as a
// brand new event, or, when several counterparts qualify, is withheld and
// reported. It never guesses among ambiguous candidates: a wrong merge would
// silently double a position.
func MergeFeed(cfg Config, ledger *Ledger, records []Record, rep *Report) {
	for _, feedRec := range records {
		mergeOne(cfg, ledger, feedRec, rep)
	}
}

func mergeOne(cfg Config, ledger *Ledger, feedRec Record, rep *Report) {
	stored, seen := ledger.Get(feedRec.TransactionID)

	var matches []Record
	for rec := range ledger.Account(feedRec.Account) {
		if rec.TransactionID == feedRec.TransactionID || rec.RowType != feedRec.RowType {
			continue
		}
		if rec.sameFill(feedRec, cfg.LateMatchTolerance) {
			matches = append(matches, rec)
		}
	}

	if seen {
		// Already merged on a previous run. Supersede the stored record
		// rather than overwrite it, so annotations retained by the first
		// merge survive a replay of the same feed page. A statement
		// re-import may also have resurrected the counterpart under its
		// hashed id in the meantime; re-absorb it, or the same economic
		// event would exist twice.
		merged := supersede(stored, feedRec)
		switch len(matches) {
		case 0:
		case 1:
			merged = supersede(matches[0], merged)
			ledger.Remove(matches[0].TransactionID)
		default:
			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = m.TransactionID
			}
			rep.Ambiguity(feedRec.Account, &AmbiguousLateMatchError{
				Account:       feedRec.Account,
				TransactionID: feedRec.TransactionID,
				Datetime:      feedRec.Datetime,
				CandidateIDs:  ids,
			})
		}
		ledger.Upsert(merged)
		return
	}

	switch len(matches) {
	case 0:
		// An event the earlier sources missed entirely.
		log.WithFields(log.Fields{
			"account": feedRec.Account,
			"id":      feedRec.TransactionID,
		}).Debug("late feed record has no statement counterpart, inserting")
		ledger.Upsert(feedRec)

	case 1:
		prior := matches[0]
		merged := supersede(prior, feedRec)
		ledger.Remove(prior.TransactionID)
		ledger.Upsert(merged)
		log.WithFields(log.Fields{
			"account": merged.Account,
			"id":      merged.TransactionID,
			"was":     prior.TransactionID,
		}).Debug("late feed record superseded statement record")

	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.TransactionID
		}
		rep.Ambiguity(feedRec.Account, &AmbiguousLateMatchError{
			Account:       feedRec.Account,
			TransactionID: feedRec.TransactionID,
			Datetime:      feedRec.Datetime,
			CandidateIDs:  ids,
		})
	}
}

// supersede builds the merged record: the feed's fields are authoritative,
// but grouping metadata only the earlier join could supply survives the
// overwrite.
func supersede(prior, feedRec Record) Record {
	merged := feedRec
	if merged.OrderID == "" {
		merged.OrderID = prior.OrderID
	}
	if merged.TradeID == "" {
		merged.TradeID = prior.TradeID
	}
	if merged.MatchID == "" {
		merged.MatchID = prior.MatchID
	}
	if merged.Effect == "" {
		merged.Effect = prior.Effect
	}
	if merged.Description == "" {
		merged.Description = prior.Description
	}
	merged.deriveCost()
	return merged
}
