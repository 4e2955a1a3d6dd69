package beanbuff

import (
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
)

// The pipeline: raw rows flow one way through normalization, identity
// resolution, order clustering and the fee join into the ledger; the late
// feed then reads from and writes back into it. The whole transformation is
// deterministic and idempotent: the ledger state is a pure function of the
// union of inputs seen so far.

// Inputs is the batch of raw rows to reconcile, already parsed by the source
// adapters.
type Inputs struct {
	TradeHistory      []TradeHistoryRow
	CashBalance       []CashBalanceRow
	FuturesStatements []FuturesStatementRow
}

// accounts returns every account appearing in the inputs, sorted. Account
// partitions never interact; an error in one account's rows must not disturb
// another's.
func (in Inputs) accounts() []string {
	seen := make(map[string]bool)
	for _, row := range in.TradeHistory {
		seen[row.Account] = true
	}
	for _, row := range in.CashBalance {
		seen[row.Account] = true
	}
	for _, row := range in.FuturesStatements {
		seen[row.Account] = true
	}
	accounts := make([]string, 0, len(seen))
	for account := range seen {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	return accounts
}

// Reconcile builds a fresh ledger from the inputs. The report carries every
// row the run had to exclude or leave partial.
func Reconcile(cfg Config, in Inputs) (*Ledger, *Report) {
	ledger := NewLedger()
	rep := &Report{}
	ReconcileInto(cfg, ledger, in, rep)
	return ledger, rep
}

// ReconcileInto runs the batch into an existing ledger. Re-running the same
// batch is a no-op: every upsert is keyed by a deterministic id.
func ReconcileInto(cfg Config, ledger *Ledger, in Inputs, rep *Report) {
	for _, account := range in.accounts() {
		reconcileAccount(cfg, ledger, in, account, rep)
	}
}

func reconcileAccount(cfg Config, ledger *Ledger, in Inputs, account string, rep *Report) {
	var trades []Record
	var expirations []Record
	var events []CashEvent

	if cfg.Sources.TradeHistory {
		for _, row := range in.TradeHistory {
			if row.Account != account {
				continue
			}
			rec, err := NormalizeTradeHistory(cfg, row)
			if err != nil {
				rep.RowError(account, err)
				continue
			}
			trades = append(trades, rec)
		}
	}
	if cfg.Sources.CashBalance {
		for _, row := range in.CashBalance {
			if row.Account != account {
				continue
			}
			rec, event, err := NormalizeCashBalance(cfg, row)
			if err != nil {
				rep.RowError(account, err)
				continue
			}
			if rec != nil {
				expirations = append(expirations, *rec)
			} else {
				events = append(events, event)
			}
		}
	}
	if cfg.Sources.FuturesStatements {
		for _, row := range in.FuturesStatements {
			if row.Account != account {
				continue
			}
			rec, event, err := NormalizeFuturesStatement(cfg, row)
			if err != nil {
				rep.RowError(account, err)
				continue
			}
			if rec != nil {
				expirations = append(expirations, *rec)
			} else {
				events = append(events, event)
			}
		}
	}

	trades = ClusterOrderIDs(trades, cfg.OrderClusterDelta, rep)
	for i := range trades {
		trades[i].TransactionID = ResolveTransactionID(trades[i], "")
	}
	for i := range expirations {
		expirations[i].TransactionID = ResolveTransactionID(expirations[i], "")
	}

	tradeEvents, nonTrade := splitTradeLinked(events)
	trades, unconsumed := JoinFees(cfg, trades, tradeEvents, rep)
	nonTrade = append(nonTrade, unconsumed...)

	committed := 0
	for _, rec := range append(trades, expirations...) {
		if err := rec.Validate(); err != nil {
			rep.RowError(account, err)
			continue
		}
		ledger.Upsert(rec)
		committed++
	}
	rep.NonTrade = append(rep.NonTrade, nonTrade...)

	log.WithFields(log.Fields{
		"account":   account,
		"trades":    len(trades),
		"committed": committed,
		"non_trade": len(nonTrade),
	}).Info("reconciled account batch")
}

func splitTradeLinked(events []CashEvent) (trade, nonTrade []CashEvent) {
	for _, event := range events {
		if event.tradeLinked() {
			trade = append(trade, event)
		} else {
			nonTrade = append(nonTrade, event)
		}
	}
	return trade, nonTrade
}

// ApplyFeed normalizes delayed-feed rows and merges them into the ledger.
// The feed arrives after settlement, so this typically runs one or two days
// after the statement batch, against the ledger that batch built.
func ApplyFeed(cfg Config, ledger *Ledger, rows []FeedRow, rep *Report) {
	if !cfg.Sources.Feed {
		return
	}
	var records []Record
	for _, row := range rows {
		rec, ok, err := NormalizeFeedRow(cfg, row)
		if err != nil {
			rep.RowError(row.Account, err)
			continue
		}
		if !ok {
			log.WithField("type", row.Type).Debug("skipping non-trade feed row")
			continue
		}
		rec.TransactionID = ResolveTransactionID(rec, row.TransactionID)
		if err := rec.Validate(); err != nil {
			rep.RowError(row.Account, err)
			continue
		}
		records = append(records, rec)
	}
	// Deterministic merge order regardless of feed pagination.
	slices.SortFunc(records, func(a, b Record) int {
		if c := a.Datetime.Compare(b.Datetime); c != 0 {
			return c
		}
		return strings.Compare(a.TransactionID, b.TransactionID)
	})
	MergeFeed(cfg, ledger, records, rep)
}
