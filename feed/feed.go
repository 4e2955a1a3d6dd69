// Package feed decodes the delayed transactions feed, a JSON array of settled
// transactions fetched from the brokerage API. The feed is authoritative for
// transaction ids and per-leg fees but arrives days late and knows nothing
// about futures.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/beancount/beanbuff"
)

// feedTimeFormat is the feed's timestamp spelling, e.g. "2021-04-14T13:31:24+0000".
const feedTimeFormat = "2006-01-02T15:04:05-0700"

// ReadTransactions decodes one feed document into source rows, in document
// order. Rows of types the reconciliation does not consume are still
// returned; the normalizer is the one that filters.
func ReadTransactions(r io.Reader) ([]beanbuff.FeedRow, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid feed document: %w", err)
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid feed document: expected a JSON array")
	}

	rows := make([]beanbuff.FeedRow, 0, len(list))
	for i, jtxn := range list {
		row, err := convertTransaction(jtxn)
		if err != nil {
			return nil, fmt.Errorf("feed transaction %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	log.WithField("transactions", len(rows)).Info("decoded transactions feed")
	return rows, nil
}

func convertTransaction(jtxn any) (beanbuff.FeedRow, error) {
	var row beanbuff.FeedRow

	id := jstring(jtxn, "$.transactionId")
	if id == "" {
		return row, fmt.Errorf("missing transactionId")
	}
	row.TransactionID = id
	row.OrderID = jstring(jtxn, "$.orderId")
	row.Type = jstring(jtxn, "$.type")
	row.Description = jstring(jtxn, "$.description")

	when := jstring(jtxn, "$.transactionDate")
	t, err := time.Parse(feedTimeFormat, when)
	if err != nil {
		return row, fmt.Errorf("invalid transactionDate %q: %w", when, err)
	}
	// Normalization and matching compare wall times across sources.
	row.Datetime = t.UTC()

	row.Account = jstring(jtxn, "$.transactionItem.accountId")
	row.Symbol = jstring(jtxn, "$.transactionItem.instrument.symbol")
	row.Instruction = jstring(jtxn, "$.transactionItem.instruction")
	row.Effect = jstring(jtxn, "$.transactionItem.positionEffect")
	row.Quantity = jnumber(jtxn, "$.transactionItem.amount")
	row.Price = jnumber(jtxn, "$.transactionItem.price")

	// The fees object splits regulatory charges into half a dozen keys;
	// commission stands apart, everything else folds into fees.
	row.Commissions = jnumber(jtxn, "$.fees.commission").Neg()
	if jfees, err := jsonpath.Get("$.fees", jtxn); err == nil {
		if fees, ok := jfees.(map[string]any); ok {
			total := decimal.Zero
			for key, v := range fees {
				if key == "commission" {
					continue
				}
				if f, ok := v.(float64); ok {
					total = total.Add(decimal.NewFromFloat(f))
				}
			}
			row.Fees = total.Neg()
		}
	}
	return row, nil
}

// jstring extracts a string at path, accepting numbers for the id fields the
// feed spells numerically. Missing paths read as empty.
func jstring(jobj any, path string) string {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return ""
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// jnumber extracts a number at path. Missing paths read as zero.
func jnumber(jobj any, path string) decimal.Decimal {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Zero
	}
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}
