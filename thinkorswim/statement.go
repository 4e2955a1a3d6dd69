// Package thinkorswim reads exported "Account Statement" CSV files and turns
// their sections into source rows for reconciliation.
//
// A statement file is a stack of titled CSV sections separated by blank
// lines. Only three sections matter here: "Account Trade History" (the
// fills), "Cash Balance" and "Futures Statements" (the money movements). The
// rest of the export is summary material and is skipped.
package thinkorswim

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/beancount/beanbuff"
	"github.com/beancount/beanbuff/date"
)

// datetimeFormat is the statement's date-time spelling, e.g. "4/12/21 14:02:49".
const datetimeFormat = "1/2/06 15:04:05"

var accountRe = regexp.MustCompile(`Account Statement for (\d+)`)

// ReadStatement parses one exported statement into the three source tables.
// The account number is sniffed from the statement banner and stamped on
// every row.
func ReadStatement(r io.Reader) (beanbuff.Inputs, error) {
	var in beanbuff.Inputs

	raw, err := io.ReadAll(r)
	if err != nil {
		return in, err
	}
	// The export starts with a UTF-8 BOM.
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	m := accountRe.FindSubmatch(raw)
	if m == nil {
		return in, fmt.Errorf("not an account statement: no account banner found")
	}
	account := string(m[1])

	sections, err := splitSections(raw)
	if err != nil {
		return in, err
	}

	if rows, ok := sections["Account Trade History"]; ok {
		in.TradeHistory, err = convertTradeHistory(account, rows)
		if err != nil {
			return in, fmt.Errorf("Account Trade History: %w", err)
		}
	}
	if rows, ok := sections["Cash Balance"]; ok {
		in.CashBalance, err = convertCashBalance(account, rows)
		if err != nil {
			return in, fmt.Errorf("Cash Balance: %w", err)
		}
	}
	if rows, ok := sections["Futures Statements"]; ok {
		in.FuturesStatements, err = convertFuturesStatements(account, rows)
		if err != nil {
			return in, fmt.Errorf("Futures Statements: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"account": account,
		"trades":  len(in.TradeHistory),
		"cash":    len(in.CashBalance),
		"futures": len(in.FuturesStatements),
	}).Info("parsed account statement")
	return in, nil
}

// splitSections cuts the statement into titled sections. A title is a line
// whose only non-empty cell names the section; the section body runs until
// the next blank line.
func splitSections(raw []byte) (map[string][][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	sections := make(map[string][][]string)
	var title string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRow(rec) {
			title = ""
			continue
		}
		if len(rec) >= 1 && rec[0] != "" && singleCell(rec) {
			title = rec[0]
			continue
		}
		if title != "" {
			sections[title] = append(sections[title], rec)
		}
	}
	return sections, nil
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func singleCell(rec []string) bool {
	for _, c := range rec[1:] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// decodeSection re-assembles a section's rows into CSV text and unmarshals it
// with the struct's csv tags. Columns with no matching tag are ignored, which
// covers the unnamed leading column of the trade history table.
func decodeSection[T any](rows [][]string) ([]T, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	var out []T
	if err := gocsv.UnmarshalBytes(buf.Bytes(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func convertTradeHistory(account string, rows [][]string) ([]beanbuff.TradeHistoryRow, error) {
	lines, err := decodeSection[tradeHistoryLine](rows)
	if err != nil {
		return nil, err
	}

	out := make([]beanbuff.TradeHistoryRow, 0, len(lines))
	// Multi-leg orders print the time, spread and order id on the first leg
	// only; fill them down.
	var lastTime time.Time
	var lastSpread string
	var lastOrderID int64
	for _, line := range lines {
		if line.ExecTime != "" {
			lastTime, err = time.Parse(datetimeFormat, line.ExecTime)
			if err != nil {
				return nil, fmt.Errorf("invalid exec time %q: %w", line.ExecTime, err)
			}
		}
		if line.Spread != "" {
			lastSpread = line.Spread
		}
		if id := dashEmpty(line.OrderID); id != "" {
			lastOrderID, err = strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid order id %q: %w", line.OrderID, err)
			}
		}

		qty, err := toDecimal(line.Qty, line.Type)
		if err != nil {
			return nil, err
		}
		price, err := toDecimal(dashEmpty(line.Price), line.Type)
		if err != nil {
			return nil, err
		}
		strike, err := toDecimal(dashEmpty(line.Strike), line.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, beanbuff.TradeHistoryRow{
			Account:   account,
			ExecTime:  lastTime,
			Spread:    lastSpread,
			Side:      line.Side,
			Quantity:  qty,
			PosEffect: dashEmpty(line.PosEffect),
			Symbol:    line.Symbol,
			Exp:       dashEmpty(line.Exp),
			Strike:    strike,
			Type:      line.Type,
			Price:     price,
			OrderID:   lastOrderID,
		})
	}
	return out, nil
}

func convertCashBalance(account string, rows [][]string) ([]beanbuff.CashBalanceRow, error) {
	lines, err := decodeSection[cashBalanceLine](rows)
	if err != nil {
		return nil, err
	}

	out := make([]beanbuff.CashBalanceRow, 0, len(lines))
	// The export drops the misc fees column from this table; it is backed out
	// of consecutive balances instead.
	var prevBalance decimal.Decimal
	var havePrev bool
	for _, line := range lines {
		if line.Description == "TOTAL" {
			continue
		}
		dt, err := time.Parse(datetimeFormat, line.Date+" "+line.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid date/time %q %q: %w", line.Date, line.Time, err)
		}
		commissions, err := toDecimal(dashEmpty(line.CommissionsFees), "")
		if err != nil {
			return nil, err
		}
		amount, err := toDecimal(dashEmpty(line.Amount), "")
		if err != nil {
			return nil, err
		}
		balance, err := toDecimal(line.Balance, "")
		if err != nil {
			return nil, err
		}
		var miscFees decimal.Decimal
		if havePrev {
			miscFees = balance.Sub(prevBalance).Sub(amount.Add(commissions))
		}
		prevBalance, havePrev = balance, true

		out = append(out, beanbuff.CashBalanceRow{
			Account:         account,
			Datetime:        dt,
			Type:            line.Type,
			Description:     line.Description,
			CommissionsFees: commissions,
			MiscFees:        miscFees,
			Amount:          amount,
		})
	}
	return out, nil
}

func convertFuturesStatements(account string, rows [][]string) ([]beanbuff.FuturesStatementRow, error) {
	lines, err := decodeSection[futuresStatementLine](rows)
	if err != nil {
		return nil, err
	}

	out := make([]beanbuff.FuturesStatementRow, 0, len(lines))
	for _, line := range lines {
		if line.Description == "TOTAL" {
			continue
		}
		dt, err := time.Parse(datetimeFormat, line.ExecDate+" "+line.ExecTime)
		if err != nil {
			return nil, fmt.Errorf("invalid exec date/time %q %q: %w", line.ExecDate, line.ExecTime, err)
		}
		tradeDate, err := time.Parse("1/2/06", line.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("invalid trade date %q: %w", line.TradeDate, err)
		}
		var ref int64
		if v := dashEmpty(line.Ref); v != "" {
			ref, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ref %q: %w", line.Ref, err)
			}
		}
		miscFees, err := toDecimal(dashEmpty(line.MiscFees), "")
		if err != nil {
			return nil, err
		}
		commissions, err := toDecimal(dashEmpty(line.CommissionsFees), "")
		if err != nil {
			return nil, err
		}
		amount, err := toDecimal(dashEmpty(line.Amount), "")
		if err != nil {
			return nil, err
		}
		out = append(out, beanbuff.FuturesStatementRow{
			Account:         account,
			TradeDate:       date.Of(tradeDate),
			Datetime:        dt,
			Type:            line.Type,
			Ref:             ref,
			Description:     line.Description,
			CommissionsFees: commissions,
			MiscFees:        miscFees,
			Amount:          amount,
		})
	}
	return out, nil
}
