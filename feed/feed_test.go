package feed

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `[
  {
    "transactionId": 29908664894,
    "orderId": "T447599831",
    "type": "TRADE",
    "transactionDate": "2021-04-14T13:31:24+0000",
    "description": "BUY TRADE",
    "fees": {"commission": 0.65, "optRegFee": 0.0125, "secFee": 0.0, "regFee": 0.011},
    "transactionItem": {
      "accountId": 777888999,
      "amount": 1,
      "price": 15.0,
      "instruction": "BUY",
      "positionEffect": "OPENING",
      "instrument": {"symbol": "SPX_210416_C4000", "assetType": "OPTION"}
    }
  },
  {
    "transactionId": 29908664895,
    "type": "DIVIDEND_OR_INTEREST",
    "transactionDate": "2021-04-15T05:00:00+0000",
    "description": "FREE BALANCE INTEREST ADJUSTMENT",
    "transactionItem": {"accountId": 777888999, "amount": 0, "price": 0}
  }
]`

func TestReadTransactions(t *testing.T) {
	rows, err := ReadTransactions(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	trade := rows[0]
	assert.Equal(t, "29908664894", trade.TransactionID)
	assert.Equal(t, "T447599831", trade.OrderID)
	assert.Equal(t, "777888999", trade.Account)
	assert.Equal(t, "TRADE", trade.Type)
	assert.Equal(t, "SPX_210416_C4000", trade.Symbol)
	assert.Equal(t, "BUY", trade.Instruction)
	assert.Equal(t, "OPENING", trade.Effect)
	assert.True(t, trade.Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, trade.Price.Equal(decimal.NewFromInt(15)))

	// Commission stands apart; the regulatory keys fold into fees. Both are
	// signed as costs.
	assert.True(t, trade.Commissions.Equal(decimal.RequireFromString("-0.65")),
		"got %s", trade.Commissions)
	assert.True(t, trade.Fees.Equal(decimal.RequireFromString("-0.0235")),
		"got %s", trade.Fees)

	// Non-trade rows pass through untouched; filtering is the normalizer's.
	div := rows[1]
	assert.Equal(t, "DIVIDEND_OR_INTEREST", div.Type)
	assert.Empty(t, div.OrderID)
	assert.True(t, div.Commissions.IsZero())
}

func TestReadTransactions_Invalid(t *testing.T) {
	_, err := ReadTransactions(strings.NewReader(`{"not": "an array"}`))
	require.Error(t, err)

	_, err = ReadTransactions(strings.NewReader(`[{"type": "TRADE"}]`))
	require.Error(t, err, "missing transactionId")

	_, err = ReadTransactions(strings.NewReader(
		`[{"transactionId": 1, "transactionDate": "14/04/2021"}]`))
	require.Error(t, err)
}
