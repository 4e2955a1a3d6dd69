package beanbuff

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact monetary value with its currency. Prices, costs,
// commissions and fees are all Money. The zero value is a currency-less zero
// which combines weakly with any currency.
type Money struct {
	value decimal.Decimal
	cur   string
}

// M builds a Money from any numeric value or a literal string.
func M[T float32 | float64 | int | int32 | int64 | string | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// USD builds a dollar Money, the currency of every broker statement this
// package currently reads.
func USD[T float32 | float64 | int | int32 | int64 | string | decimal.Decimal](value T) Money {
	return M(value, "USD")
}

func (m Money) Currency() string          { return m.cur }
func (m Money) Equal(n Money) bool        { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool              { return m.value.IsZero() }
func (m Money) IsPositive() bool          { return m.value.IsPositive() }
func (m Money) IsNegative() bool          { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool     { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool  { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Abs() Money                { return Money{value: m.value.Abs(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money      { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money      { return Money{value: m.value.Div(q.value), cur: m.cur} }
func (m Money) Add(n Money) Money         { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money         { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }
func (m Money) Decimal() decimal.Decimal  { return m.value }

// Round returns the value rounded to the currency's minor unit (cents for
// USD). Fee distribution rounds per leg and conserves the remainder.
func (m Money) Round() Money {
	return Money{value: m.value.Round(int32(m.currency().Fraction)), cur: m.cur}
}

// currency returns the full go-money currency, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.orUSD()).Currency()
}

func (m Money) orUSD() string {
	if m.cur == "" {
		return "USD"
	}
	return m.cur
}

// String renders the value with its currency formatter, e.g. "$-1.30".
func (m Money) String() string {
	c := m.currency()
	return c.Formatter().Format(m.value.Shift(int32(c.Fraction)).IntPart())
}

// cur makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}

// MarshalJSON emits the bare decimal value; the currency is carried
// separately by the record encoding.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.value.MarshalJSON()
}

// UnmarshalJSON reads a bare decimal value; the caller restores the currency.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.value.UnmarshalJSON(b)
}
