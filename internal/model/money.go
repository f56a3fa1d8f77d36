package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// MinorUnitPlaces is the number of decimal places stored for every currency.
const MinorUnitPlaces = 2

// maxMinorDigits is the number of digits in math.MaxInt64.
const maxMinorDigits = 19

// maxParseFraction bounds how many fractional digits a parsed amount may
// carry before rounding.
const maxParseFraction = 30

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Currencies lists the supported currency codes.
func Currencies() []Currency {
	return []Currency{BRL, USD, EUR}
}

func (c Currency) IsValid() bool {
	switch c {
	case BRL, USD, EUR:
		return true
	}
	return false
}

// ParseCurrency accepts a three-letter code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", validationError(ReasonInvalidCurrency, "currency %q is not supported", s)
	}
	return c, nil
}

// Money is an immutable amount held as an integer count of minor units.
//
// Every arithmetic operation computes the exact decimal result and rounds it
// once to the nearest minor unit, ties away from zero.
type Money struct {
	cents    int64
	currency Currency
}

// NewMoney builds Money from a major-unit amount, e.g. 12.34. The float is
// read at its shortest decimal representation before rounding.
func NewMoney(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, validationError(ReasonInvalidAmount, "amount must be a finite number")
	}
	return fromMajor(decimal.NewFromFloat(amount), currency)
}

// NewMoneyFromMinor builds Money from an exact count of minor units.
func NewMoneyFromMinor(cents int64, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, validationError(ReasonInvalidCurrency, "currency %q is not supported", currency)
	}
	return Money{cents: cents, currency: currency}, nil
}

// ParseMoney builds Money from a decimal string such as "100.50".
func ParseMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		e := validationError(ReasonInvalidAmount, "amount %q is not a decimal number", amount)
		e.Cause = err
		return Money{}, e
	}
	if err := checkMagnitude(d); err != nil {
		return Money{}, err
	}
	return fromMajor(d, currency)
}

// checkMagnitude rejects values whose exponent alone puts them out of range.
// It reads only the coefficient length and exponent, so it never rescales.
func checkMagnitude(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	exp := int64(d.Exponent())
	if exp < -maxParseFraction {
		return validationError(ReasonInvalidAmount, "amount has more than %d fractional digits", maxParseFraction)
	}
	if int64(d.NumDigits())+exp+MinorUnitPlaces > maxMinorDigits {
		return validationError(ReasonInvalidAmount, "amount is out of range")
	}
	return nil
}

// MustMoney is NewMoney for constants in tests and fixtures.
func MustMoney(amount float64, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns an empty amount in currency.
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

func fromMajor(d decimal.Decimal, currency Currency) (Money, error) {
	if d.IsZero() {
		d = decimal.Zero
	}
	if !currency.IsValid() {
		return Money{}, validationError(ReasonInvalidCurrency, "currency %q is not supported", currency)
	}
	return fromMinorDecimal(d.Shift(MinorUnitPlaces), currency)
}

func fromMinorDecimal(d decimal.Decimal, currency Currency) (Money, error) {
	d = d.Round(0)
	if d.GreaterThan(maxMinor) || d.LessThan(minMinor) {
		return Money{}, validationError(ReasonInvalidAmount, "amount %s is out of range", d.Shift(-MinorUnitPlaces).String())
	}
	return Money{cents: d.IntPart(), currency: currency}, nil
}

func (m Money) Currency() Currency { return m.currency }

// MinorUnits returns the amount in cents.
func (m Money) MinorUnits() int64 { return m.cents }

// Decimal returns the exact major-unit amount.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -MinorUnitPlaces)
}

// Amount returns the major-unit amount as a float, for display only.
func (m Money) Amount() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) IsZero() bool     { return m.cents == 0 }
func (m Money) IsPositive() bool { return m.cents > 0 }
func (m Money) IsNegative() bool { return m.cents < 0 }

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if (other.cents > 0 && m.cents > math.MaxInt64-other.cents) ||
		(other.cents < 0 && m.cents < math.MinInt64-other.cents) {
		return Money{}, validationError(ReasonInvalidAmount, "sum of %s and %s overflows", m, other)
	}
	return Money{cents: m.cents + other.cents, currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if (other.cents < 0 && m.cents > math.MaxInt64+other.cents) ||
		(other.cents > 0 && m.cents < math.MinInt64+other.cents) {
		return Money{}, validationError(ReasonInvalidAmount, "difference of %s and %s overflows", m, other)
	}
	return Money{cents: m.cents - other.cents, currency: m.currency}, nil
}

func (m Money) Multiply(factor float64) (Money, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return Money{}, validationError(ReasonInvalidAmount, "factor must be a finite number")
	}
	product := decimal.NewFromInt(m.cents).Mul(decimal.NewFromFloat(factor))
	return fromMinorDecimal(product, m.currency)
}

func (m Money) Divide(divisor float64) (Money, error) {
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) {
		return Money{}, validationError(ReasonInvalidAmount, "divisor must be a finite number")
	}
	if divisor == 0 {
		return Money{}, &Error{Code: CodeDivisionByZero, Message: "division by zero is not allowed"}
	}
	// DivRound rounds the exact quotient, ties away from zero.
	quotient := decimal.NewFromInt(m.cents).DivRound(decimal.NewFromFloat(divisor), 0)
	return fromMinorDecimal(quotient, m.currency)
}

// Equals is a total predicate: amounts in different currencies are unequal.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.cents == other.cents
}

func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.cents > other.cents, nil
}

func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.cents < other.cents, nil
}

// ConvertTo multiplies by rate and retags the result with target.
func (m Money) ConvertTo(target Currency, rate float64) (Money, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return Money{}, validationError(ReasonInvalidAmount, "rate must be a positive, finite number")
	}
	if !target.IsValid() {
		return Money{}, validationError(ReasonInvalidCurrency, "currency %q is not supported", target)
	}
	converted := decimal.NewFromInt(m.cents).Mul(decimal.NewFromFloat(rate))
	return fromMinorDecimal(converted, target)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(MinorUnitPlaces) + " " + string(m.currency)
}

// Format renders the amount with the currency symbol and the grouping and
// decimal marks of tag, e.g. "$ 1,234.56" for English. Digits come from the
// integer minor units, never from a float.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)

	symbol := string(m.currency)
	if unit, err := currency.ParseISO(symbol); err == nil {
		symbol = p.Sprint(currency.Symbol(unit))
	}
	// 0.25 is exact in binary, so this only extracts the decimal mark.
	mark := strings.Trim(p.Sprintf("%.2f", 0.25), "0123456789")

	sign := ""
	abs := uint64(m.cents)
	if m.cents < 0 {
		sign = "-"
		abs = uint64(-(m.cents + 1)) + 1
	}
	return p.Sprintf("%s %s%d", symbol, sign, abs/100) + mark + fmt.Sprintf("%02d", abs%100)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Decimal().StringFixed(MinorUnitPlaces), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		e := newError(CodeConflict, ReasonCurrencyMismatch,
			"cannot operate on different currencies: %s vs %s", m.currency, other.currency)
		e.Metadata = map[string]string{"left": string(m.currency), "right": string(other.currency)}
		return e
	}
	return nil
}
