package enums

import "strings"

// Currency is an ISO 4217 code. Amounts are always integer minor units.
type Currency string

const (
	CurrencyXAF Currency = "XAF"
	CurrencyXOF Currency = "XOF"
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var validCurrencies = []Currency{
	CurrencyXAF,
	CurrencyXOF,
	CurrencyNGN,
	CurrencyGHS,
	CurrencyKES,
	CurrencyUSD,
	CurrencyEUR,
}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return oneOf(validCurrencies, c) }

// ParseCurrency accepts codes case-insensitively.
func ParseCurrency(value string) (Currency, error) {
	return parse(validCurrencies, strings.ToUpper(strings.TrimSpace(value)), "currency")
}
