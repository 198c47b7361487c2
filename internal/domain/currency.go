package domain

import (
	"fmt"
	"strings"
)

// Valid currency codes (ISO 4217).
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "TRY": true, "HKD": true, "PLN": true,
}

// Currencies whose minor unit is not two decimal places.
var minorUnitExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
}

// ValidateCurrency validates an ISO 4217 currency code.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a supported ISO 4217 code", ErrInvalidCurrency, currency)
	}

	return nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// MinorUnitExponent returns the number of minor-unit decimal places for a
// currency, e.g. 2 for USD and 0 for JPY.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnitExponents[NormalizeCurrency(currency)]; ok {
		return exp
	}

	return 2
}
