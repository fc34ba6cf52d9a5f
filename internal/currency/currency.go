// Package currency handles currency-code normalization and the convertible
// asset allow-list used when pricing balances into the settlement currency.
package currency

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Settlement is the default currency balances are aggregated into.
const Settlement = "USD"

// codeRegex matches a 2–6 letter asset code, e.g. USD, BTC, USDT.
var codeRegex = regexp.MustCompile(`^[A-Z]{2,6}$`)

var ErrInvalidCode = errors.New("currency: invalid currency code")

// convertible is the fixed allow-list of asset codes with a known spot
// price against the settlement currency. Anything outside this set is
// treated as already settlement-denominated.
var convertible = map[string]bool{
	"BTC":  true,
	"ETH":  true,
	"USDT": true,
	"USDC": true,
}

// Normalize upper-cases and validates a currency code.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !codeRegex.MatchString(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return c, nil
}

// Convertible reports whether code is in the allow-list of assets the
// price oracle can quote. The code must already be normalized.
func Convertible(code string) bool {
	return convertible[code]
}

// ConvertibleSet returns a copy of the allow-list for configuration display.
func ConvertibleSet() []string {
	out := make([]string, 0, len(convertible))
	for c := range convertible {
		out = append(out, c)
	}
	return out
}
