package postgres

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric columns are selected as ::text and parsed here so precision never
// passes through float64.

func parseNumeric(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric string")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

// numericArg renders d for a NUMERIC(12,2) parameter.
func numericArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}
