package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout used for every date the API emits.
const DateLayout = "2006-01-02"

// FormatDate returns the date as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatDatePtr returns the formatted date for pointer values.
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}

// FormatAmount renders an amount with two decimals and thousands
// separators, prefixed with the currency code when one is given.
func FormatAmount(amount decimal.Decimal, currency string) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart := fixed, ""
	if dot := strings.IndexByte(fixed, '.'); dot >= 0 {
		intPart, fracPart = fixed[:dot], fixed[dot:]
	}

	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	out := sign + b.String() + fracPart
	if currency = strings.TrimSpace(currency); currency != "" {
		return currency + " " + out
	}
	return out
}
