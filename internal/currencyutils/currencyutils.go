// Package currencyutils parses and formats money amounts as they appear in
// shop data: "1 500 000 so'm", "1,500.50", "1.500,50", "$12".
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyTokens = regexp.MustCompile(`(?i)(so'm|so‘m|сўм|сум|uzs|usd|eur|rub|[€$£₽])`)
	spaceChars     = regexp.MustCompile(`[\s\x{00A0}\x{202F}]`)
)

// ParseAmount parses a string representation of an amount into a decimal value.
// Empty input parses as zero.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	if strings.TrimSpace(amountStr) == "" {
		return decimal.Zero, nil
	}

	standardized := StandardizeAmount(amountStr)

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	return amount, nil
}

// StandardizeAmount converts the common thousand/decimal separator styles to
// a string decimal.NewFromString accepts.
func StandardizeAmount(amountStr string) string {
	amountStr = currencyTokens.ReplaceAllString(amountStr, "")
	amountStr = spaceChars.ReplaceAllString(amountStr, "")
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	hasComma := strings.Contains(amountStr, ",")
	hasDot := strings.Contains(amountStr, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			// 1.234,56
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			// 1,234.56
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case hasComma:
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case hasDot && strings.Count(amountStr, ".") > 1:
		// 1.500.000
		amountStr = strings.ReplaceAll(amountStr, ".", "")
	}

	return amountStr
}

// FormatAmount renders an amount with space-grouped thousands and at most two
// decimals, followed by the currency label when one is given:
// "1 500 000 so'm", "12.50".
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := GroupThousands(amount.Round(2))
	if currency == "" {
		return formatted
	}
	return formatted + " " + currency
}

// GroupThousands inserts a space every three integer digits.
func GroupThousands(amount decimal.Decimal) string {
	s := amount.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// NonNegative returns v, or zero when v is negative.
func NonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
