package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts are displayed in the Indonesian convention: "." groups thousands and
// "," separates decimals ("1.234.567", "12,5").
var displayPrinter = message.NewPrinter(language.Indonesian)

var groupedInteger = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// FormatThousands renders n as a grouped integer ("1.234.567").
// A null value renders as the empty string.
func FormatThousands(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	whole := n.Decimal.Round(0)
	if b := whole.BigInt(); b.IsInt64() {
		return displayPrinter.Sprintf("%d", b.Int64())
	}
	return groupDigits(whole.String())
}

// groupDigits inserts "." every three digits of an integer string. The
// printer only groups machine-sized integers.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseThousands reads a grouped amount typed by a user or returned by a list
// endpoint. Group separators, spaces and an "Rp" prefix are ignored; a comma is
// the decimal separator. A lone dot is treated as a decimal point unless the
// value is a well-formed grouped integer ("12.500" is twelve thousand five
// hundred). Empty or unparseable input yields zero.
func ParseThousands(s string) decimal.Decimal {
	d, _ := parseAmount(s)
	return d
}

// parseAmount is ParseThousands that reports whether s held a number.
// Blank text parses as zero.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, true
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case groupedInteger.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatPercentDisplay converts a dot-decimal percentage ("12.5") into its
// comma-decimal display form ("12,5"). Values already in comma form pass
// through unchanged; unparseable text is returned trimmed.
func FormatPercentDisplay(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, ",") {
		return s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "%"))
	if err != nil {
		return s
	}
	return FormatPercent(d)
}

// FormatPercent renders d with a comma decimal separator.
func FormatPercent(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}

// ParsePercent reads a percentage in either comma or dot decimal form.
// Empty or unparseable input yields zero.
func ParsePercent(s string) decimal.Decimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseNullable parses an optional numeric input: blank text is null and
// text that is not a number reports false.
func parseNullable(s string) (decimal.NullDecimal, bool) {
	if cleanNumber(s) == "" {
		return decimal.NullDecimal{}, true
	}
	d, ok := parseAmount(s)
	if !ok {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	return s
}
