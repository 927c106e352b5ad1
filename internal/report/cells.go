package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultNumericKeywords mark amount-like columns by header substring.
var DefaultNumericKeywords = []string{
	"amount", "debit", "credit", "penalty", "interest", "total", "balance", "principal",
}

var (
	// Leading currency codes or symbols such as "KES", "Ksh." or "$".
	currencyPrefixRe = regexp.MustCompile(`^(?i:[a-z]{1,4}\.\s*|[a-z]{1,4}\s+|[$€£₹]\s*)`)
	amountRe         = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	spaceRe          = regexp.MustCompile(`\s+`)
)

// Row maps a column name to a scalar cell value (string or number).
type Row map[string]any

func isNumericColumn(column string, keywords []string) bool {
	c := strings.ToLower(column)
	for _, k := range keywords {
		if k != "" && strings.Contains(c, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// ParseAmount converts a display amount like "1,234.50", "KES 1,000" or
// "(300.00)" to a float. ok is false when the text is not an amount.
func ParseAmount(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = currencyPrefixRe.ReplaceAllString(s, "")
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if !amountRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// cellValue normalizes a row value for writing. Numeric columns yield a
// float64 when the value parses as an amount; everything else is a string.
func cellValue(v any, numeric bool) any {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if numeric {
			return x
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return cellValue(float64(x), numeric)
	case int:
		return cellValue(float64(x), numeric)
	case int64:
		return cellValue(float64(x), numeric)
	case string:
		s := condense(x)
		if numeric {
			if f, ok := ParseAmount(s); ok {
				return f
			}
		}
		return s
	default:
		return condense(fmt.Sprint(x))
	}
}

func condense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// displayText approximates what Excel renders, for width fitting.
func displayText(v any) string {
	if f, ok := v.(float64); ok {
		return formatAmount(f)
	}
	return fmt.Sprint(v)
}

// formatAmount renders f like the "#,##0.00" number format.
func formatAmount(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
