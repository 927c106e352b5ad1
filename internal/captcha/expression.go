// Package captcha turns rendered arithmetic captchas ("12 + 7 = ?") into
// integer answers and retries recognition a bounded number of times.
package captcha

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is the arithmetic operator printed in the challenge.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
)

var digitsRe = regexp.MustCompile(`\d+`)

// multiplySigns are checked after + and -, in this order.
var multiplySigns = []string{"*", "×", "x", "X"}

// Expression is a parsed challenge. Left and Right are the first two numeric
// tokens in order of appearance, which matches the "N1 <op> N2 = ?" rendering.
type Expression struct {
	Left     int
	Right    int
	Operator Operator
}

// Eval computes the answer.
func (e Expression) Eval() int {
	switch e.Operator {
	case OpSubtract:
		return e.Left - e.Right
	case OpMultiply:
		return e.Left * e.Right
	default:
		return e.Left + e.Right
	}
}

func (e Expression) String() string {
	return fmt.Sprintf("%d %s %d", e.Left, e.Operator, e.Right)
}

// Parse extracts an expression from raw OCR text. Digits and operators are
// matched across the whole text, so stray trailing glyphs are ignored rather
// than trimmed by position. Multiplication is only recognized when
// allowMultiply is set.
func Parse(text string, allowMultiply bool) (Expression, error) {
	tokens := digitsRe.FindAllString(text, -1)
	if len(tokens) < 2 {
		return Expression{}, fmt.Errorf("%w: %d numeric tokens in %q", ErrParseFailure, len(tokens), text)
	}
	left, err := strconv.Atoi(tokens[0])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	right, err := strconv.Atoi(tokens[1])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	op, ok := detectOperator(text, allowMultiply)
	if !ok {
		return Expression{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, text)
	}
	return Expression{Left: left, Right: right, Operator: op}, nil
}

// detectOperator checks containment in fixed precedence: first match wins.
func detectOperator(text string, allowMultiply bool) (Operator, bool) {
	switch {
	case strings.Contains(text, string(OpAdd)):
		return OpAdd, true
	case strings.Contains(text, string(OpSubtract)):
		return OpSubtract, true
	}
	if allowMultiply {
		for _, sign := range multiplySigns {
			if strings.Contains(text, sign) {
				return OpMultiply, true
			}
		}
	}
	return "", false
}
