// Package parse provides locale-tolerant price parsing and operator
// canonicalization for user-typed alert input.
package parse

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "crypto-alert-bot/internal/errors"
)

// Canonical comparison operators as stored and transmitted.
const (
	OpGreater        = ">"
	OpLower          = "<"
	OpGreaterOrEqual = ">="
	OpLowerOrEqual   = "<="
)

// operatorTokens maps the callback tokens shown on the operator keyboard to
// canonical symbols. Escaped display forms are accepted too so a value that
// leaked through HTML rendering still canonicalizes.
var operatorTokens = map[string]string{
	"greater":          OpGreater,
	"lower":            OpLower,
	"greater_or_equal": OpGreaterOrEqual,
	"lower_or_equal":   OpLowerOrEqual,
	"&gt;":             OpGreater,
	"&lt;":             OpLower,
	"&gt;=":            OpGreaterOrEqual,
	"&lt;=":            OpLowerOrEqual,
	">":                OpGreater,
	"<":                OpLower,
	">=":               OpGreaterOrEqual,
	"<=":               OpLowerOrEqual,
}

// CanonicalOperator maps an operator token to its canonical symbol.
func CanonicalOperator(token string) (string, error) {
	op, ok := operatorTokens[strings.TrimSpace(token)]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrUnknownOperator, "token %q", token)
	}
	return op, nil
}

// OperatorLabel returns the keyboard label for a callback token.
func OperatorLabel(token string) string {
	switch token {
	case "greater":
		return "Greater"
	case "lower":
		return "Lower"
	case "greater_or_equal":
		return "Greater or equal"
	case "lower_or_equal":
		return "Lower or equal"
	}
	return token
}

// Normalizer parses user-typed price strings into exact decimals.
type Normalizer struct {
	// DecimalComma selects the comma-as-decimal-separator convention for the
	// first parse attempt. Group separators (space, NBSP, thin space, and the
	// opposite separator) are stripped either way.
	DecimalComma bool
}

// groupSeparators are characters treated as digit grouping in any locale.
const groupSeparators = "   '"

// NormalizePrice parses raw into a decimal price. The locale-aware attempt
// runs first; on failure a generic attempt runs after substituting ","->".".
// Both attempts are local and side-effect-free; the returned error is always
// a *errors.PriceFormatError carrying the offending input.
func (n Normalizer) NormalizePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, apperrors.NewPriceFormatError(raw, nil)
	}

	if d, err := decimal.NewFromString(n.localeForm(trimmed)); err == nil {
		return d, nil
	}

	// Fallback: comma-to-dot substitution on the bare input.
	fallback := strings.ReplaceAll(stripRunes(trimmed, groupSeparators), ",", ".")
	d, err := decimal.NewFromString(fallback)
	if err != nil {
		return decimal.Zero, apperrors.NewPriceFormatError(raw, err)
	}
	return d, nil
}

// localeForm rewrites the input into the plain dot-decimal form the decimal
// parser accepts, honoring the configured separator convention.
func (n Normalizer) localeForm(s string) string {
	s = stripRunes(s, groupSeparators)
	if n.DecimalComma {
		// "45.000,50" style: dots group, comma separates decimals.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		return s
	}
	// "45,000.50" style: commas group.
	return strings.ReplaceAll(s, ",", "")
}

func stripRunes(s, cutset string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(cutset, r) {
			return -1
		}
		return r
	}, s)
}
