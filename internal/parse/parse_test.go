package parse

import (
	"testing"

	apperrors "crypto-alert-bot/internal/errors"
)

func TestNormalizePrice_DecimalComma(t *testing.T) {
	n := Normalizer{DecimalComma: true}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "45000", "45000"},
		{"comma decimal", "45000,50", "45000.5"},
		{"space grouped comma decimal", "45 000,50", "45000.5"},
		{"nbsp grouped", "45 000,50", "45000.5"},
		{"dot grouped comma decimal", "45.000,50", "45000.5"},
		{"dot decimal via fallback", "45000.50", "45000.5"},
		{"small value", "0,015", "0.015"},
		{"leading whitespace", "  123,4  ", "123.4"},
		{"negative", "-1,5", "-1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.NormalizePrice(tt.input)
			if err != nil {
				t.Fatalf("NormalizePrice(%q) error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("NormalizePrice(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestNormalizePrice_DotConvention(t *testing.T) {
	n := Normalizer{DecimalComma: false}

	got, err := n.NormalizePrice("45,000.50")
	if err != nil {
		t.Fatalf("NormalizePrice error: %v", err)
	}
	if got.String() != "45000.5" {
		t.Errorf("NormalizePrice(\"45,000.50\") = %s, want 45000.5", got.String())
	}

	// Comma decimal still lands via the fallback substitution.
	got, err = n.NormalizePrice("12,5")
	if err != nil {
		t.Fatalf("NormalizePrice fallback error: %v", err)
	}
	if got.String() != "12.5" {
		t.Errorf("NormalizePrice(\"12,5\") = %s, want 12.5", got.String())
	}
}

func TestNormalizePrice_Invalid(t *testing.T) {
	n := Normalizer{DecimalComma: true}

	for _, input := range []string{"", "   ", "abc", "12,3,4.5x", "--5", "1..2.3,4,5"} {
		_, err := n.NormalizePrice(input)
		if err == nil {
			t.Errorf("NormalizePrice(%q) expected error, got nil", input)
			continue
		}
		var pfe *apperrors.PriceFormatError
		if !apperrors.As(err, &pfe) {
			t.Errorf("NormalizePrice(%q) error type %T, want *PriceFormatError", input, err)
			continue
		}
		if pfe.Input != input {
			t.Errorf("PriceFormatError.Input = %q, want %q", pfe.Input, input)
		}
	}
}

func TestCanonicalOperator(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"greater", ">"},
		{"lower", "<"},
		{"greater_or_equal", ">="},
		{"lower_or_equal", "<="},
		{"&gt;", ">"},
		{"&lt;=", "<="},
		{">=", ">="},
		{" greater ", ">"},
	}

	for _, tt := range tests {
		got, err := CanonicalOperator(tt.token)
		if err != nil {
			t.Errorf("CanonicalOperator(%q) error: %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalOperator(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}

	if _, err := CanonicalOperator("equals"); !apperrors.Is(err, apperrors.ErrUnknownOperator) {
		t.Errorf("CanonicalOperator(\"equals\") error = %v, want ErrUnknownOperator", err)
	}
}
