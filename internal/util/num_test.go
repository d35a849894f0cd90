package util

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain", input: "20.00", want: 20},
		{name: "dot decimal with comma thousands", input: "1,234.56", want: 1234.56},
		{name: "comma decimal with dot thousands", input: "1.234,56", want: 1234.56},
		{name: "comma decimal", input: "1,5", want: 1.5},
		{name: "thousands dot", input: "1.000", want: 1000},
		{name: "thousands space", input: "1 000", want: 1000},
		{name: "euro symbol", input: "€1.234,56", want: 1234.56},
		{name: "iso prefix", input: "EUR 99.90", want: 99.90},
		{name: "parenthesized credit", input: "(50.00)", want: -50},
		{name: "negative sign", input: "-12.30", want: -12.30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAmount(tc.input)
			if got == nil {
				t.Fatalf("amount is nil")
			}
			if *got != tc.want {
				t.Fatalf("got %v want %v", *got, tc.want)
			}
		})
	}
}

func TestParseAmountUnparseable(t *testing.T) {
	for _, input := range []string{"", "   ", "n/a", "abc", "--"} {
		if got := ParseAmount(input); got != nil {
			t.Fatalf("ParseAmount(%q) = %v, want nil", input, *got)
		}
	}
}

func TestCurrencyCode(t *testing.T) {
	cases := map[string]string{
		"€":   "EUR",
		"$":   "USD",
		"eur": "EUR",
		"Gbp": "GBP",
		"":    "",
		"kr":  "kr",
	}
	for input, want := range cases {
		if got := CurrencyCode(input); got != want {
			t.Fatalf("CurrencyCode(%q) = %q, want %q", input, got, want)
		}
	}
}
