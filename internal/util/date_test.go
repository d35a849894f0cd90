package util

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		order string
		want  string
	}{
		{name: "day first default", input: "12/01/2024", order: "dmy", want: "2024-01-12"},
		{name: "month first", input: "12/01/2024", order: "mdy", want: "2024-12-01"},
		{name: "dots", input: "31.12.2023", order: "dmy", want: "2023-12-31"},
		{name: "dashes short year", input: "05-03-24", order: "dmy", want: "2024-03-05"},
		{name: "day over twelve wins", input: "01/25/2024", order: "dmy", want: "2024-01-25"},
		{name: "iso passthrough", input: "2024-01-12", order: "dmy", want: "2024-01-12"},
		{name: "year first", input: "2024/1/5", order: "dmy", want: "2024-01-05"},
		{name: "textual day month", input: "5 March 2024", order: "dmy", want: "2024-03-05"},
		{name: "textual ordinal", input: "21st Jan 2025", order: "dmy", want: "2025-01-21"},
		{name: "textual month day", input: "Mar 5, 2024", order: "dmy", want: "2024-03-05"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeDate(tc.input, tc.order)
			if got == nil {
				t.Fatalf("date is nil")
			}
			if *got != tc.want {
				t.Fatalf("got %q want %q", *got, tc.want)
			}
		})
	}
}

func TestNormalizeDateUnparseable(t *testing.T) {
	for _, input := range []string{"", "none", "13/13/2024", "30.02.2024", "sometime soon"} {
		if got := NormalizeDate(input, "dmy"); got != nil {
			t.Fatalf("NormalizeDate(%q) = %q, want nil", input, *got)
		}
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	first := NormalizeDate("01.02.2024", "dmy")
	if first == nil {
		t.Fatal("first pass nil")
	}
	second := NormalizeDate(*first, "dmy")
	if second == nil || *second != *first {
		t.Fatalf("second pass changed value: %v vs %q", second, *first)
	}
}
