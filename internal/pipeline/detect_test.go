package pipeline

import (
	"testing"

	"invosheet/internal"
	"invosheet/internal/profile"
)

func testProfiles(t *testing.T, specs []profile.Spec) *profile.Set {
	t.Helper()
	set, err := profile.Compile(specs)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return set
}

func TestDetectSupplier(t *testing.T) {
	set := testProfiles(t, []profile.Spec{
		{ID: "alpha", Detect: []string{`Alpha Pharma Ltd`, `VAT 123`}},
		{ID: "beta", Detect: []string{`Beta Supplies`}},
	})

	cases := []struct {
		name string
		text string
		want internal.SupplierID
	}{
		{"letterhead match", "Alpha Pharma Ltd\nInvoice No: 1", "alpha"},
		{"secondary pattern", "something\nVAT 123\nmore", "alpha"},
		{"case insensitive", "ALPHA PHARMA LTD", "alpha"},
		{"second profile", "Beta Supplies\nInvoice", "beta"},
		{"no match", "Unknown Trading Co", internal.SupplierGeneric},
		{"empty text", "", internal.SupplierGeneric},
		{"whitespace only", "  \n\t ", internal.SupplierGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSupplier(set, tc.text); got != tc.want {
				t.Errorf("DetectSupplier(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectSupplierPriorityOrder(t *testing.T) {
	// Both profiles match; the earlier one wins.
	set := testProfiles(t, []profile.Spec{
		{ID: "first", Detect: []string{`Shared Mark`}},
		{ID: "second", Detect: []string{`Shared Mark`}},
	})
	if got := DetectSupplier(set, "Shared Mark appears here"); got != "first" {
		t.Errorf("DetectSupplier = %q, want first", got)
	}
}
