package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltins(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 4 {
		t.Fatalf("len=%d", set.Len())
	}
	if set.All()[0].ID != "united_drug" {
		t.Fatalf("first profile %q", set.All()[0].ID)
	}
	if set.ByID("iskus") == nil {
		t.Fatal("iskus profile missing")
	}
}

func TestLoadMergesYAML(t *testing.T) {
	doc := `
suppliers:
  - id: acme_labs
    detect:
      - "Acme Labs Ltd"
    fields:
      invoice_id:
        - 'Ref\s*:\s*([A-Z0-9-]+)'
  - id: feehily
    detect:
      - "Feehily Pharma Group"
`
	path := filepath.Join(t.TempDir(), "suppliers.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 5 {
		t.Fatalf("len=%d", set.Len())
	}
	// Override keeps the builtin's position, new supplier appends.
	if set.All()[3].ID != "feehily" || len(set.All()[3].Detect) != 1 {
		t.Fatalf("feehily not overridden: %+v", set.All()[3])
	}
	if set.All()[4].ID != "acme_labs" {
		t.Fatalf("last profile %q", set.All()[4].ID)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"bad regex":        "suppliers:\n  - id: broken\n    detect:\n      - '(['\n",
		"no detect":        "suppliers:\n  - id: empty\n",
		"unknown field":    "suppliers:\n  - id: f\n    detect: ['F']\n    fields:\n      bogus: ['(x)']\n",
		"no capture group": "suppliers:\n  - id: f\n    detect: ['F']\n    fields:\n      invoice_id: ['INV']\n",
		"reserved id":      "suppliers:\n  - id: generic\n    detect: ['G']\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "suppliers.yaml")
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPatternsCaseInsensitive(t *testing.T) {
	set, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	p := set.ByID("united_drug")
	matched := false
	for _, re := range p.Detect {
		if re.MatchString("united drug (wholesale) limited") {
			matched = true
		}
	}
	if !matched {
		t.Fatal("detection should ignore casing")
	}
}
